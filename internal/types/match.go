package types

// MatchRecord is one recommended job for a user. (UserID, JobID) is unique.
type MatchRecord struct {
	UserID          int64   `json:"user_id"`
	JobID           int64   `json:"job_id"`
	UserName        string  `json:"user_name"`
	UserEmail       string  `json:"user_email"`
	JobTitle        string  `json:"job_title"`
	JobCategory     string  `json:"job_category"`
	SimilarityScore float64 `json:"similarity_score"`
}

// ScoredJob pairs a cleaned posting with its similarity to a profile.
type ScoredJob struct {
	Job   CleanedPosting `json:"job"`
	Score float64        `json:"score"`
}

// NewMatchRecords builds the match rows for a user from a ranked list.
func NewMatchRecords(user *UserProfile, ranked []ScoredJob) []MatchRecord {
	records := make([]MatchRecord, 0, len(ranked))
	for _, r := range ranked {
		records = append(records, MatchRecord{
			UserID:          user.ID,
			JobID:           r.Job.ID,
			UserName:        user.Name,
			UserEmail:       user.Email,
			JobTitle:        r.Job.Title,
			JobCategory:     r.Job.Category,
			SimilarityScore: r.Score,
		})
	}
	return records
}
