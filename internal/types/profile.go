package types

// UserProfile is a job seeker profile owned by the presentation layer.
// The matching core only reads it.
type UserProfile struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Qualifications string   `json:"academic_qualification"`
	Experience     string   `json:"experience"`
	Skills         []string `json:"skills"`
	About          string   `json:"about"`
}
