package types

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the outcome of processing a single scraped item.
type ItemStatus string

const (
	// ItemOK is a fully parsed item.
	ItemOK ItemStatus = "ok"
	// ItemPartial is kept, but its detail page could not be fetched.
	ItemPartial ItemStatus = "partial"
	// ItemSkippedParse is dropped because required fields were missing.
	ItemSkippedParse ItemStatus = "skipped_parse"
	// ItemSkippedFetch is a list page that failed after every retry.
	ItemSkippedFetch ItemStatus = "skipped_fetch"
)

// ItemOutcome records what happened to one item (or page) of a source.
type ItemOutcome struct {
	Ref    string     `json:"ref"`
	Status ItemStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// SourceOutcome summarizes one adapter run.
type SourceOutcome struct {
	Source       string        `json:"source"`
	Postings     int           `json:"postings"`
	Partial      int           `json:"partial"`
	ParseSkipped int           `json:"parse_skipped"`
	FetchSkipped int           `json:"fetch_skipped"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Failed reports whether the adapter itself failed.
func (o SourceOutcome) Failed() bool {
	return o.Error != ""
}

// Tally counts item outcomes into the source summary.
func (o *SourceOutcome) Tally(items []ItemOutcome) {
	for _, it := range items {
		switch it.Status {
		case ItemPartial:
			o.Partial++
		case ItemSkippedParse:
			o.ParseSkipped++
		case ItemSkippedFetch:
			o.FetchSkipped++
		}
	}
}

// DuplicateURL is a URL that appears more than once in the raw postings table.
type DuplicateURL struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// SchemaStatus is the result of the idempotent schema-ensure step.
type SchemaStatus struct {
	UniqueURL     bool           `json:"unique_url"`
	ConstraintNew bool           `json:"constraint_added"`
	Duplicates    []DuplicateURL `json:"duplicates,omitempty"`
}

// IngestReport summarizes one ingestion cycle.
type IngestReport struct {
	Sources      []SourceOutcome `json:"sources"`
	Fetched      int             `json:"fetched"`
	Unique       int             `json:"unique"`
	Inserted     int             `json:"inserted"`
	Duplicates   int             `json:"duplicates"`
	InsertFailed int             `json:"insert_failed"`
}

// SourceFailures counts adapters that failed outright.
func (r *IngestReport) SourceFailures() int {
	n := 0
	for _, s := range r.Sources {
		if s.Failed() {
			n++
		}
	}
	return n
}

// CategorizeReport summarizes the categorization stage.
type CategorizeReport struct {
	Skipped     bool   `json:"skipped"`
	Reason      string `json:"reason,omitempty"`
	Categorized int    `json:"categorized"`
	Failed      int    `json:"failed"`
}

// UserOutcome is the result of recomputing one user's matches.
type UserOutcome struct {
	UserID  int64  `json:"user_id"`
	Matches int    `json:"matches"`
	Error   string `json:"error,omitempty"`
}

// MatchReport summarizes a batch recompute.
type MatchReport struct {
	Users     []UserOutcome `json:"users"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Written   int           `json:"written"`
}

// Add records a user outcome and updates the totals.
func (r *MatchReport) Add(o UserOutcome) {
	r.Users = append(r.Users, o)
	if o.Error != "" {
		r.Failed++
		return
	}
	r.Succeeded++
	r.Written += o.Matches
}

// RunReport summarizes a full pipeline run.
type RunReport struct {
	RunID      uuid.UUID        `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Ingest     IngestReport     `json:"ingest"`
	Categorize CategorizeReport `json:"categorize"`
	Match      MatchReport      `json:"match"`
	// Archive is where the ingestion snapshot was written, if anywhere.
	Archive string `json:"archive,omitempty"`
}
