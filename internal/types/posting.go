// Package types provides type definitions for the job postings, profiles and
// recommendations that flow through the ingestion and matching pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator caches struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// NotAvailable is stored for optional text fields a source could not provide.
const NotAvailable = "N/A"

// RawPosting is a job posting as produced by a source adapter.
// CanonicalURL is the global dedup key.
type RawPosting struct {
	ID              int64     `json:"id,omitempty"`
	Title           string    `json:"title" validate:"required"`
	Company         string    `json:"company"`
	Location        string    `json:"location"`
	EmploymentType  string    `json:"job_type"`
	DatePosted      time.Time `json:"date_posted"`
	CanonicalURL    string    `json:"url" validate:"required,url"`
	SourceID        string    `json:"source" validate:"required"`
	Description     string    `json:"description"`
	ExtractedSkills []string  `json:"skills,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
}

// Validate reports whether the posting has the fields required for persistence.
func (p *RawPosting) Validate() error {
	return validate.Struct(p)
}

// DateOnly truncates t to midnight UTC of its calendar day in t's location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CleanedPosting is a RawPosting with an assigned category label.
type CleanedPosting struct {
	RawPosting
	Category string `json:"category"`
}

// HasCategory reports whether a non-blank category has been assigned.
func (c *CleanedPosting) HasCategory() bool {
	return strings.TrimSpace(c.Category) != ""
}
