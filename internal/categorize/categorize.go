// Package categorize assigns each raw posting one category label from a
// fixed vocabulary and stores the result as a cleaned posting.
package categorize

import (
	"context"
	"fmt"
	"strings"
)

// Other is the label for titles that fit no other category.
const Other = "Other"

// Categories is the fixed label vocabulary, Other last.
var Categories = []string{
	"Information Technology",
	"Healthcare",
	"Finance & Accounting",
	"Education",
	"Engineering",
	"Legal",
	"Human Resources",
	"Agriculture",
	"Logistics & Procurement",
	"Sales & Marketing",
	"Hospitality",
	"Administration",
	"Development & NGO",
	"Management",
	Other,
}

var canonical = func() map[string]string {
	m := make(map[string]string, len(Categories))
	for _, c := range Categories {
		m[strings.ToLower(c)] = c
	}
	return m
}()

// Input is one posting to classify.
type Input struct {
	ID    int64
	Title string
}

// Categorizer maps titles to labels. Implementations return exactly one
// label per input, in input order.
type Categorizer interface {
	Categorize(ctx context.Context, inputs []Input) ([]string, error)
}

// Canonical maps a label onto the vocabulary, case-insensitively.
// Unknown and blank labels become Other.
func Canonical(label string) string {
	if c, ok := canonical[strings.ToLower(strings.TrimSpace(label))]; ok {
		return c
	}
	return Other
}

// ClassificationError is returned when a classifier response cannot be used.
type ClassificationError struct {
	Message string
	Cause   error
}

func (e *ClassificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("classification failed: %s", e.Message)
}

func (e *ClassificationError) Unwrap() error {
	return e.Cause
}
