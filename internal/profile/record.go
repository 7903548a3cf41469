// Package profile holds the scraped profile record and the parsing services
// shared by both page variants: credential stripping, name splitting and
// company clean-up.
package profile

import (
	"regexp"
	"strings"
	"time"
)

// Record is one scraped profile. Every field except FirstName may be empty.
type Record struct {
	FullName    string    `json:"fullName"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Headline    string    `json:"headline,omitempty"`
	Title       string    `json:"title,omitempty"`
	Company     string    `json:"company,omitempty"`
	Location    string    `json:"location,omitempty"`
	Education   string    `json:"education,omitempty"`
	Credentials []string  `json:"credentials,omitempty"`
	ProfileURL  string    `json:"profileUrl"`
	Variant     string    `json:"variant"`
	CapturedAt  time.Time `json:"capturedAt"`
}

// Valid reports whether a first name was recovered.
func (r *Record) Valid() bool {
	return r != nil && r.FirstName != ""
}

var spaceRun = regexp.MustCompile(`\s+`)

// Clean replaces non-breaking spaces, collapses whitespace runs and trims.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

var (
	employmentSuffix = regexp.MustCompile(`(?i)\s*·\s*(Full-time|Part-time|Contract|Internship|Freelance|Self-employed).*$`)
	trailingPunct    = regexp.MustCompile(`[.,]+$`)
)

// CleanCompany removes employment-type suffixes such as " · Full-time" and
// trailing punctuation.
func CleanCompany(s string) string {
	s = employmentSuffix.ReplaceAllString(Clean(s), "")
	return strings.TrimSpace(trailingPunct.ReplaceAllString(s, ""))
}
