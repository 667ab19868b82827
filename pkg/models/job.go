package models

import (
	"strings"
	"time"
)

// Listing is one scraped job posting before it is persisted.
// Empty strings mean the field was not found on the page.
type Listing struct {
	Source       string `json:"source"`
	ExternalID   string `json:"external_id,omitempty"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Company      string `json:"company,omitempty"`
	Location     string `json:"location,omitempty"`
	Salary       string `json:"salary,omitempty"`
	Experience   string `json:"experience,omitempty"`
	Description  string `json:"description,omitempty"`
	Requirements string `json:"requirements,omitempty"`
	Email        string `json:"email,omitempty"`
	ApplyURL     string `json:"apply_url,omitempty"`
	PostedAt     string `json:"posted_at,omitempty"`
}

// Complete reports whether the listing carries both a URL and a title
func (l Listing) Complete() bool {
	return strings.TrimSpace(l.URL) != "" && strings.TrimSpace(l.Title) != ""
}

// JobStatus is the lifecycle state of a stored job record
type JobStatus string

const (
	JobStatusNew        JobStatus = "new"
	JobStatusMatched    JobStatus = "matched"
	JobStatusInterested JobStatus = "interested"
	JobStatusApplied    JobStatus = "applied"
	JobStatusArchived   JobStatus = "archived"
	JobStatusRejected   JobStatus = "rejected"
	JobStatusIgnored    JobStatus = "ignored"
)

// JobStatuses lists every status the store accepts
var JobStatuses = []JobStatus{
	JobStatusNew,
	JobStatusMatched,
	JobStatusInterested,
	JobStatusApplied,
	JobStatusArchived,
	JobStatusRejected,
	JobStatusIgnored,
}

// IsValid reports whether s is one of the known statuses
func (s JobStatus) IsValid() bool {
	for _, known := range JobStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// JobRecord is the persisted counterpart of a Listing
type JobRecord struct {
	ID           int64     `json:"id"`
	Source       string    `json:"source"`
	ExternalID   string    `json:"external_id,omitempty"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Company      string    `json:"company,omitempty"`
	Location     string    `json:"location,omitempty"`
	Salary       string    `json:"salary,omitempty"`
	Experience   string    `json:"experience,omitempty"`
	Description  string    `json:"description,omitempty"`
	Requirements string    `json:"requirements,omitempty"`
	Email        string    `json:"email,omitempty"`
	ApplyURL     string    `json:"apply_url,omitempty"`
	PostedAt     string    `json:"posted_at,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
	MatchScore   *int      `json:"match_score"`
	Status       JobStatus `json:"status"`
	Notes        *string   `json:"notes"`
}

// NewJobRecord builds the initial record for a listing that has never been stored
func NewJobRecord(l Listing) *JobRecord {
	return &JobRecord{
		Source:       l.Source,
		ExternalID:   l.ExternalID,
		URL:          l.URL,
		Title:        l.Title,
		Company:      l.Company,
		Location:     l.Location,
		Salary:       l.Salary,
		Experience:   l.Experience,
		Description:  l.Description,
		Requirements: l.Requirements,
		Email:        l.Email,
		ApplyURL:     l.ApplyURL,
		PostedAt:     l.PostedAt,
		Status:       JobStatusNew,
	}
}

// JobPatch carries the fields reconciliation decided to overwrite.
// A nil pointer leaves the stored value untouched.
type JobPatch struct {
	Description  *string `json:"description,omitempty"`
	Requirements *string `json:"requirements,omitempty"`
	Experience   *string `json:"experience,omitempty"`
	Salary       *string `json:"salary,omitempty"`
	PostedAt     *string `json:"posted_at,omitempty"`
	Email        *string `json:"email,omitempty"`
	ApplyURL     *string `json:"apply_url,omitempty"`
}

// Empty reports whether the patch would change nothing
func (p JobPatch) Empty() bool {
	return len(p.Columns()) == 0
}

// Columns returns the set fields keyed by their column name, in a stable order
func (p JobPatch) Columns() []ColumnValue {
	var cols []ColumnValue
	add := func(name string, v *string) {
		if v != nil {
			cols = append(cols, ColumnValue{Name: name, Value: *v})
		}
	}
	add("description", p.Description)
	add("requirements", p.Requirements)
	add("experience", p.Experience)
	add("salary", p.Salary)
	add("posted_at", p.PostedAt)
	add("email", p.Email)
	add("apply_url", p.ApplyURL)
	return cols
}

// ColumnValue is a single column assignment
type ColumnValue struct {
	Name  string
	Value interface{}
}

// JobUpdate is an operator-driven change to a stored record
type JobUpdate struct {
	Status     *JobStatus `json:"status,omitempty"`
	MatchScore *int       `json:"match_score,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	Email      *string    `json:"email,omitempty"`
	ApplyURL   *string    `json:"apply_url,omitempty"`
}

// Columns returns the set fields keyed by their column name
func (u JobUpdate) Columns() []ColumnValue {
	var cols []ColumnValue
	if u.Status != nil {
		cols = append(cols, ColumnValue{Name: "status", Value: string(*u.Status)})
	}
	if u.MatchScore != nil {
		cols = append(cols, ColumnValue{Name: "match_score", Value: *u.MatchScore})
	}
	if u.Notes != nil {
		cols = append(cols, ColumnValue{Name: "notes", Value: *u.Notes})
	}
	if u.Email != nil {
		cols = append(cols, ColumnValue{Name: "email", Value: *u.Email})
	}
	if u.ApplyURL != nil {
		cols = append(cols, ColumnValue{Name: "apply_url", Value: *u.ApplyURL})
	}
	return cols
}

// JobFilter narrows a record listing
type JobFilter struct {
	Status  string
	Source  string
	Search  string
	Page    int
	PerPage int
	Sort    string // date | score | score_asc
}

// JobStats summarises the store contents
type JobStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	BySource map[string]int `json:"bySource"`
}
