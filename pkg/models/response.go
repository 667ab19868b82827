package models

import "time"

// ScrapeResponse represents the response from a synchronous scrape run
type ScrapeResponse struct {
	Success        bool           `json:"success"`
	Results        []SourceResult `json:"results"`
	TotalJobsAdded int            `json:"totalJobsAdded"`
	LoginRequired  bool           `json:"loginRequired"`
	Warnings       []string       `json:"warnings"`
	ProcessingTime time.Duration  `json:"processing_time"`
	RequestID      string         `json:"request_id"`
}

// NewScrapeResponse wraps a run summary for the wire
func NewScrapeResponse(summary *RunSummary, requestID string) *ScrapeResponse {
	warnings := summary.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &ScrapeResponse{
		Success:        true,
		Results:        summary.Results,
		TotalJobsAdded: summary.TotalJobsAdded,
		LoginRequired:  summary.LoginRequired,
		Warnings:       warnings,
		ProcessingTime: summary.Duration,
		RequestID:      requestID,
	}
}

// JobListResponse represents a page of stored jobs with store-wide stats
type JobListResponse struct {
	Jobs       []JobRecord `json:"jobs"`
	Pagination Pagination  `json:"pagination"`
	Stats      JobStats    `json:"stats"`
}

// Pagination describes the page returned by a list call
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// AuthStatusResponse reports the login state per site
type AuthStatusResponse struct {
	Sites     map[string]LoginStatus `json:"sites"`
	Timestamp time.Time              `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
