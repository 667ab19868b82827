package models

import (
	"time"
)

// AsyncStatus represents the status of an async run
type AsyncStatus string

const (
	AsyncStatusAccepted   AsyncStatus = "ACCEPTED"
	AsyncStatusProcessing AsyncStatus = "PROCESSING"
	AsyncStatusSuccess    AsyncStatus = "SUCCESS"
	AsyncStatusFailure    AsyncStatus = "FAILURE"
)

// AsyncScrapeResponse represents the immediate response from an async scrape request
type AsyncScrapeResponse struct {
	ProcessID string      `json:"processId"`
	Status    AsyncStatus `json:"status"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// AsyncTaskStatusResponse represents the response for run status queries
type AsyncTaskStatusResponse struct {
	ProcessID      string                 `json:"processId"`
	Status         AsyncStatus            `json:"status"`
	Data           *RunSummary            `json:"data,omitempty"`
	Error          string                 `json:"error,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
	ProcessingTime *time.Duration         `json:"processingTime,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// CreateAsyncScrapeResponse creates a successful async scrape response
func CreateAsyncScrapeResponse(processID string) *AsyncScrapeResponse {
	return &AsyncScrapeResponse{
		ProcessID: processID,
		Status:    AsyncStatusAccepted,
		Message:   "Scrape run accepted for background processing",
		Timestamp: time.Now(),
	}
}

// IsCompleted checks if the run has finished (success or failure)
func (r *AsyncTaskStatusResponse) IsCompleted() bool {
	return r.Status == AsyncStatusSuccess || r.Status == AsyncStatusFailure
}
