package background

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"letraz-harvester/internal/logging"
)

// TaskCompletionLogger handles structured logging for run completion
type TaskCompletionLogger struct {
	logger logging.Logger
	out    io.Writer
}

// NewTaskCompletionLogger creates a completion logger writing to stdout
func NewTaskCompletionLogger(logger logging.Logger) *TaskCompletionLogger {
	return &TaskCompletionLogger{
		logger: logging.ForComponent(logger, "task_completion"),
		out:    os.Stdout,
	}
}

// TaskCompletionLog represents the structured log entry for run completion
type TaskCompletionLog struct {
	ProcessID      string                 `json:"processId"`
	Status         string                 `json:"status"`
	JobsAdded      int                    `json:"jobsAdded"`
	LoginRequired  bool                   `json:"loginRequired"`
	Sources        []string               `json:"sources,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Operation      string                 `json:"operation"`
	ProcessingTime string                 `json:"processing_time"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// CreateTaskCompletionLog builds the completion entry for a finished run
func CreateTaskCompletionLog(result *TaskResult) TaskCompletionLog {
	processingTime := "0s"
	if result.ProcessingTime != nil {
		processingTime = result.ProcessingTime.String()
	}

	entry := TaskCompletionLog{
		ProcessID:      result.ProcessID,
		Status:         string(result.Status),
		Error:          result.Error,
		Timestamp:      time.Now(),
		Operation:      string(result.Type),
		ProcessingTime: processingTime,
		Metadata:       result.Metadata,
	}

	if result.Data != nil {
		entry.JobsAdded = result.Data.TotalJobsAdded
		entry.LoginRequired = result.Data.LoginRequired
		for _, r := range result.Data.Results {
			entry.Sources = append(entry.Sources, r.Source)
		}
	}

	return entry
}

// LogTaskCompletion writes one JSON line per finished run so log shippers
// can pick run outcomes out of the stream
func (l *TaskCompletionLogger) LogTaskCompletion(result *TaskResult) error {
	jsonData, err := json.Marshal(CreateTaskCompletionLog(result))
	if err != nil {
		l.logger.Error("Failed to marshal task completion log", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to marshal task completion log: %w", err)
	}

	if _, err := fmt.Fprintln(l.out, string(jsonData)); err != nil {
		return fmt.Errorf("failed to write task completion log: %w", err)
	}

	l.logger.Info("Background task completed", map[string]interface{}{
		"process_id": result.ProcessID,
		"status":     result.Status,
		"operation":  result.Type,
	})

	return nil
}

// LogTaskStart logs when a run starts processing
func (l *TaskCompletionLogger) LogTaskStart(processID string, taskType TaskType) {
	l.logger.Info("Background task started", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     "PROCESSING",
	})
}

// LogTaskAccepted logs when a run is queued
func (l *TaskCompletionLogger) LogTaskAccepted(processID string, taskType TaskType) {
	l.logger.Info("Background task accepted", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     "ACCEPTED",
	})
}

// LogTaskError logs run failures
func (l *TaskCompletionLogger) LogTaskError(processID string, taskType TaskType, err error) {
	l.logger.Error("Background task failed", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     "FAILURE",
		"error":      err.Error(),
	})
}

// LogTaskSuccess logs successful run completion
func (l *TaskCompletionLogger) LogTaskSuccess(processID string, taskType TaskType, processingTime time.Duration) {
	l.logger.Info("Background task completed successfully", map[string]interface{}{
		"process_id":      processID,
		"operation":       taskType,
		"status":          "SUCCESS",
		"processing_time": processingTime,
	})
}
