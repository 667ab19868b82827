package background

import (
	"context"
	"sort"
	"sync"
	"time"

	"letraz-harvester/pkg/models"
)

// TaskStatus represents the status of a background run
type TaskStatus string

const (
	TaskStatusAccepted   TaskStatus = "ACCEPTED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusSuccess    TaskStatus = "SUCCESS"
	TaskStatusFailure    TaskStatus = "FAILURE"
)

// TaskType represents the type of background task
type TaskType string

const (
	TaskTypeScrape TaskType = "scrape"
)

// TaskResult represents the state and outcome of a background run
type TaskResult struct {
	ProcessID      string                 `json:"processId"`
	Type           TaskType               `json:"type"`
	Status         TaskStatus             `json:"status"`
	Data           *models.RunSummary     `json:"data,omitempty"`
	Error          string                 `json:"error,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
	ProcessingTime *time.Duration         `json:"processingTime,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// IsCompleted reports whether the run reached a terminal status
func (r *TaskResult) IsCompleted() bool {
	return r.Status == TaskStatusSuccess || r.Status == TaskStatusFailure
}

// ToResponse converts the result into the API status payload
func (r *TaskResult) ToResponse() *models.AsyncTaskStatusResponse {
	return &models.AsyncTaskStatusResponse{
		ProcessID:      r.ProcessID,
		Status:         models.AsyncStatus(r.Status),
		Data:           r.Data,
		Error:          r.Error,
		CreatedAt:      r.CreatedAt,
		CompletedAt:    r.CompletedAt,
		ProcessingTime: r.ProcessingTime,
		Metadata:       r.Metadata,
	}
}

// TaskStore defines the interface for storing and retrieving task results
type TaskStore interface {
	// Store stores a task result
	Store(ctx context.Context, result *TaskResult) error

	// Get retrieves a task result by process ID
	Get(ctx context.Context, processID string) (*TaskResult, error)

	// Update updates a task result
	Update(ctx context.Context, result *TaskResult) error

	// Delete removes a task result
	Delete(ctx context.Context, processID string) error

	// Cleanup removes expired task results
	Cleanup(ctx context.Context, maxAge time.Duration) error

	// List returns all task results, newest first
	List(ctx context.Context) ([]*TaskResult, error)
}

// InMemoryTaskStore implements TaskStore using in-memory storage
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*TaskResult
}

// NewInMemoryTaskStore creates a new in-memory task store
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*TaskResult),
	}
}

// Store stores a copy of the task result
func (s *InMemoryTaskStore) Store(ctx context.Context, result *TaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *result
	s.tasks[result.ProcessID] = &copied
	return nil
}

// Get retrieves a copy of a task result by process ID
func (s *InMemoryTaskStore) Get(ctx context.Context, processID string) (*TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, exists := s.tasks[processID]
	if !exists {
		return nil, ErrTaskNotFound
	}

	copied := *result
	return &copied, nil
}

// Update updates a task result
func (s *InMemoryTaskStore) Update(ctx context.Context, result *TaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[result.ProcessID]; !exists {
		return ErrTaskNotFound
	}

	copied := *result
	s.tasks[result.ProcessID] = &copied
	return nil
}

// Delete removes a task result
func (s *InMemoryTaskStore) Delete(ctx context.Context, processID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[processID]; !exists {
		return ErrTaskNotFound
	}

	delete(s.tasks, processID)
	return nil
}

// Cleanup removes task results older than maxAge
func (s *InMemoryTaskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)

	for processID, result := range s.tasks {
		if result.CreatedAt.Before(cutoff) {
			delete(s.tasks, processID)
		}
	}

	return nil
}

// List returns all task results, newest first
func (s *InMemoryTaskStore) List(ctx context.Context) ([]*TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*TaskResult, 0, len(s.tasks))
	for _, result := range s.tasks {
		copied := *result
		results = append(results, &copied)
	}
	sortNewestFirst(results)

	return results, nil
}

func sortNewestFirst(results []*TaskResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
}

// Common errors
var (
	ErrTaskNotFound = NewTaskError("task not found")
	ErrQueueFull    = NewTaskError("task queue is full")
	ErrNotRunning   = NewTaskError("task manager is not healthy")
)

// TaskError represents a background task error
type TaskError struct {
	Message string
	Code    string
}

func NewTaskError(message string) *TaskError {
	return &TaskError{
		Message: message,
		Code:    "TASK_ERROR",
	}
}

func (e *TaskError) Error() string {
	return e.Message
}
