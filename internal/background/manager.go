package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"letraz-harvester/internal/config"
	"letraz-harvester/internal/coordinator"
	"letraz-harvester/internal/logging"
	"letraz-harvester/pkg/models"
)

// Task manager configuration constants
const (
	DefaultMaxQueueSize    = 16
	DefaultTaskTimeout     = time.Hour
	DefaultCleanupInterval = time.Hour
	DefaultMaxTaskAge      = 24 * time.Hour
)

// Runner executes one scrape run. The coordinator satisfies it.
type Runner interface {
	Validate(cfg coordinator.RunConfig) error
	Run(ctx context.Context, cfg coordinator.RunConfig) (*models.RunSummary, error)
}

// TaskManager defines the interface for managing background runs
type TaskManager interface {
	// Start starts the task manager
	Start(ctx context.Context) error

	// Stop stops the task manager gracefully
	Stop(ctx context.Context) error

	// SubmitRunTask queues a scrape run for background processing
	SubmitRunTask(ctx context.Context, processID string, cfg coordinator.RunConfig) error

	// GetTaskResult retrieves the result of a run by process ID
	GetTaskResult(ctx context.Context, processID string) (*TaskResult, error)

	// GetTaskStatus retrieves the status of a run by process ID
	GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error)

	// ListTasks lists known runs, newest first
	ListTasks(ctx context.Context) ([]*TaskResult, error)

	// IsHealthy checks if the task manager is healthy
	IsHealthy() bool
}

// TaskManagerImpl implements TaskManager with a single worker. Runs share one
// browser profile and one record store, so they execute strictly in order.
type TaskManagerImpl struct {
	runner          Runner
	store           TaskStore
	logger          *TaskCompletionLogger
	appLogger       logging.Logger
	taskTimeout     time.Duration
	cleanupInterval time.Duration
	maxTaskAge      time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	running         bool
	taskChan        chan *TaskExecution
}

// TaskExecution represents a queued run
type TaskExecution struct {
	ProcessID string
	Type      TaskType
	Config    coordinator.RunConfig
}

// NewTaskManager creates a task manager backed by the given store
func NewTaskManager(cfg *config.Config, runner Runner, store TaskStore, logger logging.Logger) *TaskManagerImpl {
	appLogger := logging.ForComponent(logger, "task_manager")
	if store == nil {
		store = NewInMemoryTaskStore()
	}

	tm := &TaskManagerImpl{
		runner:          runner,
		store:           store,
		logger:          NewTaskCompletionLogger(logger),
		appLogger:       appLogger,
		taskTimeout:     DefaultTaskTimeout,
		cleanupInterval: DefaultCleanupInterval,
		maxTaskAge:      DefaultMaxTaskAge,
		taskChan:        make(chan *TaskExecution, DefaultMaxQueueSize),
	}

	if cfg != nil {
		if cfg.BackgroundTasks.TaskTimeout > 0 {
			tm.taskTimeout = cfg.BackgroundTasks.TaskTimeout
		}
		if cfg.BackgroundTasks.CleanupInterval > 0 {
			tm.cleanupInterval = cfg.BackgroundTasks.CleanupInterval
		}
		if cfg.BackgroundTasks.MaxTaskAge > 0 {
			tm.maxTaskAge = cfg.BackgroundTasks.MaxTaskAge
		}
	}

	appLogger.Info("Task manager configuration initialized", map[string]interface{}{
		"max_queue_size":   DefaultMaxQueueSize,
		"task_timeout":     tm.taskTimeout.String(),
		"cleanup_interval": tm.cleanupInterval.String(),
		"max_task_age":     tm.maxTaskAge.String(),
	})

	return tm
}

// Start starts the worker and the cleanup routine
func (tm *TaskManagerImpl) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.running {
		return fmt.Errorf("task manager already running")
	}

	tm.ctx, tm.cancel = context.WithCancel(ctx)
	tm.running = true

	tm.wg.Add(2)
	go tm.worker()
	go tm.cleanupRoutine()

	tm.appLogger.Info("Task manager started")
	return nil
}

// Stop cancels the run in flight and waits for the worker to exit
func (tm *TaskManagerImpl) Stop(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.running {
		return nil
	}

	tm.appLogger.Info("Stopping task manager...")

	tm.cancel()

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.appLogger.Info("Task manager stopped gracefully")
	case <-ctx.Done():
		tm.appLogger.Warn("Task manager shutdown timed out")
	}

	tm.running = false
	return nil
}

// SubmitRunTask validates the run, records it as accepted and queues it
func (tm *TaskManagerImpl) SubmitRunTask(ctx context.Context, processID string, cfg coordinator.RunConfig) error {
	if !tm.IsHealthy() {
		return ErrNotRunning
	}
	if err := tm.runner.Validate(cfg); err != nil {
		return err
	}

	cfg.RunID = processID
	result := &TaskResult{
		ProcessID: processID,
		Type:      TaskTypeScrape,
		Status:    TaskStatusAccepted,
		CreatedAt: time.Now(),
		Metadata: map[string]interface{}{
			"sources":  cfg.Sources,
			"keywords": cfg.Keywords,
			"mode":     string(cfg.Options().Mode),
			"maxPages": cfg.MaxPages,
		},
	}

	if err := tm.store.Store(ctx, result); err != nil {
		return fmt.Errorf("failed to store task result: %w", err)
	}

	execution := &TaskExecution{
		ProcessID: processID,
		Type:      TaskTypeScrape,
		Config:    cfg,
	}

	select {
	case tm.taskChan <- execution:
		tm.logger.LogTaskAccepted(processID, TaskTypeScrape)
		return nil
	case <-ctx.Done():
		tm.discard(processID)
		return ctx.Err()
	default:
		tm.discard(processID)
		return ErrQueueFull
	}
}

func (tm *TaskManagerImpl) discard(processID string) {
	if err := tm.store.Delete(context.Background(), processID); err != nil {
		tm.appLogger.Warn("Failed to discard rejected task", map[string]interface{}{
			"process_id": processID,
			"error":      err.Error(),
		})
	}
}

// GetTaskResult retrieves the result of a run by process ID
func (tm *TaskManagerImpl) GetTaskResult(ctx context.Context, processID string) (*TaskResult, error) {
	return tm.store.Get(ctx, processID)
}

// GetTaskStatus retrieves the status of a run by process ID
func (tm *TaskManagerImpl) GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error) {
	result, err := tm.store.Get(ctx, processID)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

// ListTasks lists known runs, newest first
func (tm *TaskManagerImpl) ListTasks(ctx context.Context) ([]*TaskResult, error) {
	return tm.store.List(ctx)
}

// IsHealthy checks if the task manager is healthy
func (tm *TaskManagerImpl) IsHealthy() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.running && tm.ctx.Err() == nil
}

func (tm *TaskManagerImpl) worker() {
	defer tm.wg.Done()

	for {
		select {
		case <-tm.ctx.Done():
			tm.drain()
			return
		case task := <-tm.taskChan:
			tm.processTask(task)
		}
	}
}

// drain marks runs that never started as failed so pollers see a terminal state
func (tm *TaskManagerImpl) drain() {
	for {
		select {
		case task := <-tm.taskChan:
			tm.finish(task, time.Now(), nil, fmt.Errorf("task manager stopped before the run started"))
		default:
			return
		}
	}
}

func (tm *TaskManagerImpl) processTask(task *TaskExecution) {
	startTime := time.Now()

	if err := tm.updateTaskStatus(task.ProcessID, TaskStatusProcessing); err != nil {
		tm.appLogger.Error("Failed to update task status to processing", map[string]interface{}{
			"process_id": task.ProcessID,
			"error":      err.Error(),
		})
	}
	tm.logger.LogTaskStart(task.ProcessID, task.Type)

	runCtx, cancel := context.WithTimeout(tm.ctx, tm.taskTimeout)
	defer cancel()

	summary, err := tm.runner.Run(runCtx, task.Config)
	tm.finish(task, startTime, summary, err)
}

func (tm *TaskManagerImpl) finish(task *TaskExecution, startTime time.Time, summary *models.RunSummary, runErr error) {
	processingTime := time.Since(startTime)
	completedAt := time.Now()

	result, err := tm.store.Get(context.Background(), task.ProcessID)
	if err != nil {
		tm.appLogger.Error("Failed to retrieve existing task result", map[string]interface{}{
			"process_id": task.ProcessID,
			"error":      err.Error(),
		})
		result = &TaskResult{
			ProcessID: task.ProcessID,
			Type:      task.Type,
			CreatedAt: startTime,
		}
	}

	result.Data = summary
	result.ProcessingTime = &processingTime
	result.CompletedAt = &completedAt

	if runErr != nil {
		result.Status = TaskStatusFailure
		result.Error = runErr.Error()
		tm.logger.LogTaskError(task.ProcessID, task.Type, runErr)
	} else {
		result.Status = TaskStatusSuccess
		tm.logger.LogTaskSuccess(task.ProcessID, task.Type, processingTime)
	}

	if err := tm.store.Update(context.Background(), result); err != nil {
		tm.appLogger.Error("Failed to store task result", map[string]interface{}{
			"process_id": task.ProcessID,
			"error":      err.Error(),
		})
	}

	if err := tm.logger.LogTaskCompletion(result); err != nil {
		tm.appLogger.Error("Failed to log task completion", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (tm *TaskManagerImpl) updateTaskStatus(processID string, status TaskStatus) error {
	result, err := tm.store.Get(context.Background(), processID)
	if err != nil {
		return err
	}

	result.Status = status
	return tm.store.Update(context.Background(), result)
}

// cleanupRoutine periodically drops old run results
func (tm *TaskManagerImpl) cleanupRoutine() {
	defer tm.wg.Done()

	ticker := time.NewTicker(tm.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case <-ticker.C:
			if err := tm.store.Cleanup(context.Background(), tm.maxTaskAge); err != nil {
				tm.appLogger.Error("Failed to cleanup old task results", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
