package background

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"letraz-harvester/internal/config"
	"letraz-harvester/internal/coordinator"
	"letraz-harvester/internal/logging"
	"letraz-harvester/pkg/models"
)

type fakeRunner struct {
	mu          sync.Mutex
	validateErr error
	runErr      error
	block       chan struct{}
	started     chan string
	configs     []coordinator.RunConfig
}

func (r *fakeRunner) Validate(cfg coordinator.RunConfig) error {
	return r.validateErr
}

func (r *fakeRunner) Run(ctx context.Context, cfg coordinator.RunConfig) (*models.RunSummary, error) {
	r.mu.Lock()
	r.configs = append(r.configs, cfg)
	r.mu.Unlock()

	if r.started != nil {
		r.started <- cfg.RunID
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.runErr != nil {
		return nil, r.runErr
	}
	return &models.RunSummary{
		RunID:          cfg.RunID,
		Results:        []models.SourceResult{{Source: cfg.Sources[0], JobsAdded: 2}},
		TotalJobsAdded: 2,
	}, nil
}

func newTestManager(t *testing.T, runner Runner) *TaskManagerImpl {
	t.Helper()
	tm := NewTaskManager(config.Default(), runner, NewInMemoryTaskStore(), logging.Nop())
	tm.logger.out = &discardWriter{}
	require.NoError(t, tm.Start(context.Background()))
	t.Cleanup(func() { tm.Stop(context.Background()) })
	return tm
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func runConfig() coordinator.RunConfig {
	return coordinator.RunConfig{
		Sources:  []string{"naukri"},
		Keywords: []string{"golang"},
		MaxPages: 1,
	}
}

func waitForStatus(t *testing.T, tm *TaskManagerImpl, processID string, want TaskStatus) *TaskResult {
	t.Helper()
	var result *TaskResult
	require.Eventually(t, func() bool {
		r, err := tm.GetTaskResult(context.Background(), processID)
		if err != nil {
			return false
		}
		result = r
		return r.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return result
}

func TestSubmitRunTaskSucceeds(t *testing.T) {
	runner := &fakeRunner{}
	tm := newTestManager(t, runner)

	require.NoError(t, tm.SubmitRunTask(context.Background(), "run-1", runConfig()))

	result := waitForStatus(t, tm, "run-1", TaskStatusSuccess)
	require.NotNil(t, result.Data)
	assert.Equal(t, "run-1", result.Data.RunID)
	assert.Equal(t, 2, result.Data.TotalJobsAdded)
	assert.NotNil(t, result.CompletedAt)
	assert.NotNil(t, result.ProcessingTime)
	assert.Equal(t, []string{"naukri"}, result.Metadata["sources"])

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.configs, 1)
	assert.Equal(t, "run-1", runner.configs[0].RunID)
}

func TestSubmitRunTaskRecordsFailure(t *testing.T) {
	tm := newTestManager(t, &fakeRunner{runErr: errors.New("browser crashed")})

	require.NoError(t, tm.SubmitRunTask(context.Background(), "run-2", runConfig()))

	result := waitForStatus(t, tm, "run-2", TaskStatusFailure)
	assert.Equal(t, "browser crashed", result.Error)
	assert.Nil(t, result.Data)
}

func TestSubmitRunTaskRejectsInvalidConfig(t *testing.T) {
	tm := newTestManager(t, &fakeRunner{validateErr: errors.New("No sources specified")})

	err := tm.SubmitRunTask(context.Background(), "run-3", coordinator.RunConfig{})
	require.EqualError(t, err, "No sources specified")

	_, err = tm.GetTaskResult(context.Background(), "run-3")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSubmitRunTaskRequiresStart(t *testing.T) {
	tm := NewTaskManager(nil, &fakeRunner{}, nil, logging.Nop())

	err := tm.SubmitRunTask(context.Background(), "run-4", runConfig())
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestRunsExecuteInOrderAndQueueIsBounded(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), started: make(chan string, 4)}
	tm := NewTaskManager(nil, runner, nil, logging.Nop())
	tm.logger.out = discardWriter{}
	tm.taskChan = make(chan *TaskExecution, 1)
	require.NoError(t, tm.Start(context.Background()))
	defer tm.Stop(context.Background())

	require.NoError(t, tm.SubmitRunTask(context.Background(), "first", runConfig()))
	assert.Equal(t, "first", <-runner.started)

	require.NoError(t, tm.SubmitRunTask(context.Background(), "second", runConfig()))
	err := tm.SubmitRunTask(context.Background(), "third", runConfig())
	assert.ErrorIs(t, err, ErrQueueFull)

	_, err = tm.GetTaskResult(context.Background(), "third")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	status, err := tm.GetTaskStatus(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusAccepted, status)

	close(runner.block)
	assert.Equal(t, "second", <-runner.started)
	waitForStatus(t, tm, "second", TaskStatusSuccess)

	tasks, err := tm.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestStopCancelsRunInFlight(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), started: make(chan string, 1)}
	tm := NewTaskManager(nil, runner, nil, logging.Nop())
	tm.logger.out = discardWriter{}
	require.NoError(t, tm.Start(context.Background()))

	require.NoError(t, tm.SubmitRunTask(context.Background(), "long", runConfig()))
	<-runner.started

	require.NoError(t, tm.Stop(context.Background()))
	assert.False(t, tm.IsHealthy())

	result, err := tm.GetTaskResult(context.Background(), "long")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusFailure, result.Status)
	assert.Equal(t, context.Canceled.Error(), result.Error)
}

func TestCreateTaskCompletionLog(t *testing.T) {
	elapsed := 3 * time.Second
	entry := CreateTaskCompletionLog(&TaskResult{
		ProcessID:      "run-5",
		Type:           TaskTypeScrape,
		Status:         TaskStatusSuccess,
		ProcessingTime: &elapsed,
		Data: &models.RunSummary{
			TotalJobsAdded: 4,
			LoginRequired:  true,
			Results:        []models.SourceResult{{Source: "naukri"}, {Source: "linkedin"}},
		},
	})

	assert.Equal(t, "SUCCESS", entry.Status)
	assert.Equal(t, "scrape", entry.Operation)
	assert.Equal(t, "3s", entry.ProcessingTime)
	assert.Equal(t, 4, entry.JobsAdded)
	assert.True(t, entry.LoginRequired)
	assert.Equal(t, []string{"naukri", "linkedin"}, entry.Sources)
}
