package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"letraz-harvester/internal/api/handlers"
	"letraz-harvester/internal/background"
	"letraz-harvester/internal/config"
	"letraz-harvester/internal/coordinator"
	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/store"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

var knownSources = []string{"linkedin", "naukri"}

type fakeRuns struct {
	mu      sync.Mutex
	configs []coordinator.RunConfig
	runErr  error
}

func (f *fakeRuns) Validate(cfg coordinator.RunConfig) error {
	if len(cfg.Sources) == 0 {
		return utils.NewConfigurationError("No sources specified")
	}
	for _, s := range cfg.Sources {
		if !utils.Contains(knownSources, s) {
			return utils.NewConfigurationError("Unknown scraper: " + s)
		}
	}
	if cfg.Mode.NeedsKeywords() && len(cfg.Keywords) == 0 {
		return utils.NewConfigurationError("No keywords specified for search mode")
	}
	return nil
}

func (f *fakeRuns) Run(ctx context.Context, cfg coordinator.RunConfig) (*models.RunSummary, error) {
	f.mu.Lock()
	f.configs = append(f.configs, cfg)
	f.mu.Unlock()

	if f.runErr != nil {
		return nil, f.runErr
	}
	summary := &models.RunSummary{RunID: cfg.RunID, Warnings: []string{}}
	for _, s := range cfg.Sources {
		summary.Results = append(summary.Results, models.SourceResult{Source: s, JobsFound: 2, JobsAdded: 1})
		summary.TotalJobsAdded++
	}
	return summary, nil
}

func (f *fakeRuns) CheckLogin(ctx context.Context, site string) (models.LoginStatus, error) {
	if !utils.Contains(knownSources, site) {
		return models.LoginStatus{}, utils.NewConfigurationError("Invalid site: " + site)
	}
	return models.LoginStatus{IsLoggedIn: site == "linkedin", Username: "Priya"}, nil
}

func (f *fakeRuns) CheckAllLogins(ctx context.Context) (map[string]models.LoginStatus, error) {
	return map[string]models.LoginStatus{
		"linkedin": {IsLoggedIn: true, Username: "Priya"},
		"naukri":   {},
	}, nil
}

func (f *fakeRuns) lastConfig(t *testing.T) coordinator.RunConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.configs)
	return f.configs[len(f.configs)-1]
}

type fixture struct {
	echo  *echo.Echo
	runs  *fakeRuns
	store store.Store
}

func newFixture(t *testing.T, checks map[string]handlers.Check) *fixture {
	t.Helper()
	cfg := config.Default()

	jobs, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jobs.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { jobs.Close() })

	runs := &fakeRuns{}
	tasks := background.NewTaskManager(cfg, runs, nil, logging.Nop())
	require.NoError(t, tasks.Start(context.Background()))
	t.Cleanup(func() { tasks.Stop(context.Background()) })

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(new(strings.Builder))
	SetupRoutes(e, Dependencies{
		Config:  cfg,
		Runs:    runs,
		Store:   jobs,
		Tasks:   tasks,
		Sources: knownSources,
		Checks:  checks,
	})

	return &fixture{echo: e, runs: runs, store: jobs}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, map[string]handlers.Check{
		"store": func(ctx context.Context) error { return nil },
	})

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessReportsFailingCheck(t *testing.T) {
	f := newFixture(t, map[string]handlers.Check{
		"browser": func(ctx context.Context) error { return errors.New("browser not running") },
	})

	rec := f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp models.HealthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "browser not running", resp.Checks["browser"])
}

func TestScrapeUsesSavedSettings(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/settings", `{"keywords":["golang"],"pages_to_scrape":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/scrape", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.ScrapeResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.TotalJobsAdded)
	assert.Len(t, resp.Results, 2)

	cfg := f.runs.lastConfig(t)
	assert.Equal(t, []string{"naukri", "linkedin"}, cfg.Sources)
	assert.Equal(t, []string{"golang"}, cfg.Keywords)
	assert.Equal(t, 2, cfg.MaxPages)
	assert.Equal(t, models.ScrapeModeSearch, cfg.Mode)
	assert.True(t, cfg.FetchFullDetails)
	assert.Equal(t, resp.RequestID, cfg.RunID)
}

func TestScrapeRejectsBadRequests(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown source", `{"sources":["monster"],"keywords":["go"]}`, "Unknown scraper: monster"},
		{"missing keywords", `{"sources":["naukri"]}`, "No keywords specified for search mode"},
		{"invalid mode", `{"mode":"sideways","keywords":["go"]}`, "Validation failed"},
		{"pages out of range", `{"maxPages":11,"keywords":["go"]}`, "Validation failed"},
		{"malformed body", `{"sources":`, "Invalid request format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/scrape", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp models.ErrorResponse
			decode(t, rec, &resp)
			assert.Contains(t, resp.Message, tt.want)
		})
	}
}

func TestScrapeRunFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.runs.runErr = utils.NewRunInProgressError("another run holds the lock")

	rec := f.do(t, http.MethodPost, "/api/v1/scrape", `{"keywords":["go"],"sources":["naukri"]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAsyncScrapeLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/scrape", `{"async":true,"keywords":["go"],"sources":["linkedin"],"mode":"both"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted models.AsyncScrapeResponse
	decode(t, rec, &accepted)
	require.NotEmpty(t, accepted.ProcessID)
	assert.Equal(t, models.AsyncStatusAccepted, accepted.Status)

	var status models.AsyncTaskStatusResponse
	require.Eventually(t, func() bool {
		rec := f.do(t, http.MethodGet, "/api/v1/scrape/"+accepted.ProcessID, "")
		if rec.Code != http.StatusOK {
			return false
		}
		status = models.AsyncTaskStatusResponse{}
		decode(t, rec, &status)
		return status.IsCompleted()
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.AsyncStatusSuccess, status.Status)
	require.NotNil(t, status.Data)
	assert.Equal(t, 1, status.Data.TotalJobsAdded)
	assert.Equal(t, accepted.ProcessID, f.runs.lastConfig(t).RunID)

	rec = f.do(t, http.MethodGet, "/api/v1/scrape/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobsCRUD(t *testing.T) {
	f := newFixture(t, nil)
	body := `{"url":"https://www.naukri.com/job-listings-go-developer-123","title":"Go Developer","company":"Acme"}`

	rec := f.do(t, http.MethodPost, "/api/v1/jobs", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.JobRecord
	decode(t, rec, &created)
	assert.Equal(t, "manual", created.Source)
	assert.Equal(t, models.JobStatusNew, created.Status)

	rec = f.do(t, http.MethodPost, "/api/v1/jobs", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/jobs", `{"url":"not a url","title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/jobs?search=acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.JobListResponse
	decode(t, rec, &list)
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, 1, list.Pagination.Total)
	assert.Equal(t, 1, list.Pagination.TotalPages)
	assert.Equal(t, 20, list.Pagination.PerPage)
	assert.Equal(t, 1, list.Stats.Total)

	rec = f.do(t, http.MethodGet, "/api/v1/jobs?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/api/v1/jobs/%d", created.ID)
	rec = f.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPatch, path, `{"status":"applied","match_score":80,"notes":"referral"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.JobRecord
	decode(t, rec, &updated)
	assert.Equal(t, models.JobStatusApplied, updated.Status)
	require.NotNil(t, updated.MatchScore)
	assert.Equal(t, 80, *updated.MatchScore)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "referral", *updated.Notes)

	rec = f.do(t, http.MethodPatch, path, `{"status":"hired"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/jobs/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.JobStats
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.ByStatus["applied"])
	assert.Equal(t, 1, stats.BySource["manual"])

	rec = f.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/jobs/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var settings models.Settings
	decode(t, rec, &settings)
	assert.Equal(t, 3, settings.PagesToScrape)
	assert.Equal(t, models.ScrapeModeSearch, settings.ScrapeMode)

	rec = f.do(t, http.MethodPost, "/api/v1/settings", `{"enabled_sources":["monster"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/settings", `{"scrape_mode":"both","enabled_sources":["linkedin"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/settings", "")
	settings = models.Settings{}
	decode(t, rec, &settings)
	assert.Equal(t, models.ScrapeModeBoth, settings.ScrapeMode)
	assert.Equal(t, []string{"linkedin"}, settings.EnabledSources)
	assert.Equal(t, 3, settings.PagesToScrape)
}

func TestAuthStatus(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/auth/status?site=linkedin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AuthStatusResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Sites["linkedin"].IsLoggedIn)
	assert.Equal(t, "Priya", resp.Sites["linkedin"].Username)

	rec = f.do(t, http.MethodGet, "/api/v1/auth/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = models.AuthStatusResponse{}
	decode(t, rec, &resp)
	assert.Len(t, resp.Sites, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/auth/status?site=monster", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonitoringEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/hosts/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hosts struct {
		Success bool              `json:"success"`
		Hosts   []json.RawMessage `json:"hosts"`
	}
	decode(t, rec, &hosts)
	assert.True(t, hosts.Success)
	assert.Empty(t, hosts.Hosts)

	rec = f.do(t, http.MethodPost, "/api/v1/scrape", `{"async":true,"keywords":["go"],"sources":["naukri"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/scrape", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs struct {
		Runs    []models.AsyncTaskStatusResponse `json:"runs"`
		Healthy bool                             `json:"healthy"`
	}
	decode(t, rec, &runs)
	assert.True(t, runs.Healthy)
	assert.Len(t, runs.Runs, 1)
}
