// Package coordinator runs a scrape across sources: one browser page per run,
// sources in order, every outcome reconciled into the record store.
package coordinator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/logging/types"
	"letraz-harvester/internal/reconcile"
	"letraz-harvester/internal/scraper"
	"letraz-harvester/internal/scraper/crawler"
	"letraz-harvester/internal/scraper/sites"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

// RunConfig is the resolved configuration of one run
type RunConfig struct {
	RunID            string
	Sources          []string
	Keywords         []string
	MaxPages         int
	FetchFullDetails bool
	Mode             models.ScrapeMode
}

// Options returns the crawl options shared by every source of the run
func (c RunConfig) Options() models.ScrapeOptions {
	mode := c.Mode
	if mode == "" {
		mode = models.ScrapeModeSearch
	}
	return models.ScrapeOptions{
		Keywords:         c.Keywords,
		MaxPages:         c.MaxPages,
		FetchFullDetails: c.FetchFullDetails,
		Mode:             mode,
	}
}

// Coordinator owns the collaborators of a run. It carries no per-run state.
type Coordinator struct {
	registry   *sites.Registry
	surfaces   scraper.SurfaceProvider
	crawler    *crawler.Crawler
	reconciler *reconcile.Reconciler
	timing     scraper.Timing
	lockPath   string
	logger     types.Logger
}

// Option customises a Coordinator
type Option func(*Coordinator)

// WithRunLock serialises runs across processes through a lock file at path
func WithRunLock(path string) Option {
	return func(c *Coordinator) { c.lockPath = path }
}

// WithLogger sets the logger
func WithLogger(logger types.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithTiming sets the waits used by login probes
func WithTiming(timing scraper.Timing) Option {
	return func(c *Coordinator) { c.timing = timing }
}

// New creates a coordinator
func New(registry *sites.Registry, surfaces scraper.SurfaceProvider, c *crawler.Crawler, r *reconcile.Reconciler, opts ...Option) *Coordinator {
	co := &Coordinator{
		registry:   registry,
		surfaces:   surfaces,
		crawler:    c,
		reconciler: r,
		timing:     scraper.DefaultTiming(),
	}
	for _, opt := range opts {
		opt(co)
	}
	co.logger = logging.ForComponent(co.logger, "coordinator")
	return co
}

// Validate rejects a configuration that cannot run. Nothing is navigated.
func (c *Coordinator) Validate(cfg RunConfig) error {
	if len(cfg.Sources) == 0 {
		return utils.NewConfigurationError("No sources specified")
	}
	for _, source := range cfg.Sources {
		if _, ok := c.registry.Get(source); !ok {
			return utils.NewConfigurationError(fmt.Sprintf("Unknown scraper: %s", source))
		}
	}
	if cfg.Mode != "" && !cfg.Mode.IsValid() {
		return utils.NewConfigurationError(fmt.Sprintf("Invalid scrape mode: %s", cfg.Mode))
	}
	if cfg.Mode.NeedsKeywords() && len(cfg.Keywords) == 0 {
		return utils.NewConfigurationError("No keywords specified for search mode")
	}
	if cfg.MaxPages < 1 || cfg.MaxPages > 10 {
		return utils.NewConfigurationError(fmt.Sprintf("maxPages must be between 1 and 10, got %d", cfg.MaxPages))
	}
	return nil
}

// Run scrapes every source in order and reconciles the results.
// Recoverable faults are reported per source; the returned error covers configuration,
// the run lock and surface acquisition. On cancellation the partial summary is returned
// together with the context error.
func (c *Coordinator) Run(ctx context.Context, cfg RunConfig) (*models.RunSummary, error) {
	if err := c.Validate(cfg); err != nil {
		return nil, err
	}
	if cfg.RunID == "" {
		cfg.RunID = utils.GenerateRequestID()
	}
	logger := c.logger.WithField("run_id", cfg.RunID)

	unlock, err := c.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	surface, err := c.surfaces.NewSurface(ctx)
	if err != nil {
		return nil, utils.NewScrapingError(fmt.Sprintf("failed to acquire browser page: %v", err))
	}
	defer func() {
		if err := surface.Close(); err != nil {
			logger.Debug("Failed to close page", map[string]interface{}{"error": err.Error()})
		}
	}()

	opts := cfg.Options()
	summary := &models.RunSummary{
		RunID:     cfg.RunID,
		Results:   make([]models.SourceResult, 0, len(cfg.Sources)),
		Warnings:  []string{},
		StartedAt: time.Now().UTC(),
	}

	logger.Info("Starting scrape run", map[string]interface{}{
		"sources":       strings.Join(cfg.Sources, ","),
		"keywords":      strings.Join(cfg.Keywords, ","),
		"mode":          string(opts.Mode),
		"max_pages":     opts.MaxPages,
		"fetch_details": opts.FetchFullDetails,
	})

	for _, source := range cfg.Sources {
		if ctx.Err() != nil {
			break
		}
		adapter, _ := c.registry.Get(source)
		result := c.runSource(ctx, surface, adapter, opts, logger)

		summary.Results = append(summary.Results, result)
		summary.TotalJobsAdded += result.JobsAdded
		summary.LoginRequired = summary.LoginRequired || result.LoginRequired
		summary.Warnings = append(summary.Warnings, result.Warnings...)
	}
	summary.Duration = time.Since(summary.StartedAt)

	logger.Info("Scrape run finished", map[string]interface{}{
		"total_added":    summary.TotalJobsAdded,
		"login_required": summary.LoginRequired,
		"duration":       utils.FormatDuration(summary.Duration),
	})

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (c *Coordinator) runSource(ctx context.Context, surface scraper.Surface, adapter scraper.Adapter, opts models.ScrapeOptions, logger types.Logger) models.SourceResult {
	logger = logger.WithField("source", adapter.Name())
	logger.Info("Running source", map[string]interface{}{"mode": string(opts.Mode)})

	outcome := c.crawler.Scrape(ctx, surface, adapter, opts)
	counts, saveErrs := c.reconciler.ReconcileAll(ctx, outcome.Jobs)

	if counts.Updated > 0 {
		logger.Info("Updated existing jobs with new data", map[string]interface{}{"updated": counts.Updated})
	}

	errs := append(append([]string{}, outcome.Errors...), saveErrs...)
	result := models.SourceResult{
		Source:        adapter.Name(),
		JobsFound:     len(outcome.Jobs),
		JobsAdded:     counts.Added,
		JobsUpdated:   counts.Updated,
		JobsSkipped:   counts.Skipped,
		Errors:        errs,
		Warnings:      append([]string{}, outcome.Warnings...),
		LoginRequired: outcome.LoginRequired,
	}

	logger.Info("Source finished", map[string]interface{}{
		"found":   result.JobsFound,
		"added":   result.JobsAdded,
		"updated": result.JobsUpdated,
		"skipped": result.JobsSkipped,
		"errors":  len(result.Errors),
	})
	return result
}

// acquireLock takes the cross-process run lock when one is configured
func (c *Coordinator) acquireLock() (func(), error) {
	if c.lockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(c.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(c.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, utils.NewRunInProgressError(c.lockPath)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			c.logger.Warn("Failed to release run lock", map[string]interface{}{"error": err.Error()})
		}
	}, nil
}

// Sources lists the registered source names
func (c *Coordinator) Sources() []string {
	return c.registry.Names()
}
