// Package app assembles the long-lived collaborators shared by the server and the CLI.
package app

import (
	"context"
	"fmt"

	"letraz-harvester/internal/config"
	"letraz-harvester/internal/coordinator"
	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/reconcile"
	"letraz-harvester/internal/scraper/crawler"
	"letraz-harvester/internal/scraper/engines/headed"
	"letraz-harvester/internal/scraper/ratelimit"
	"letraz-harvester/internal/scraper/sites"
	"letraz-harvester/internal/store"
)

// App holds the wired components of one process
type App struct {
	Config      *config.Config
	Logger      logging.Logger
	Store       store.Store
	Browser     *headed.BrowserManager
	Limiter     *ratelimit.Limiter
	Registry    *sites.Registry
	Coordinator *coordinator.Coordinator
}

// New opens the store and builds the crawl pipeline. The browser is launched
// lazily on the first run.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	jobs, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	browser := headed.NewBrowserManager(cfg, logger)
	limiter := ratelimit.New(cfg, logger)
	registry := sites.NewRegistry(crawler.SiteTiming(cfg))

	c := crawler.New(crawler.TimingFromConfig(cfg),
		crawler.WithHostLimiter(limiter),
		crawler.WithLogger(logger),
	)
	coord := coordinator.New(registry, browser, c, reconcile.New(jobs, logger),
		coordinator.WithRunLock(cfg.RunLockPath()),
		coordinator.WithTiming(crawler.SiteTiming(cfg)),
		coordinator.WithLogger(logger),
	)

	logger.Info("Harvester components initialized", map[string]interface{}{
		"store_driver": cfg.Store.Driver,
		"sources":      registry.Names(),
		"headless":     cfg.Scraper.HeadlessMode,
	})

	return &App{
		Config:      cfg,
		Logger:      logger,
		Store:       jobs,
		Browser:     browser,
		Limiter:     limiter,
		Registry:    registry,
		Coordinator: coord,
	}, nil
}

// BrowserCheck reports an unhealthy browser for readiness probes
func (a *App) BrowserCheck(ctx context.Context) error {
	if !a.Browser.IsHealthy() {
		return fmt.Errorf("browser is not responding")
	}
	return nil
}

// Close releases the browser, the limiter and the store
func (a *App) Close() {
	a.Browser.Cleanup()
	a.Limiter.Stop()
	if err := a.Store.Close(); err != nil {
		a.Logger.Error("Failed to close store", map[string]interface{}{"error": err.Error()})
	}
}
