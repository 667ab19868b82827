// Package crawler drives a site adapter over a page: paginated search, the
// scrolling recommendation feed, detail enrichment and the mode dispatch between them.
package crawler

import (
	"context"
	"fmt"
	"time"

	"letraz-harvester/internal/config"
	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/scraper"
	"letraz-harvester/pkg/models"
)

// Timing is every wait the crawl loops perform
type Timing struct {
	NavigationTimeout    time.Duration
	Settle               time.Duration
	ListTimeout          time.Duration
	RecommendationSettle time.Duration
	ScrollWait           time.Duration
	DetailDelayMin       time.Duration
	DetailDelayMax       time.Duration
	PageDelayMin         time.Duration
	PageDelayMax         time.Duration
}

// TimingFromConfig reads crawl timings from the scraper configuration
func TimingFromConfig(cfg *config.Config) Timing {
	s := cfg.Scraper
	return Timing{
		NavigationTimeout:    s.NavigationTimeout,
		Settle:               s.SettleDelay,
		ListTimeout:          s.ListTimeout,
		RecommendationSettle: s.RecommendationSettle,
		ScrollWait:           s.ScrollWait,
		DetailDelayMin:       s.DetailDelayMin,
		DetailDelayMax:       s.DetailDelayMax,
		PageDelayMin:         s.PageDelayMin,
		PageDelayMax:         s.PageDelayMax,
	}
}

// HostLimiter gates navigation per host
type HostLimiter interface {
	Wait(ctx context.Context, rawURL string) error
	RecordSuccess(rawURL string)
	RecordFailure(rawURL string, err error)
}

// Crawler runs crawls. It holds configuration only and is safe to reuse across runs.
type Crawler struct {
	timing  Timing
	limiter HostLimiter
	logger  logging.Logger
}

// Option customises a Crawler
type Option func(*Crawler)

// WithHostLimiter gates every crawler-initiated navigation through l
func WithHostLimiter(l HostLimiter) Option {
	return func(c *Crawler) { c.limiter = l }
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

// New creates a crawler
func New(timing Timing, opts ...Option) *Crawler {
	c := &Crawler{timing: timing}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.GetGlobalLogger()
	}
	c.logger = logging.ForComponent(c.logger, "crawler")
	return c
}

// Scrape dispatches on opts.Mode. An empty mode means search.
func (c *Crawler) Scrape(ctx context.Context, page scraper.Surface, adapter scraper.Adapter, opts models.ScrapeOptions) models.Outcome {
	caps := adapter.Capabilities()

	switch opts.Mode {
	case models.ScrapeModeRecommendations:
		if !caps.SupportsRecommendations {
			return models.Outcome{
				Jobs:   []models.Listing{},
				Errors: []string{fmt.Sprintf("%s does not support recommendations", adapter.Name())},
			}
		}
		return c.ScrapeRecommendations(ctx, page, adapter, opts)

	case models.ScrapeModeBoth:
		var out models.Outcome
		if caps.SupportsRecommendations {
			rec := c.ScrapeRecommendations(ctx, page, adapter, opts)
			out.Jobs = append(out.Jobs, rec.Jobs...)
			out.Errors = append(out.Errors, rec.Errors...)
			out.Warnings = append(out.Warnings, rec.Warnings...)
			out.LoginRequired = rec.LoginRequired
			if rec.LoginRequired {
				out.Warnings = append(out.Warnings, "Skipping recommendations - login required")
			}
		}

		search := c.ScrapeSearch(ctx, page, adapter, opts)
		out.Jobs = append(out.Jobs, search.Jobs...)
		out.Errors = append(out.Errors, search.Errors...)
		out.Warnings = append(out.Warnings, search.Warnings...)
		return normalize(out)

	default:
		return c.ScrapeSearch(ctx, page, adapter, opts)
	}
}

// navigate applies the host limiter around a page load
func (c *Crawler) navigate(ctx context.Context, page scraper.Surface, url string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, url); err != nil {
			return err
		}
	}

	err := page.Navigate(ctx, url, c.timing.NavigationTimeout)
	if c.limiter != nil {
		if err != nil {
			c.limiter.RecordFailure(url, err)
		} else {
			c.limiter.RecordSuccess(url)
		}
	}
	return err
}

// normalize replaces nil slices so outcomes serialise as empty arrays
func normalize(out models.Outcome) models.Outcome {
	if out.Jobs == nil {
		out.Jobs = []models.Listing{}
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return out
}

// SiteTiming reads the waits adapters use when they drive the page themselves
func SiteTiming(cfg *config.Config) scraper.Timing {
	s := cfg.Scraper
	return scraper.Timing{
		NavigationTimeout: s.NavigationTimeout,
		Settle:            s.SettleDelay,
		SlowSettle:        s.RecommendationSettle,
		WaitTimeout:       s.ListTimeout,
	}
}
