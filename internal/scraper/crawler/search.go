package crawler

import (
	"context"
	"fmt"

	"letraz-harvester/internal/scraper"
	"letraz-harvester/pkg/models"
)

// ScrapeSearch walks result pages 1..opts.MaxPages. Page faults are recorded and the
// walk moves on; a missing result list or the absence of a next page ends it.
func (c *Crawler) ScrapeSearch(ctx context.Context, page scraper.Surface, adapter scraper.Adapter, opts models.ScrapeOptions) models.Outcome {
	var out models.Outcome
	maxPages := opts.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	for n := 1; n <= maxPages; n++ {
		jobs, more, err := c.searchPage(ctx, page, adapter, opts, n, &out)
		out.Jobs = append(out.Jobs, jobs...)
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("Failed to scrape page %d: %v", n, err))
			c.logger.Warn("search page failed", map[string]interface{}{
				"source": adapter.Name(),
				"page":   n,
				"error":  err.Error(),
			})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if !more {
			break
		}
	}

	c.logger.Info("search crawl finished", map[string]interface{}{
		"source": adapter.Name(),
		"jobs":   len(out.Jobs),
		"errors": len(out.Errors),
	})
	return normalize(out)
}

// searchPage scrapes one result page. more is false when pagination should stop.
func (c *Crawler) searchPage(ctx context.Context, page scraper.Surface, adapter scraper.Adapter, opts models.ScrapeOptions, n int, out *models.Outcome) ([]models.Listing, bool, error) {
	url := adapter.BuildSearchURL(opts.Keywords, n)
	c.logger.Debug("loading search page", map[string]interface{}{
		"source": adapter.Name(),
		"page":   n,
		"url":    url,
	})

	if err := c.navigate(ctx, page, url); err != nil {
		return nil, true, err
	}
	if err := scraper.Sleep(ctx, c.timing.Settle); err != nil {
		return nil, false, err
	}
	if !page.WaitForSelector(ctx, adapter.ListSelector(), c.timing.ListTimeout) {
		c.logger.Info("no results list, ending pagination", map[string]interface{}{
			"source": adapter.Name(),
			"page":   n,
		})
		return nil, false, nil
	}

	// cards are read once and parsed from the same snapshot
	snapshot := scraper.NewSnapshot(page)
	cards, err := snapshot.ExtractAll(ctx, adapter.ListSelector())
	if err != nil {
		return nil, true, err
	}

	jobs := make([]models.Listing, 0, len(cards))
	for i := range cards {
		listing, err := adapter.ParseSummary(ctx, snapshot, i)
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("Failed to parse job card %d: %v", i+1, err))
			continue
		}
		if listing, ok := accept(listing, adapter, adapter.Name()); ok {
			jobs = append(jobs, listing)
		}
	}

	if opts.FetchFullDetails && len(jobs) > 0 {
		jobs = c.enrich(ctx, page, adapter, jobs, "job", out)

		if err := c.navigate(ctx, page, url); err == nil {
			_ = scraper.Sleep(ctx, c.timing.Settle)
			page.WaitForSelector(ctx, adapter.ListSelector(), c.timing.ListTimeout)
		}
	}

	if n < opts.MaxPages {
		if !scraper.HasNextPage(ctx, adapter, page) {
			return jobs, false, nil
		}
		if err := scraper.Sleep(ctx, scraper.Jitter(c.timing.PageDelayMin, c.timing.PageDelayMax)); err != nil {
			return jobs, false, err
		}
	}
	return jobs, true, nil
}

// enrich fetches each listing's detail page and merges it over the summary.
// A failed fetch keeps the summary. kind names the listing in error text.
func (c *Crawler) enrich(ctx context.Context, page scraper.Surface, adapter scraper.Adapter, jobs []models.Listing, kind string, out *models.Outcome) []models.Listing {
	for i := range jobs {
		if ctx.Err() != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("Failed to fetch details for %s %d: %v", kind, i+1, ctx.Err()))
			break
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, jobs[i].URL); err != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("Failed to fetch details for %s %d: %v", kind, i+1, err))
				continue
			}
		}

		detail, err := scraper.ParseDetail(ctx, adapter, page, jobs[i].URL)
		if err != nil {
			if c.limiter != nil {
				c.limiter.RecordFailure(jobs[i].URL, err)
			}
			out.Errors = append(out.Errors, fmt.Sprintf("Failed to fetch details for %s %d: %v", kind, i+1, err))
		} else {
			if c.limiter != nil {
				c.limiter.RecordSuccess(jobs[i].URL)
			}
			jobs[i] = Merge(jobs[i], detail)
		}

		if i < len(jobs)-1 {
			_ = scraper.Sleep(ctx, scraper.Jitter(c.timing.DetailDelayMin, c.timing.DetailDelayMax))
		}
	}
	return jobs
}
