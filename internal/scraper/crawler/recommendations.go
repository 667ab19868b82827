package crawler

import (
	"context"
	"fmt"

	"letraz-harvester/internal/scraper"
	"letraz-harvester/pkg/models"
)

// ScrapeRecommendations reads the adapter's personalised feed. The feed is loaded once
// and scrolled until its height stops growing, bounded by twice opts.MaxPages cycles.
func (c *Crawler) ScrapeRecommendations(ctx context.Context, page scraper.Surface, adapter scraper.Adapter, opts models.ScrapeOptions) models.Outcome {
	feedURL := scraper.RecommendationsURL(adapter)
	if feedURL == "" {
		return normalize(models.Outcome{Errors: []string{"This scraper does not support recommendations"}})
	}

	out, err := c.recommendations(ctx, page, adapter, opts, feedURL)
	if err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("Failed to scrape recommendations: %v", err))
		c.logger.Warn("recommendation crawl failed", map[string]interface{}{
			"source": adapter.Name(),
			"error":  err.Error(),
		})
	}
	return normalize(out)
}

func (c *Crawler) recommendations(ctx context.Context, page scraper.Surface, adapter scraper.Adapter, opts models.ScrapeOptions, feedURL string) (models.Outcome, error) {
	var out models.Outcome

	if err := c.navigate(ctx, page, feedURL); err != nil {
		return out, err
	}
	if err := scraper.Sleep(ctx, c.timing.RecommendationSettle); err != nil {
		return out, err
	}

	if !scraper.IsLoggedIn(ctx, adapter, page) {
		c.logger.Info("not logged in, skipping recommendations", map[string]interface{}{
			"source": adapter.Name(),
		})
		out.Warnings = append(out.Warnings, "Not logged in - cannot access recommendations")
		out.LoginRequired = true
		return out, nil
	}

	selector := scraper.RecommendationSelector(adapter)
	if !page.WaitForSelector(ctx, selector, c.timing.ListTimeout) {
		out.Warnings = append(out.Warnings, "No recommendations found")
		return out, nil
	}

	if err := c.scrollToLoad(ctx, page, opts.MaxPages*2); err != nil {
		return out, err
	}

	snapshot := scraper.NewSnapshot(page)
	cards, err := snapshot.ExtractAll(ctx, selector)
	if err != nil {
		return out, err
	}

	source := adapter.Name() + "-recommended"
	jobs := make([]models.Listing, 0, len(cards))
	for i := range cards {
		listing, err := scraper.ParseRecommendationCard(ctx, adapter, snapshot, i)
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("Failed to parse recommendation card %d: %v", i+1, err))
			continue
		}
		if listing, ok := accept(listing, adapter, source); ok {
			jobs = append(jobs, listing)
		}
	}

	if opts.FetchFullDetails && len(jobs) > 0 {
		jobs = c.enrich(ctx, page, adapter, jobs, "recommendation", &out)
	}

	out.Jobs = jobs
	c.logger.Info("recommendation crawl finished", map[string]interface{}{
		"source": adapter.Name(),
		"jobs":   len(jobs),
	})
	return out, nil
}

// scrollToLoad scrolls until the page height stops changing or cycles run out
func (c *Crawler) scrollToLoad(ctx context.Context, page scraper.Surface, cycles int) error {
	for i := 0; i < cycles; i++ {
		before, err := page.CurrentHeight(ctx)
		if err != nil {
			return err
		}
		if err := page.ScrollToBottom(ctx); err != nil {
			return err
		}
		if err := scraper.Sleep(ctx, c.timing.ScrollWait); err != nil {
			return err
		}
		after, err := page.CurrentHeight(ctx)
		if err != nil {
			return err
		}
		if after == before {
			return nil
		}
	}
	return nil
}
