package scraper

import (
	"context"
	"time"

	"letraz-harvester/pkg/models"
)

// Surface is a single navigable browser page.
// Implementations are not safe for concurrent use; a run drives one surface sequentially.
type Surface interface {
	// Navigate loads url and waits for the load event, failing after timeout
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitForSelector reports whether selector appeared before timeout.
	// Absence is not an error.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) bool

	// ExtractAll returns the outer HTML of every element matching selector, in document order
	ExtractAll(ctx context.Context, selector string) ([]string, error)

	// Evaluate runs a JavaScript function expression in the page and returns its JSON result
	Evaluate(ctx context.Context, js string) (interface{}, error)

	Click(ctx context.Context, selector string) error
	ScrollToBottom(ctx context.Context) error
	CurrentHeight(ctx context.Context) (float64, error)

	// HTML returns the full document HTML
	HTML(ctx context.Context) (string, error)
	CurrentURL() string
	Close() error
}

// SurfaceProvider hands out fresh surfaces, one per run
type SurfaceProvider interface {
	NewSurface(ctx context.Context) (Surface, error)
}

// Adapter is the per-site contract every source implements.
// Optional behaviour is expressed through the interfaces below; use the
// package-level helpers (ParseDetail, HasNextPage, ...) to get the defaults.
type Adapter interface {
	Name() string
	BaseURL() string
	BuildSearchURL(keywords []string, page int) string
	ListSelector() string
	ParseSummary(ctx context.Context, page Surface, index int) (models.Listing, error)
	Capabilities() models.Capabilities
}

// DetailParser is implemented by adapters that can read a posting's own page
type DetailParser interface {
	ParseDetail(ctx context.Context, page Surface, url string) (models.Listing, error)
}

// Paginator is implemented by adapters that can detect a following results page
type Paginator interface {
	HasNextPage(ctx context.Context, page Surface) bool
}

// LoginDetector is implemented by adapters that can tell whether the session is authenticated
type LoginDetector interface {
	IsLoggedIn(ctx context.Context, page Surface) bool
}

// UsernameReader extracts the signed-in user's display name
type UsernameReader interface {
	Username(ctx context.Context, page Surface) string
}

// RecommendationSource is implemented by adapters with a personalised feed
type RecommendationSource interface {
	RecommendationsURL() string
}

// RecommendationSelectorProvider overrides the container selector used on the feed
type RecommendationSelectorProvider interface {
	RecommendationSelector() string
}

// RecommendationCardParser overrides how feed cards are read
type RecommendationCardParser interface {
	ParseRecommendationCard(ctx context.Context, page Surface, index int) (models.Listing, error)
}

// HomePage is implemented by adapters that expose a page suitable for login probing
type HomePage interface {
	HomeURL() string
}

// ParseDetail returns the adapter's detail listing, or an empty listing when unsupported
func ParseDetail(ctx context.Context, a Adapter, page Surface, url string) (models.Listing, error) {
	if dp, ok := a.(DetailParser); ok {
		return dp.ParseDetail(ctx, page, url)
	}
	return models.Listing{}, nil
}

// HasNextPage defaults to false for adapters without pagination detection
func HasNextPage(ctx context.Context, a Adapter, page Surface) bool {
	if p, ok := a.(Paginator); ok {
		return p.HasNextPage(ctx, page)
	}
	return false
}

// IsLoggedIn defaults to false for adapters without login detection
func IsLoggedIn(ctx context.Context, a Adapter, page Surface) bool {
	if ld, ok := a.(LoginDetector); ok {
		return ld.IsLoggedIn(ctx, page)
	}
	return false
}

// RecommendationsURL returns "" when the adapter has no feed
func RecommendationsURL(a Adapter) string {
	if rs, ok := a.(RecommendationSource); ok {
		return rs.RecommendationsURL()
	}
	return ""
}

// RecommendationSelector defaults to the search list selector
func RecommendationSelector(a Adapter) string {
	if rp, ok := a.(RecommendationSelectorProvider); ok {
		if sel := rp.RecommendationSelector(); sel != "" {
			return sel
		}
	}
	return a.ListSelector()
}

// ParseRecommendationCard defaults to the search summary parser
func ParseRecommendationCard(ctx context.Context, a Adapter, page Surface, index int) (models.Listing, error) {
	if rp, ok := a.(RecommendationCardParser); ok {
		return rp.ParseRecommendationCard(ctx, page, index)
	}
	return a.ParseSummary(ctx, page, index)
}
