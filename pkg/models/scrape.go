package models

import "time"

// ScrapeMode selects which crawl loops run for a source
type ScrapeMode string

const (
	ScrapeModeSearch          ScrapeMode = "search"
	ScrapeModeRecommendations ScrapeMode = "recommendations"
	ScrapeModeBoth            ScrapeMode = "both"
)

// IsValid reports whether m is a known mode
func (m ScrapeMode) IsValid() bool {
	switch m {
	case ScrapeModeSearch, ScrapeModeRecommendations, ScrapeModeBoth:
		return true
	}
	return false
}

// NeedsKeywords reports whether the mode runs a keyword search
func (m ScrapeMode) NeedsKeywords() bool {
	return m == ScrapeModeSearch || m == ScrapeModeBoth || m == ""
}

// ScrapeOptions is the per-run crawl configuration, read-only during the run
type ScrapeOptions struct {
	Keywords         []string   `json:"keywords"`
	MaxPages         int        `json:"maxPages"`
	FetchFullDetails bool       `json:"fetchFullDetails"`
	Mode             ScrapeMode `json:"mode"`
}

// Capabilities are the static facts an adapter declares about its site
type Capabilities struct {
	SupportsRecommendations     bool `json:"supportsRecommendations"`
	RequiresLogin               bool `json:"requiresLogin"`
	RecommendationsRequireLogin bool `json:"recommendationsRequireLogin"`
}

// Outcome is what one crawl of one source produced
type Outcome struct {
	Jobs          []Listing `json:"jobs"`
	Errors        []string  `json:"errors"`
	Warnings      []string  `json:"warnings"`
	LoginRequired bool      `json:"loginRequired"`
}

// SourceResult is the per-source summary reported to the caller
type SourceResult struct {
	Source        string   `json:"source"`
	JobsFound     int      `json:"jobsFound"`
	JobsAdded     int      `json:"jobsAdded"`
	JobsUpdated   int      `json:"jobsUpdated"`
	JobsSkipped   int      `json:"jobsSkipped"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	LoginRequired bool     `json:"loginRequired"`
}

// RunSummary aggregates the results of a whole run
type RunSummary struct {
	RunID          string         `json:"runId"`
	Results        []SourceResult `json:"results"`
	TotalJobsAdded int            `json:"totalJobsAdded"`
	LoginRequired  bool           `json:"loginRequired"`
	Warnings       []string       `json:"warnings"`
	StartedAt      time.Time      `json:"startedAt"`
	Duration       time.Duration  `json:"duration"`
}

// Settings are the persisted run defaults
type Settings struct {
	Keywords       []string   `json:"keywords"`
	EnabledSources []string   `json:"enabled_sources"`
	PagesToScrape  int        `json:"pages_to_scrape"`
	ScrapeMode     ScrapeMode `json:"scrape_mode"`
}

// LoginStatus is the result of probing a site for an authenticated session
type LoginStatus struct {
	IsLoggedIn bool   `json:"isLoggedIn"`
	Username   string `json:"username,omitempty"`
}
