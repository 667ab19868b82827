package models

// ScrapeRequest represents the request payload for starting a scrape run.
// Zero values fall back to the persisted settings.
type ScrapeRequest struct {
	Sources          []string   `json:"sources,omitempty" validate:"omitempty,dive,required"`
	Keywords         []string   `json:"keywords,omitempty" validate:"omitempty,dive,required"`
	MaxPages         int        `json:"maxPages,omitempty" validate:"omitempty,min=1,max=10"`
	Mode             ScrapeMode `json:"mode,omitempty" validate:"omitempty,scrape_mode"`
	FetchFullDetails *bool      `json:"fetchFullDetails,omitempty"`
	Async            bool       `json:"async,omitempty"`
}

// CreateJobRequest represents a manually added job
type CreateJobRequest struct {
	URL         string `json:"url" validate:"required,url"`
	Title       string `json:"title" validate:"required"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Salary      string `json:"salary,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

// UpdateJobRequest represents an operator change to a stored job
type UpdateJobRequest struct {
	Status     *string `json:"status,omitempty" validate:"omitempty,job_status"`
	MatchScore *int    `json:"match_score,omitempty" validate:"omitempty,min=0,max=100"`
	Notes      *string `json:"notes,omitempty"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	ApplyURL   *string `json:"apply_url,omitempty" validate:"omitempty,url"`
}

// ToUpdate converts the request into a store update
func (r UpdateJobRequest) ToUpdate() JobUpdate {
	u := JobUpdate{
		MatchScore: r.MatchScore,
		Notes:      r.Notes,
		Email:      r.Email,
		ApplyURL:   r.ApplyURL,
	}
	if r.Status != nil {
		s := JobStatus(*r.Status)
		u.Status = &s
	}
	return u
}

// SettingsRequest represents an update to the persisted run defaults
type SettingsRequest struct {
	Keywords       []string   `json:"keywords,omitempty"`
	EnabledSources []string   `json:"enabled_sources,omitempty"`
	PagesToScrape  *int       `json:"pages_to_scrape,omitempty" validate:"omitempty,min=1,max=10"`
	ScrapeMode     ScrapeMode `json:"scrape_mode,omitempty" validate:"omitempty,scrape_mode"`
}

// Apply merges the request over the current settings
func (r SettingsRequest) Apply(current Settings) Settings {
	if r.Keywords != nil {
		current.Keywords = r.Keywords
	}
	if r.EnabledSources != nil {
		current.EnabledSources = r.EnabledSources
	}
	if r.PagesToScrape != nil {
		current.PagesToScrape = *r.PagesToScrape
	}
	if r.ScrapeMode != "" {
		current.ScrapeMode = r.ScrapeMode
	}
	return current
}
