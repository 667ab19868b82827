package coordinator

import "letraz-harvester/pkg/models"

// ResolveRunConfig fills the gaps of a request from the persisted settings.
// Full details are fetched unless the request turns them off.
func ResolveRunConfig(req models.ScrapeRequest, settings models.Settings) RunConfig {
	cfg := RunConfig{
		Sources:          req.Sources,
		Keywords:         req.Keywords,
		MaxPages:         req.MaxPages,
		Mode:             req.Mode,
		FetchFullDetails: true,
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = settings.EnabledSources
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = settings.Keywords
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = settings.PagesToScrape
	}
	if cfg.Mode == "" {
		cfg.Mode = settings.ScrapeMode
	}
	if req.FetchFullDetails != nil {
		cfg.FetchFullDetails = *req.FetchFullDetails
	}

	return cfg
}
