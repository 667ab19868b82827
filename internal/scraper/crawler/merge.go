package crawler

import (
	"strings"

	"letraz-harvester/internal/scraper"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

// Merge overlays detail onto summary field by field. A detail value wins only when
// it is non-blank; URL and Source always come from the summary.
func Merge(summary, detail models.Listing) models.Listing {
	pick := func(s, d string) string {
		if strings.TrimSpace(d) != "" {
			return d
		}
		return s
	}

	return models.Listing{
		Source:       summary.Source,
		URL:          summary.URL,
		ExternalID:   pick(summary.ExternalID, detail.ExternalID),
		Title:        pick(summary.Title, detail.Title),
		Company:      pick(summary.Company, detail.Company),
		Location:     pick(summary.Location, detail.Location),
		Salary:       pick(summary.Salary, detail.Salary),
		Experience:   pick(summary.Experience, detail.Experience),
		Description:  pick(summary.Description, detail.Description),
		Requirements: pick(summary.Requirements, detail.Requirements),
		Email:        pick(summary.Email, detail.Email),
		ApplyURL:     pick(summary.ApplyURL, detail.ApplyURL),
		PostedAt:     pick(summary.PostedAt, detail.PostedAt),
	}
}

// accept normalises a parsed card: absolute URL and source tag. Cards missing a URL or title are rejected.
func accept(l models.Listing, adapter scraper.Adapter, source string) (models.Listing, bool) {
	if !l.Complete() {
		return l, false
	}
	l.URL = utils.ToAbsoluteURL(l.URL, adapter.BaseURL())
	l.Source = source
	return l, true
}
