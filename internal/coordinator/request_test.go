package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"letraz-harvester/pkg/models"
)

func TestResolveRunConfig(t *testing.T) {
	settings := models.Settings{
		Keywords:       []string{"golang"},
		EnabledSources: []string{"naukri", "linkedin"},
		PagesToScrape:  3,
		ScrapeMode:     models.ScrapeModeSearch,
	}

	t.Run("falls back to settings", func(t *testing.T) {
		cfg := ResolveRunConfig(models.ScrapeRequest{}, settings)
		assert.Equal(t, []string{"naukri", "linkedin"}, cfg.Sources)
		assert.Equal(t, []string{"golang"}, cfg.Keywords)
		assert.Equal(t, 3, cfg.MaxPages)
		assert.Equal(t, models.ScrapeModeSearch, cfg.Mode)
		assert.True(t, cfg.FetchFullDetails)
	})

	t.Run("request wins", func(t *testing.T) {
		off := false
		cfg := ResolveRunConfig(models.ScrapeRequest{
			Sources:          []string{"linkedin"},
			Keywords:         []string{"rust"},
			MaxPages:         5,
			Mode:             models.ScrapeModeBoth,
			FetchFullDetails: &off,
		}, settings)
		assert.Equal(t, []string{"linkedin"}, cfg.Sources)
		assert.Equal(t, []string{"rust"}, cfg.Keywords)
		assert.Equal(t, 5, cfg.MaxPages)
		assert.Equal(t, models.ScrapeModeBoth, cfg.Mode)
		assert.False(t, cfg.FetchFullDetails)
	})
}
