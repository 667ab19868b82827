package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"letraz-harvester/internal/config"
	"letraz-harvester/internal/store"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

// GetSettingsHandler returns the run defaults
func GetSettingsHandler(cfg *config.Config, jobs store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		settings, err := jobs.GetSettings(c.Request().Context(), store.DefaultSettings(cfg))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, settings)
	}
}

// SaveSettingsHandler merges the request over the current run defaults
func SaveSettingsHandler(cfg *config.Config, jobs store.Store, sources []string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.SettingsRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err)
		}
		for _, source := range req.EnabledSources {
			if !utils.Contains(sources, source) {
				return respondError(c, utils.NewValidationError("unknown source: "+source))
			}
		}

		ctx := c.Request().Context()
		current, err := jobs.GetSettings(ctx, store.DefaultSettings(cfg))
		if err != nil {
			return respondError(c, err)
		}

		updated := req.Apply(current)
		if err := jobs.SaveSettings(ctx, updated); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, updated)
	}
}
