package coordinator

import (
	"context"
	"fmt"
	"strings"

	"letraz-harvester/internal/scraper"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

// CheckLogin opens a fresh page on the site's home page and probes for an authenticated session.
// Probe failures report not-logged-in; only an unknown site or a missing browser is an error.
func (c *Coordinator) CheckLogin(ctx context.Context, site string) (models.LoginStatus, error) {
	adapter, ok := c.registry.Get(site)
	if !ok {
		return models.LoginStatus{}, utils.NewConfigurationError(fmt.Sprintf(
			"Invalid site: %s. Supported sites: %s", site, strings.Join(c.registry.Names(), ", ")))
	}

	surface, err := c.surfaces.NewSurface(ctx)
	if err != nil {
		return models.LoginStatus{}, fmt.Errorf("failed to acquire browser page: %w", err)
	}
	defer surface.Close()

	home := adapter.BaseURL()
	if hp, ok := adapter.(scraper.HomePage); ok && hp.HomeURL() != "" {
		home = hp.HomeURL()
	}

	logger := c.logger.WithField("source", site)
	if err := surface.Navigate(ctx, home, c.timing.NavigationTimeout); err != nil {
		logger.Warn("Login probe failed", map[string]interface{}{"error": err.Error()})
		return models.LoginStatus{}, nil
	}
	if err := scraper.Sleep(ctx, scraper.Jitter(c.timing.Settle, c.timing.SlowSettle)); err != nil {
		return models.LoginStatus{}, nil
	}

	status := models.LoginStatus{IsLoggedIn: scraper.IsLoggedIn(ctx, adapter, surface)}
	if status.IsLoggedIn {
		if ur, ok := adapter.(scraper.UsernameReader); ok {
			status.Username = ur.Username(ctx, surface)
		}
	}

	logger.Info("Login status checked", map[string]interface{}{
		"logged_in": status.IsLoggedIn,
		"username":  status.Username,
	})
	return status, nil
}

// CheckAllLogins probes every registered site in name order
func (c *Coordinator) CheckAllLogins(ctx context.Context) (map[string]models.LoginStatus, error) {
	statuses := make(map[string]models.LoginStatus)
	for _, site := range c.registry.Names() {
		status, err := c.CheckLogin(ctx, site)
		if err != nil {
			return nil, err
		}
		statuses[site] = status
	}
	return statuses, nil
}
