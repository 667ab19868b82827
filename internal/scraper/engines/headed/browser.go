// Package headed drives a real Chrome through rod. The browser keeps a persistent
// profile directory so site logins survive between runs.
package headed

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"letraz-harvester/internal/config"
	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/logging/types"
	"letraz-harvester/internal/scraper"
)

// BrowserManager owns one Chrome process and hands out pages from it
type BrowserManager struct {
	config     *config.Config
	chromePath string
	launcher   *launcher.Launcher
	browser    *rod.Browser
	mu         sync.Mutex
	logger     types.Logger
}

// NewBrowserManager creates a browser manager. Chrome is launched lazily on the first NewSurface.
func NewBrowserManager(cfg *config.Config, logger types.Logger) *BrowserManager {
	logger = logging.ForComponent(logger, "browser")

	if cfg.Scraper.UserDataDir != "" {
		if err := os.MkdirAll(cfg.Scraper.UserDataDir, 0o755); err != nil {
			logger.Warn("Failed to create browser profile directory", map[string]interface{}{
				"dir":   cfg.Scraper.UserDataDir,
				"error": err.Error(),
			})
		}
	}

	chromePath := getSystemChromePath(cfg.Scraper.ChromeBin)
	if chromePath != "" {
		logger.Info("Using system Chrome browser", map[string]interface{}{
			"chrome_path": chromePath,
		})
	} else {
		logger.Warn("System Chrome not found, Rod will download browser", map[string]interface{}{})
	}

	return &BrowserManager{
		config:     cfg,
		chromePath: chromePath,
		logger:     logger,
	}
}

// newLauncher builds launch settings for one Chrome process. A launcher can only
// launch once, so every (re)launch gets its own.
func (bm *BrowserManager) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(bm.config.Scraper.HeadlessMode).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if bm.config.Scraper.UserDataDir != "" {
		l = l.UserDataDir(bm.config.Scraper.UserDataDir)
	}
	if bm.chromePath != "" {
		l = l.Bin(bm.chromePath)
	}
	if bm.config.Scraper.UserAgent != "" {
		l = l.Set("user-agent", bm.config.Scraper.UserAgent)
	}
	return l
}

// NewSurface opens a fresh page on the shared browser
func (bm *BrowserManager) NewSurface(ctx context.Context) (scraper.Surface, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.browser == nil || !isBrowserHealthy(bm.browser) {
		browser, err := bm.createBrowser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create browser: %w", err)
		}
		bm.browser = browser
	}

	page, err := bm.createPage(bm.browser)
	if err != nil {
		return nil, err
	}
	return &Page{page: page, logger: bm.logger}, nil
}

// createBrowser launches a new Chrome. A previous process is shut down first so
// it does not keep the profile directory locked.
func (bm *BrowserManager) createBrowser(ctx context.Context) (*rod.Browser, error) {
	if bm.browser != nil || bm.launcher != nil {
		bm.logger.Warn("Browser unresponsive, relaunching", map[string]interface{}{})
		bm.shutdown()
	}

	l := bm.newLauncher()
	url, err := l.Context(ctx).Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	bm.launcher = l

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		bm.shutdown()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	bm.logger.Info("New browser instance created", map[string]interface{}{
		"headless":      bm.config.Scraper.HeadlessMode,
		"user_data_dir": bm.config.Scraper.UserDataDir,
	})
	return browser, nil
}

// shutdown closes the current browser and kills its process. Callers hold mu.
func (bm *BrowserManager) shutdown() {
	if bm.browser != nil {
		if err := bm.browser.Close(); err != nil {
			bm.logger.Debug("Browser close failed", map[string]interface{}{"error": err.Error()})
		}
		bm.browser = nil
	}
	if bm.launcher != nil {
		bm.launcher.Kill()
		bm.launcher = nil
	}
}

// createPage opens a page with viewport, user agent and headers applied
func (bm *BrowserManager) createPage(browser *rod.Browser) (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if bm.config.Scraper.StealthMode {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	width, height := bm.config.Scraper.ViewportWidth, bm.config.Scraper.ViewportHeight
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		bm.logger.Warn("Failed to set viewport", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if bm.config.Scraper.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      bm.config.Scraper.UserAgent,
			AcceptLanguage: "en-US,en;q=0.9",
		})
		if err != nil {
			bm.logger.Warn("Failed to set user agent", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if _, err := page.SetExtraHeaders([]string{"Accept-Language", "en-US,en;q=0.9"}); err != nil {
		bm.logger.Debug("Failed to set headers", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return page, nil
}

func isBrowserHealthy(browser *rod.Browser) bool {
	_, err := browser.Pages()
	return err == nil
}

// IsHealthy reports whether the browser, if launched, still responds
func (bm *BrowserManager) IsHealthy() bool {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	return bm.browser == nil || isBrowserHealthy(bm.browser)
}

// Cleanup closes the browser and kills its process. The profile directory is kept.
func (bm *BrowserManager) Cleanup() {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	bm.shutdown()
	bm.logger.Info("Browser manager cleanup completed", map[string]interface{}{})
}

// getSystemChromePath finds the system-installed Chrome/Chromium browser
func getSystemChromePath(configured string) string {
	for _, candidate := range []string{configured, os.Getenv("CHROME_BIN"), os.Getenv("CHROME_PATH")} {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	commonPaths := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",
		"C:\\Program Files (x86)\\Google\\Chrome\\Application\\chrome.exe",
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
