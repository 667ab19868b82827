package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// TimeoutConfig returns timeout middleware configuration
func TimeoutConfig(timeout time.Duration) echo.MiddlewareFunc {
	return middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: timeout,
	})
}

// SelectiveTimeoutConfig applies the default timeout everywhere except the
// scrape endpoints, which drive a browser and get a longer budget
func SelectiveTimeoutConfig(defaultTimeout, scrapeTimeout time.Duration) echo.MiddlewareFunc {
	standard := TimeoutConfig(defaultTimeout)
	long := TimeoutConfig(scrapeTimeout)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		standardNext := standard(next)
		longNext := long(next)

		return func(c echo.Context) error {
			if isScrapeRequest(c) {
				return longNext(c)
			}
			return standardNext(c)
		}
	}
}

func isScrapeRequest(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasPrefix(path, "/api/v1/scrape") || strings.HasPrefix(path, "/api/v1/auth")
}
