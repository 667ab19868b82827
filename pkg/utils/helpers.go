package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRegex = regexp.MustCompile(`[\s\p{Zs}]+`)
	slugStripRegex  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugDashRegex   = regexp.MustCompile(`[\s-]+`)
	emailRegex      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// GenerateRequestID generates a unique request ID for tracking
func GenerateRequestID() string {
	return uuid.New().String()
}

// FormatDuration formats a duration to a human-readable string
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// Contains checks if a string slice contains a specific string
func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetStringOrDefault returns the value if not empty, otherwise returns the default
func GetStringOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// CleanText normalises scraped text to NFC with whitespace collapsed and trimmed.
// Compatibility characters such as "½" are left alone.
func CleanText(text string) string {
	text = norm.NFC.String(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Slugify lowercases s, drops anything outside [a-z0-9 -] and joins words with single dashes
func Slugify(s string) string {
	s = slugStripRegex.ReplaceAllString(strings.ToLower(s), "")
	s = slugDashRegex.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(s, "-")
}

// ExtractEmail returns the first email address found in text
func ExtractEmail(text string) string {
	return emailRegex.FindString(text)
}

// ToAbsoluteURL resolves href against base. Absolute hrefs are returned unchanged.
func ToAbsoluteURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
	}
	return baseURL.ResolveReference(ref).String()
}

// StripQuery removes the query string and fragment from a URL
func StripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// Truncate shortens s to at most n runes
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
