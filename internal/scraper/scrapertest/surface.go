// Package scrapertest provides an in-memory Surface for exercising adapters and crawls without a browser.
package scrapertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Surface serves canned HTML per URL and records every navigation
type Surface struct {
	mu sync.Mutex

	// Pages maps a URL to the HTML served after navigating to it
	Pages map[string]string
	// ScrollStages, when set for a URL, replaces the page HTML after each ScrollToBottom
	ScrollStages map[string][]string
	// NavigateErrors forces Navigate to fail for a URL
	NavigateErrors map[string]error
	// FallbackHTML is served for unknown URLs; when empty Navigate fails for them
	FallbackHTML string

	current     string
	html        string
	scrolls     int
	Navigations []string
	Clicks      []string
	Closed      bool
}

// NewSurface creates a surface serving pages
func NewSurface(pages map[string]string) *Surface {
	return &Surface{
		Pages:          pages,
		ScrollStages:   map[string][]string{},
		NavigateErrors: map[string]error{},
	}
}

func (s *Surface) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Navigations = append(s.Navigations, url)
	if err := s.NavigateErrors[url]; err != nil {
		return err
	}

	html, ok := s.Pages[url]
	if !ok {
		if s.FallbackHTML == "" {
			return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", url)
		}
		html = s.FallbackHTML
	}
	s.current = url
	s.html = html
	s.scrolls = 0
	return nil
}

func (s *Surface) doc() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(s.html))
}

func (s *Surface) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.doc()
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

func (s *Surface) ExtractAll(ctx context.Context, selector string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.doc()
	if err != nil {
		return nil, err
	}
	var out []string
	var outerErr error
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			outerErr = err
			return
		}
		out = append(out, html)
	})
	return out, outerErr
}

func (s *Surface) Evaluate(ctx context.Context, js string) (interface{}, error) {
	return nil, fmt.Errorf("evaluate is not supported by the fake surface")
}

func (s *Surface) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Clicks = append(s.Clicks, selector)
	doc, err := s.doc()
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("element not found: %s", selector)
	}
	return nil
}

func (s *Surface) ScrollToBottom(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stages := s.ScrollStages[s.current]
	if s.scrolls < len(stages) {
		s.html = stages[s.scrolls]
	}
	s.scrolls++
	return nil
}

// CurrentHeight approximates document height by its HTML length
func (s *Surface) CurrentHeight(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(len(s.html)), nil
}

func (s *Surface) HTML(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html, nil
}

func (s *Surface) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Scrolls returns how many times ScrollToBottom ran since the last navigation
func (s *Surface) Scrolls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrolls
}

// NavigatedTo reports whether url was ever loaded
func (s *Surface) NavigatedTo(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.Navigations {
		if n == url {
			return true
		}
	}
	return false
}
