package scraper

import (
	"context"
	"time"
)

// Snapshot wraps a Surface and memoizes ExtractAll per selector so that reading
// N cards costs one browser round trip instead of N. Anything that can change
// the document (navigation, clicks, scrolling, script evaluation) drops the cache.
type Snapshot struct {
	Surface
	cache map[string][]string
}

// NewSnapshot returns a caching view over page
func NewSnapshot(page Surface) *Snapshot {
	return &Snapshot{Surface: page, cache: make(map[string][]string)}
}

func (s *Snapshot) ExtractAll(ctx context.Context, selector string) ([]string, error) {
	if cards, ok := s.cache[selector]; ok {
		return cards, nil
	}
	cards, err := s.Surface.ExtractAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	s.cache[selector] = cards
	return cards, nil
}

// Invalidate drops every cached extraction
func (s *Snapshot) Invalidate() {
	s.cache = make(map[string][]string)
}

func (s *Snapshot) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s.Invalidate()
	return s.Surface.Navigate(ctx, url, timeout)
}

func (s *Snapshot) Evaluate(ctx context.Context, js string) (interface{}, error) {
	s.Invalidate()
	return s.Surface.Evaluate(ctx, js)
}

func (s *Snapshot) Click(ctx context.Context, selector string) error {
	s.Invalidate()
	return s.Surface.Click(ctx, selector)
}

func (s *Snapshot) ScrollToBottom(ctx context.Context) error {
	s.Invalidate()
	return s.Surface.ScrollToBottom(ctx)
}
