package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"letraz-harvester/pkg/utils"
)

// Document parses an HTML fragment or page for selector-based extraction
func Document(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Card returns the index-th element matching selector on the page as a parsed fragment
func Card(ctx context.Context, page Surface, selector string, index int) (*goquery.Selection, error) {
	cards, err := page.ExtractAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(cards) {
		return nil, fmt.Errorf("card %d out of range (%d cards)", index, len(cards))
	}

	doc, err := Document(cards[index])
	if err != nil {
		return nil, err
	}
	// the fragment's own root element, not the synthetic <html><body> wrapper
	return doc.Find("body").Children().First(), nil
}

// PageDocument parses the current page's full HTML
func PageDocument(ctx context.Context, page Surface) (*goquery.Document, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return Document(html)
}

// FirstText returns the cleaned text of the first selector that yields non-empty text
func FirstText(s *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		if text := utils.CleanText(s.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// FirstAttr returns the first non-empty attribute value across the selectors
func FirstAttr(s *goquery.Selection, attr string, selectors ...string) string {
	for _, selector := range selectors {
		if v, ok := s.Find(selector).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// OwnAttr returns the first non-empty attribute on s itself
func OwnAttr(s *goquery.Selection, attrs ...string) string {
	for _, attr := range attrs {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// JoinTexts joins the cleaned, non-empty texts of every match
func JoinTexts(s *goquery.Selection, selector, sep string) string {
	var parts []string
	s.Find(selector).Each(func(_ int, item *goquery.Selection) {
		if text := utils.CleanText(item.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, sep)
}

// Exists reports whether any selector matches within s
func Exists(s *goquery.Selection, selectors ...string) bool {
	for _, selector := range selectors {
		if s.Find(selector).Length() > 0 {
			return true
		}
	}
	return false
}
