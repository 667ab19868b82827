package headed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"letraz-harvester/internal/logging/types"
)

// Page adapts a rod page to the scraper surface
type Page struct {
	page   *rod.Page
	logger types.Logger
}

func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := p.page.Context(navCtx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}

	p.logger.Debug("Successfully navigated to URL", map[string]interface{}{
		"url": url,
	})
	return nil
}

func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := p.page.Context(waitCtx).Element(selector)
	return err == nil
}

func (p *Page) ExtractAll(ctx context.Context, selector string) ([]string, error) {
	elements, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}

	out := make([]string, 0, len(elements))
	for _, el := range elements {
		html, err := el.HTML()
		if err != nil {
			return nil, fmt.Errorf("failed to read element HTML: %w", err)
		}
		out = append(out, html)
	}
	return out, nil
}

func (p *Page) Evaluate(ctx context.Context, js string) (interface{}, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate script: %w", err)
	}
	return res.Value.Val(), nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	elements, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return err
	}
	if len(elements) == 0 {
		return fmt.Errorf("element not found: %s", selector)
	}
	return elements.First().Click(proto.InputMouseButtonLeft, 1)
}

func (p *Page) ScrollToBottom(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *Page) CurrentHeight(ctx context.Context) (float64, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get page HTML: %w", err)
	}
	return html, nil
}

func (p *Page) CurrentURL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *Page) Close() error {
	return p.page.Close()
}
