package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// RodPage drives a single rod tab.
type RodPage struct {
	page   *rod.Page
	logger *slog.Logger
}

// NewRodPage wraps a Rod page.
func NewRodPage(page *rod.Page, logger *slog.Logger) *RodPage {
	return &RodPage{
		page:   page,
		logger: logger.With("component", "browser_page"),
	}
}

func (rp *RodPage) Navigate(ctx context.Context, url string) error {
	p := rp.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (rp *RodPage) WaitStable(ctx context.Context, d time.Duration) error {
	return rp.page.Context(ctx).WaitStable(d)
}

func (rp *RodPage) Click(ctx context.Context, selector string) (bool, error) {
	if selector == "" {
		return false, nil
	}
	has, el, err := rp.page.Context(ctx).Has(selector)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", selector, err)
	}
	if !has {
		return false, nil
	}
	if err := el.ScrollIntoView(); err != nil {
		rp.logger.Debug("scroll into view failed", "selector", selector, "error", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, fmt.Errorf("click %s: %w", selector, err)
	}
	return true, nil
}

func (rp *RodPage) ScrollHeight(ctx context.Context) (int, error) {
	res, err := rp.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (rp *RodPage) ScrollToBottom(ctx context.Context) error {
	_, err := rp.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (rp *RodPage) Count(ctx context.Context, selector string) (int, error) {
	els, err := rp.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (rp *RodPage) HTML(ctx context.Context) (string, error) {
	return rp.page.Context(ctx).HTML()
}

// Close closes the tab.
func (rp *RodPage) Close() error {
	return rp.page.Close()
}
