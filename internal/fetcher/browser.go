package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/bestsellers/internal/automation"
	"github.com/IshaanNene/bestsellers/internal/config"
)

// Browser owns one Chromium process. Each category session launches its own.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      config.BrowserConfig
	logger   *slog.Logger
}

// NewBrowser launches and connects to a fresh browser instance.
func NewBrowser(ctx context.Context, cfg config.BrowserConfig, logger *slog.Logger) (*Browser, error) {
	b := &Browser{
		cfg:    cfg,
		logger: logger.With("component", "browser"),
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.WindowSize != "" {
		l = l.Set("window-size", cfg.WindowSize)
	}
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b.launcher = l

	browser := rod.New().ControlURL(launchURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	b.browser = browser

	b.logger.Debug("browser ready", "headless", cfg.Headless)
	return b, nil
}

// OpenPage opens a blank tab.
func (b *Browser) OpenPage(ctx context.Context) (automation.Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return automation.NewRodPage(page, b.logger), nil
}

// Close shuts down the browser and releases resources.
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
	return err
}
