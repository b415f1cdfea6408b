package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scrape.Pages < 1 {
		return fmt.Errorf("scrape.pages must be >= 1, got %d", cfg.Scrape.Pages)
	}
	if cfg.Scrape.Workers < 1 {
		return fmt.Errorf("scrape.workers must be >= 1, got %d", cfg.Scrape.Workers)
	}
	if cfg.Scrape.Workers > 64 {
		return fmt.Errorf("scrape.workers must be <= 64, got %d", cfg.Scrape.Workers)
	}
	if cfg.Scrape.PageSize < 1 {
		return fmt.Errorf("scrape.page_size must be >= 1, got %d", cfg.Scrape.PageSize)
	}
	if cfg.Scrape.LengthPolicy != LengthPolicyTruncate && cfg.Scrape.LengthPolicy != LengthPolicyStrict {
		return fmt.Errorf("scrape.length_policy must be %q or %q, got %q",
			LengthPolicyTruncate, LengthPolicyStrict, cfg.Scrape.LengthPolicy)
	}

	if cfg.Browser.NavigateTimeout <= 0 {
		return fmt.Errorf("browser.navigate_timeout must be > 0")
	}
	if cfg.Browser.ListingTimeout <= 0 {
		return fmt.Errorf("browser.listing_timeout must be > 0")
	}
	if cfg.Browser.PollInterval <= 0 {
		return fmt.Errorf("browser.poll_interval must be > 0")
	}
	if cfg.Browser.ScrollSettle < cfg.Browser.PollInterval {
		return fmt.Errorf("browser.scroll_settle (%s) must be >= browser.poll_interval (%s)",
			cfg.Browser.ScrollSettle, cfg.Browser.PollInterval)
	}
	if cfg.Browser.MaxScrolls < 1 {
		return fmt.Errorf("browser.max_scrolls must be >= 1, got %d", cfg.Browser.MaxScrolls)
	}

	if cfg.Selectors.Container == "" {
		return fmt.Errorf("selectors.container must be set")
	}
	if cfg.Selectors.ASINXPath == "" {
		return fmt.Errorf("selectors.asin_xpath must be set")
	}

	if cfg.Storage.Database == "" || cfg.Storage.Collection == "" {
		return fmt.Errorf("storage.database and storage.collection must be set")
	}
	if cfg.Storage.Timeout <= 0 {
		return fmt.Errorf("storage.timeout must be > 0")
	}
	switch cfg.Storage.MirrorType {
	case "", "jsonl", "csv":
	default:
		return fmt.Errorf("storage.mirror_type %q is not supported (valid: jsonl, csv)", cfg.Storage.MirrorType)
	}
	if cfg.Storage.MirrorType != "" && cfg.Storage.MirrorPath == "" {
		return fmt.Errorf("storage.mirror_path must be set when storage.mirror_type is %q", cfg.Storage.MirrorType)
	}

	if cfg.Events.RedisAddr != "" && cfg.Events.Stream == "" {
		return fmt.Errorf("events.stream must be set when events.redis_addr is set")
	}

	if cfg.Dashboard.Port < 1 || cfg.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port must be 1-65535, got %d", cfg.Dashboard.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is a usable listing URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateForScrape additionally requires a store connection string.
func ValidateForScrape(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is empty (set MONGO_URI or BESTSELLERS_STORAGE_MONGO_URI)")
	}
	for _, u := range cfg.Scrape.URLs {
		if err := ValidateURL(u); err != nil {
			return fmt.Errorf("scrape.urls: %q: %w", u, err)
		}
	}
	return nil
}
