package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and a .env file.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
// CLI flags are applied by the caller after Load returns.
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("BESTSELLERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("storage.mongo_uri", "BESTSELLERS_STORAGE_MONGO_URI", "MONGO_URI"); err != nil {
		return nil, fmt.Errorf("bind MONGO_URI: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("bestsellers")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".bestsellers"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides resolve.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scrape.urls", cfg.Scrape.URLs)
	v.SetDefault("scrape.pages", cfg.Scrape.Pages)
	v.SetDefault("scrape.workers", cfg.Scrape.Workers)
	v.SetDefault("scrape.page_size", cfg.Scrape.PageSize)
	v.SetDefault("scrape.length_policy", cfg.Scrape.LengthPolicy)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.navigate_timeout", cfg.Browser.NavigateTimeout)
	v.SetDefault("browser.listing_timeout", cfg.Browser.ListingTimeout)
	v.SetDefault("browser.poll_interval", cfg.Browser.PollInterval)
	v.SetDefault("browser.scroll_settle", cfg.Browser.ScrollSettle)
	v.SetDefault("browser.stable_window", cfg.Browser.StableWindow)
	v.SetDefault("browser.max_scrolls", cfg.Browser.MaxScrolls)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)

	v.SetDefault("selectors.container", cfg.Selectors.Container)
	v.SetDefault("selectors.review_count", cfg.Selectors.ReviewCount)
	v.SetDefault("selectors.title_xpath", cfg.Selectors.TitleXPath)
	v.SetDefault("selectors.title_attr", cfg.Selectors.TitleAttr)
	v.SetDefault("selectors.price", cfg.Selectors.Price)
	v.SetDefault("selectors.rating", cfg.Selectors.Rating)
	v.SetDefault("selectors.rank_badge", cfg.Selectors.RankBadge)
	v.SetDefault("selectors.asin_xpath", cfg.Selectors.ASINXPath)
	v.SetDefault("selectors.asin_attr", cfg.Selectors.ASINAttr)
	v.SetDefault("selectors.image", cfg.Selectors.Image)
	v.SetDefault("selectors.image_attr", cfg.Selectors.ImageAttr)
	v.SetDefault("selectors.cookie_consent", cfg.Selectors.CookieConsent)
	v.SetDefault("selectors.next_page", cfg.Selectors.NextPage)

	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.collection", cfg.Storage.Collection)
	v.SetDefault("storage.timeout", cfg.Storage.Timeout)
	v.SetDefault("storage.mirror_type", cfg.Storage.MirrorType)
	v.SetDefault("storage.mirror_path", cfg.Storage.MirrorPath)

	v.SetDefault("events.redis_addr", cfg.Events.RedisAddr)
	v.SetDefault("events.redis_db", cfg.Events.RedisDB)
	v.SetDefault("events.stream", cfg.Events.Stream)
	v.SetDefault("events.max_len", cfg.Events.MaxLen)

	v.SetDefault("dashboard.port", cfg.Dashboard.Port)
	v.SetDefault("dashboard.artifact_path", cfg.Dashboard.ArtifactPath)
	v.SetDefault("dashboard.cors_origins", cfg.Dashboard.CORSOrigins)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
