package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for the bestseller tracker.
type Config struct {
	Scrape    ScrapeConfig    `mapstructure:"scrape"    yaml:"scrape"`
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	Selectors SelectorConfig  `mapstructure:"selectors" yaml:"selectors"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Events    EventsConfig    `mapstructure:"events"    yaml:"events"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// Length policies for assembling field arrays of unequal length.
const (
	LengthPolicyTruncate = "truncate"
	LengthPolicyStrict   = "strict"
)

// ScrapeConfig controls a scrape run.
type ScrapeConfig struct {
	URLs         []string `mapstructure:"urls"          yaml:"urls"`
	Pages        int      `mapstructure:"pages"         yaml:"pages"`
	Workers      int      `mapstructure:"workers"       yaml:"workers"`
	PageSize     int      `mapstructure:"page_size"     yaml:"page_size"`
	LengthPolicy string   `mapstructure:"length_policy" yaml:"length_policy"`
}

// BrowserConfig controls the headless browser and the paginator's waits.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless"         yaml:"headless"`
	Bin             string        `mapstructure:"bin"              yaml:"bin"`
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout" yaml:"navigate_timeout"`
	ListingTimeout  time.Duration `mapstructure:"listing_timeout"  yaml:"listing_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"    yaml:"poll_interval"`
	ScrollSettle    time.Duration `mapstructure:"scroll_settle"    yaml:"scroll_settle"`
	StableWindow    time.Duration `mapstructure:"stable_window"    yaml:"stable_window"`
	MaxScrolls      int           `mapstructure:"max_scrolls"      yaml:"max_scrolls"`
	WindowSize      string        `mapstructure:"window_size"      yaml:"window_size"`
}

// SelectorConfig holds every DOM selector the extractor and paginator use.
// XPath selectors are marked as such; everything else is CSS.
type SelectorConfig struct {
	Container     string `mapstructure:"container"      yaml:"container"`
	ReviewCount   string `mapstructure:"review_count"   yaml:"review_count"`
	TitleXPath    string `mapstructure:"title_xpath"    yaml:"title_xpath"`
	TitleAttr     string `mapstructure:"title_attr"     yaml:"title_attr"`
	Price         string `mapstructure:"price"          yaml:"price"`
	Rating        string `mapstructure:"rating"         yaml:"rating"`
	RankBadge     string `mapstructure:"rank_badge"     yaml:"rank_badge"`
	ASINXPath     string `mapstructure:"asin_xpath"     yaml:"asin_xpath"`
	ASINAttr      string `mapstructure:"asin_attr"      yaml:"asin_attr"`
	Image         string `mapstructure:"image"          yaml:"image"`
	ImageAttr     string `mapstructure:"image_attr"     yaml:"image_attr"`
	CookieConsent string `mapstructure:"cookie_consent" yaml:"cookie_consent"`
	NextPage      string `mapstructure:"next_page"      yaml:"next_page"`
}

// StorageConfig controls the document store and optional file mirrors.
type StorageConfig struct {
	MongoURI   string        `mapstructure:"mongo_uri"   yaml:"mongo_uri"`
	Database   string        `mapstructure:"database"    yaml:"database"`
	Collection string        `mapstructure:"collection"  yaml:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"     yaml:"timeout"`
	MirrorType string        `mapstructure:"mirror_type" yaml:"mirror_type"`
	MirrorPath string        `mapstructure:"mirror_path" yaml:"mirror_path"`
}

// EventsConfig controls run-event publishing. Empty RedisAddr disables it.
type EventsConfig struct {
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"   yaml:"redis_db"`
	Stream    string `mapstructure:"stream"     yaml:"stream"`
	MaxLen    int64  `mapstructure:"max_len"    yaml:"max_len"`
}

// DashboardConfig controls the analytics dashboard server.
type DashboardConfig struct {
	Port         int      `mapstructure:"port"          yaml:"port"`
	ArtifactPath string   `mapstructure:"artifact_path" yaml:"artifact_path"`
	CORSOrigins  []string `mapstructure:"cors_origins"  yaml:"cors_origins"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics for scrape runs.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultCategories are the amazon.es bestseller lists tracked out of the box.
var DefaultCategories = []string{
	"grocery", "boost", "amazon-renewed", "mobile-apps", "baby", "beauty",
	"tools", "music", "gift-cards", "climate-pledge", "automotive", "sports",
	"amazon-devices", "electronics", "appliances", "kitchen", "lighting",
	"industrial", "computers", "musical-instruments", "lawn-garden", "toys",
	"books", "fashion", "dmusic", "office", "dvd", "handmade", "pet-supplies",
	"hpc", "software", "digital-text", "videogames",
}

// BestsellerURL builds the listing URL for a category slug.
func BestsellerURL(category string) string {
	return "https://www.amazon.es/gp/bestsellers/" + category + "/ref=zg_bs_nav_" + category + "_0"
}

// DefaultURLs returns the listing URL of every default category.
func DefaultURLs() []string {
	urls := make([]string, len(DefaultCategories))
	for i, c := range DefaultCategories {
		urls[i] = BestsellerURL(c)
	}
	return urls
}

// DefaultSelectors matches the amazon.es bestseller grid markup.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Container:     "div.a-cardui._cDEzb_grid-cell_1uMOS.expandableGrid.p13n-grid-content",
		ReviewCount:   `a[class="a-link-normal"] span.a-size-small`,
		TitleXPath:    `.//a[contains(@class, "a-link-normal")]/div[contains(@class, "a-section")]/img[contains(@class, "a-dynamic-image")]`,
		TitleAttr:     "alt",
		Price:         ".a-size-base.a-color-price ._cDEzb_p13n-sc-price_3mJ9Z",
		Rating:        "i.a-icon-star-small span.a-icon-alt",
		RankBadge:     "span.zg-bdg-text",
		ASINXPath:     "//div[@data-asin]",
		ASINAttr:      "data-asin",
		Image:         "div[data-asin] a.a-link-normal img.a-dynamic-image",
		ImageAttr:     "src",
		CookieConsent: "#sp-cc-accept",
		NextPage:      "div.a-cardui._cDEzb_card_1L-Yx > div.a-text-center > ul > li.a-last",
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			URLs:         DefaultURLs(),
			Pages:        2,
			Workers:      8,
			PageSize:     50,
			LengthPolicy: LengthPolicyTruncate,
		},
		Browser: BrowserConfig{
			Headless:        true,
			NavigateTimeout: 60 * time.Second,
			ListingTimeout:  20 * time.Second,
			PollInterval:    500 * time.Millisecond,
			ScrollSettle:    4 * time.Second,
			StableWindow:    300 * time.Millisecond,
			MaxScrolls:      30,
			WindowSize:      "1920,1080",
		},
		Selectors: DefaultSelectors(),
		Storage: StorageConfig{
			Database:   "amazon-project",
			Collection: "scrape_collection",
			Timeout:    10 * time.Second,
		},
		Events: EventsConfig{
			Stream: "bestsellers:runs",
			MaxLen: 10000,
		},
		Dashboard: DashboardConfig{
			Port:         8501,
			ArtifactPath: "./output/timeline.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
