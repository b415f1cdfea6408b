package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/parser"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bestsellers",
		Short: "Bestsellers: marketplace bestseller tracker",
		Long: `Bestsellers scrapes marketplace bestseller listings with a headless browser,
stores every listing in MongoDB and serves an analytics dashboard over the
accumulated history.

Commands:
  scrape      scrape every configured category once
  dashboard   serve the analytics dashboard
  categories  list the configured category URLs`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogger creates a structured logger from the logging config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bestsellers %s\n", config.Version)
		},
	}
}

// categoriesCmd lists the configured URLs and the category each maps to.
func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List configured category URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			for _, u := range cfg.Scrape.URLs {
				category, err := parser.CategoryFromURL(u)
				if err != nil {
					category = "(invalid)"
				}
				fmt.Printf("%-22s %s\n", category, u)
			}
			fmt.Printf("\n%d categories\n", len(cfg.Scrape.URLs))
			return nil
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Scrape:\n")
			fmt.Printf("  Categories:        %d\n", len(cfg.Scrape.URLs))
			fmt.Printf("  Pages:             %d\n", cfg.Scrape.Pages)
			fmt.Printf("  Workers:           %d\n", cfg.Scrape.Workers)
			fmt.Printf("  Page Size:         %d\n", cfg.Scrape.PageSize)
			fmt.Printf("  Length Policy:     %s\n", cfg.Scrape.LengthPolicy)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Printf("  Navigate Timeout:  %s\n", cfg.Browser.NavigateTimeout)
			fmt.Printf("  Listing Timeout:   %s\n", cfg.Browser.ListingTimeout)
			fmt.Printf("  Scroll Settle:     %s\n", cfg.Browser.ScrollSettle)
			fmt.Printf("  Max Scrolls:       %d\n", cfg.Browser.MaxScrolls)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Mongo URI set:     %v\n", cfg.Storage.MongoURI != "")
			fmt.Printf("  Database:          %s\n", cfg.Storage.Database)
			fmt.Printf("  Collection:        %s\n", cfg.Storage.Collection)
			if cfg.Storage.MirrorType != "" {
				fmt.Printf("  Mirror:            %s (%s)\n", cfg.Storage.MirrorType, cfg.Storage.MirrorPath)
			}
			fmt.Printf("\nEvents:\n")
			fmt.Printf("  Redis:             %s\n", orNone(cfg.Events.RedisAddr))
			fmt.Printf("  Stream:            %s\n", cfg.Events.Stream)
			fmt.Printf("\nDashboard:\n")
			fmt.Printf("  Port:              %d\n", cfg.Dashboard.Port)
			fmt.Printf("  Artifact:          %s\n", cfg.Dashboard.ArtifactPath)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}
