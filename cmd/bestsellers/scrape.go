package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/engine"
	"github.com/IshaanNene/bestsellers/internal/events"
	"github.com/IshaanNene/bestsellers/internal/fetcher"
	"github.com/IshaanNene/bestsellers/internal/observability"
	"github.com/IshaanNene/bestsellers/internal/storage"
)

var (
	pages      int
	workers    int
	outputPath string
	outputType string
)

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Scrape bestseller categories",
		Long: `Scrape every configured category (or the given listing URLs) once.
Each category runs in its own browser with its own store connection; a failing
category never stops the others.`,
		RunE: runScrape,
	}

	cmd.Flags().IntVarP(&pages, "pages", "p", 0, "pages per category (0 = config default)")
	cmd.Flags().IntVarP(&workers, "workers", "n", 0, "concurrent category sessions (0 = config default)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "also mirror listings to this file")
	cmd.Flags().StringVarP(&outputType, "format", "f", "jsonl", "mirror format: jsonl, csv")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	applyScrapeOverrides(cfg, args)
	if err := config.ValidateForScrape(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		srv := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
		defer observability.Shutdown(srv, logger)
	}

	var mirror storage.Storage
	if cfg.Storage.MirrorType != "" {
		mirror, err = storage.NewFileStorage(cfg.Storage.MirrorType, cfg.Storage.MirrorPath, logger)
		if err != nil {
			return fmt.Errorf("create mirror: %w", err)
		}
		defer mirror.Close()
	}

	publisher, err := newPublisher(ctx, cfg.Events, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	browsers := func(ctx context.Context) (engine.BrowserSession, error) {
		b, err := fetcher.NewBrowser(ctx, cfg.Browser, sessionLogger(ctx, logger))
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	stores := func(ctx context.Context) (storage.Storage, error) {
		primary, err := storage.NewMongoStorage(ctx, cfg.Storage, sessionLogger(ctx, logger))
		if err != nil {
			return nil, err
		}
		if mirror == nil {
			return primary, nil
		}
		return storage.NewMultiStorage([]storage.Storage{primary, storage.Shared(mirror)}, logger), nil
	}

	dispatcher, err := engine.NewDispatcher(cfg, browsers, stores, logger,
		engine.WithPublisher(publisher),
		engine.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	logger.Info("starting scrape",
		"categories", len(cfg.Scrape.URLs),
		"pages", cfg.Scrape.Pages,
		"workers", cfg.Scrape.Workers,
		"database", cfg.Storage.Database,
		"collection", cfg.Storage.Collection,
	)

	report := dispatcher.Run(ctx, cfg.Scrape.URLs)
	printSummary(report)

	if report.AllFailed() {
		return fmt.Errorf("all %d categories failed", len(report.Results))
	}
	return nil
}

// sessionLogger labels logger with the listing URL of the session owning ctx.
func sessionLogger(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if url, ok := engine.SessionURL(ctx); ok {
		return logger.With("url", url)
	}
	return logger
}

// newPublisher connects the Redis event stream when one is configured.
func newPublisher(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (events.Publisher, error) {
	if cfg.RedisAddr == "" {
		return events.Nop{}, nil
	}
	p := events.NewRedisPublisher(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("publishing session events", "redis", cfg.RedisAddr, "stream", cfg.Stream)
	return p, nil
}

// applyScrapeOverrides applies command-line flag values to the config.
func applyScrapeOverrides(cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Scrape.URLs = args
	}
	if pages > 0 {
		cfg.Scrape.Pages = pages
	}
	if workers > 0 {
		cfg.Scrape.Workers = workers
	}
	if outputPath != "" {
		cfg.Storage.MirrorPath = outputPath
		cfg.Storage.MirrorType = strings.ToLower(outputType)
	}
}

func printSummary(report *engine.RunReport) {
	elapsed := report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)
	fmt.Printf("\nScrape %s finished in %s\n", report.RunID, elapsed)
	for _, r := range report.Results {
		name := r.Category
		if name == "" {
			name = r.URL
		}
		line := fmt.Sprintf("  %-10s %-22s pages=%d records=%d incomplete=%d", r.Outcome, name, r.Pages, r.Records, r.Incomplete)
		if r.Err != nil {
			line += "  error: " + r.Err.Error()
		}
		fmt.Println(line)
	}
	fmt.Printf("\n  Completed: %d  Partial: %d  Failed: %d  Records: %d\n",
		report.Count(engine.OutcomeCompleted),
		report.Count(engine.OutcomePartial),
		report.Count(engine.OutcomeFailed),
		report.Records(),
	)
}
