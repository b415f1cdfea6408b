package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/dashboard"
	"github.com/IshaanNene/bestsellers/internal/observability"
	"github.com/IshaanNene/bestsellers/internal/storage"
)

var (
	dashboardPort int
	artifactPath  string
)

// dashboardCmd creates the "dashboard" subcommand.
func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the analytics dashboard",
		Long:  "Serve the analytics dashboard. Every request reloads the collection.",
		RunE:  runDashboard,
	}

	cmd.Flags().IntVar(&dashboardPort, "port", 0, "listen port (0 = config default)")
	cmd.Flags().StringVar(&artifactPath, "artifact", "", "timeline artifact path")

	return cmd
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	if err := applyDashboardOverrides(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewMongoStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer store.Close()

	dash := dashboard.NewDashboard(cfg.Dashboard, store, observability.NewMetrics(logger), logger)
	fmt.Printf("Dashboard on http://localhost:%d\n", cfg.Dashboard.Port)
	return dash.Start(ctx)
}

// applyDashboardOverrides applies the dashboard flags and validates the result.
func applyDashboardOverrides(cfg *config.Config) error {
	if dashboardPort != 0 {
		cfg.Dashboard.Port = dashboardPort
	}
	if artifactPath != "" {
		cfg.Dashboard.ArtifactPath = artifactPath
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is empty (set MONGO_URI or BESTSELLERS_STORAGE_MONGO_URI)")
	}
	return nil
}
