package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsdesk/internal/app"
	"github.com/deusflow/newsdesk/internal/config"
	"github.com/deusflow/newsdesk/internal/logger"
)

var flagSources string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Long: `Fetch every enabled source, classify, group and de-duplicate the items,
write up the surviving stories and publish them into the index.

Settings come from the environment; sources and rules from the catalog file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger.Init(cfg.LogLevel, cfg.LogFormat)

		path := cfg.SourcesFile
		if flagSources != "" {
			path = flagSources
		}
		catalog, err := config.LoadCatalog(path)
		if err != nil {
			return err
		}

		if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
			go startMonitoringServer()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipeline, closeAll, err := app.Setup(ctx, cfg, catalog)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := closeAll(); cerr != nil {
				slog.Warn("Cleanup failed", "error", cerr)
			}
		}()

		report, err := pipeline.Run(ctx)
		if err != nil {
			slog.Error("Run failed", "run_id", report.RunID, "stage", report.Stage, "error", err)
			return err
		}
		fmt.Printf("Run %s: collected %d, groups %d, duplicates %d, published %d, errors %d\n",
			report.RunID, report.Collected, report.Groups, report.Duplicates, report.Published, report.Errored())
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&flagSources, "sources", "", "path to the source catalog (default $SOURCES_FILE)")
}
