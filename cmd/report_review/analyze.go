package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/report-review/internal/aggregation"
	"github.com/jonathan/report-review/internal/config"
	"github.com/jonathan/report-review/internal/db"
	"github.com/jonathan/report-review/internal/observability"
	"github.com/jonathan/report-review/internal/output"
	"github.com/jonathan/report-review/internal/pipeline"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		flags      runFlags
		inputRoot  string
		outputRoot string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Extract every report under --input and write the organization review",
		Long: `Discovers .txt, .md and .docx reports under the input directory, extracts one
record per report, writes per-report JSON plus individual_summaries.json, then
aggregates all records into organization_review.md.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.resolve(cmd, func(cfg *config.Config) {
				if cmd.Flags().Changed("input") {
					cfg.InputRoot = inputRoot
				}
				if cmd.Flags().Changed("output") {
					cfg.OutputRoot = outputRoot
				}
			})
			if err != nil {
				return err
			}
			if cfg.InputRoot == "" {
				return fmt.Errorf("--input must be provided (via flag or config)")
			}
			return a.analyze(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&inputRoot, "input", "i", "", "Directory tree of reports")
	cmd.Flags().StringVarP(&outputRoot, "output", "o", "", "Output directory (default \"output\")")
	flags.bind(cmd)
	return cmd
}

func (a *app) analyze(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	opts, err := runOptions(cfg)
	if err != nil {
		return err
	}

	client, err := a.newClient(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	opts.Client = client
	opts.Logger = a.logger

	if cfg.Verbose || a.verbose {
		opts.Printer = observability.NewPrinter(a.stdout)
	}

	if cfg.DatabaseURL != "" {
		database, err := openStore(ctx, cfg.DatabaseURL)
		if err != nil {
			a.logger.Warn("failed to connect to database, continuing without persistence", zap.Error(err))
		} else {
			defer database.Close()
			opts.Store = database
		}
	}

	result, err := pipeline.Run(ctx, opts)
	if result != nil {
		writer := output.NewWriter(cfg.OutputRoot, nil)
		_, _ = fmt.Fprintf(a.stdout, "Processed %d report(s), %d degraded\n", len(result.Records), result.DegradedCount())
		_, _ = fmt.Fprintf(a.stdout, "Individual summaries: %s\n", writer.SummariesPath())
		if result.Review != nil {
			_, _ = fmt.Fprintf(a.stdout, "Organization review: %s\n", writer.ReviewPath())
		}
	}

	var aggErr *aggregation.AggregationError
	if errors.As(err, &aggErr) {
		return fmt.Errorf("organization review was not written: %w", err)
	}
	return err
}

// openStore connects to PostgreSQL and applies the schema
func openStore(ctx context.Context, databaseURL string) (*db.DB, error) {
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
