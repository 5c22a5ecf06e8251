// Package main provides the entry point for the report review CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/report-review/internal/config"
	"github.com/jonathan/report-review/internal/llm"
	"github.com/jonathan/report-review/internal/logging"
)

// app holds state shared by every subcommand
type app struct {
	envFile string
	verbose bool

	stdout io.Writer
	logger *zap.Logger

	// newClient builds the LLM client for a resolved configuration
	newClient func(ctx context.Context, cfg config.Config, apiKey string) (llm.Client, error)
}

func newApp() *app {
	return &app{stdout: os.Stdout, logger: zap.NewNop(), newClient: newLLMClient}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "report_review",
		Short: "Personnel report review pipeline",
		Long: `report_review reads a directory tree of annual personnel reports, extracts a
fixed-schema record for every person with an LLM, and aggregates the records
into an organization-level review.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnv(a.envFile); err != nil {
				return err
			}
			logger, err := logging.New(a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Path to a .env file (defaults to ./.env when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Print detailed debug information")

	root.AddCommand(
		newAnalyzeCmd(a),
		newServeCmd(a),
		newValidateCmd(a),
		newInitPromptsCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// loadEnv loads path, or ./.env if it exists when path is empty
func loadEnv(path string) error {
	if path == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
