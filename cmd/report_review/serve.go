package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/report-review/internal/config"
	"github.com/jonathan/report-review/internal/llm"
	"github.com/jonathan/report-review/internal/server"
	"github.com/jonathan/report-review/internal/server/ratelimit"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		flags    runFlags
		addr     string
		dataRoot string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server for uploads and runs",
		Long: `Start an HTTP server for uploading reports into department folders, running
reviews over them, and downloading the results. Uploads and run output live
under --data-root.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.resolve(cmd, func(cfg *config.Config) {
				if cmd.Flags().Changed("addr") {
					cfg.Addr = addr
				}
				if cmd.Flags().Changed("data-root") {
					cfg.DataRoot = dataRoot
				}
			})
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (default \":8080\")")
	cmd.Flags().StringVar(&dataRoot, "data-root", "", "Directory for uploads and runs (default \"data\")")
	flags.bind(cmd)
	return cmd
}

func (a *app) serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := runOptions(cfg)
	if err != nil {
		return err
	}

	srvCfg := server.Config{
		Addr:     cfg.Addr,
		DataRoot: cfg.DataRoot,
		Run:      opts,
		NewClient: func(ctx context.Context, apiKey string) (llm.Client, error) {
			return a.newClient(ctx, cfg, apiKey)
		},
		RateLimit: ratelimit.FromEnv(ratelimit.DefaultConfig()),
		Logger:    a.logger,
	}

	if cfg.DatabaseURL != "" {
		database, err := openStore(ctx, cfg.DatabaseURL)
		if err != nil {
			a.logger.Warn("failed to connect to database, run history disabled", zap.Error(err))
		} else {
			defer database.Close()
			srvCfg.Store = database
		}
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}
