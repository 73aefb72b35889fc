// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhisi-edu/zhisi/internal/account"
	accountpg "github.com/zhisi-edu/zhisi/internal/account/postgres"
	"github.com/zhisi-edu/zhisi/internal/config"
	"github.com/zhisi-edu/zhisi/internal/httpapi"
	"github.com/zhisi-edu/zhisi/internal/logging"
	"github.com/zhisi-edu/zhisi/internal/observability"
	"github.com/zhisi-edu/zhisi/internal/policy"
	"github.com/zhisi-edu/zhisi/internal/store"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account service",
		Long: `Start the HTTP API. Seeds the built-in administrator account
before accepting traffic.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}
	cmd.Flags().AddFlagSet(config.Flags())
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("zhisid", version, cfg.Log.Format, cfg.Log.Level)

	slog.Info("starting account service",
		"http_addr", cfg.HTTP.Addr,
		"log_format", cfg.Log.Format,
		"log_level", cfg.Log.Level,
	)

	pool, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	slog.Info("connected to database")

	hasher, err := account.NewHasher(cfg.Auth.Hasher, cfg.Auth.Seed)
	if err != nil {
		return err
	}

	repo := accountpg.NewAccountRepository(pool)

	// The admin seed must exist before any client-facing operation.
	if err := account.EnsureAdmin(ctx, repo, hasher); err != nil {
		return err
	}

	authSvc, err := account.NewService(repo, hasher)
	if err != nil {
		return err
	}
	adminSvc, err := account.NewAdminService(repo, hasher)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Observability server, if configured.
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func() bool {
			return pool.Ping(ctx) == nil
		})
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return err
		}
		metrics = obsServer.Metrics()
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	api := httpapi.New(authSvc, adminSvc, policy.Default(), metrics)
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Account service started")
	slog.Info("account service ready", "http_addr", cfg.HTTP.Addr)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		cancel()
		return err
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping HTTP server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors watches a server's error channel and cancels the
// context on error so a failing listener shuts the whole process down.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
