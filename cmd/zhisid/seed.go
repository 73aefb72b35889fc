// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/zhisi-edu/zhisi/internal/account"
	accountpg "github.com/zhisi-edu/zhisi/internal/account/postgres"
	"github.com/zhisi-edu/zhisi/internal/config"
	"github.com/zhisi-edu/zhisi/internal/store"
)

// Default timeout for the seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
	hasher  string
	seed    string
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Apply migrations and seed the administrator account",
		Long: `Runs pending migrations and creates the built-in administrator
account if it does not exist. Idempotent - running it again observes
the existing account and creates nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().StringVar(&cfg.hasher, "auth-hasher", config.DefaultHasher, "credential hasher (seeded or argon2id)")
	cmd.Flags().StringVar(&cfg.seed, "auth-seed", "", "digest seed override for the seeded hasher")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	databaseURL := databaseURLFromCmd(cmd)
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (--database-url or config file)")
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM.
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Running migrations...")
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		_ = m.Close() //nolint:errcheck // migration error takes precedence
		return err
	}
	if err := m.Close(); err != nil {
		return err
	}

	cmd.Println("Connecting to database...")
	pool, err := store.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	hasher, err := account.NewHasher(cfg.hasher, cfg.seed)
	if err != nil {
		return err
	}

	if err := account.EnsureAdmin(ctx, accountpg.NewAccountRepository(pool), hasher); err != nil {
		return err
	}

	cmd.Println("Seeding complete")
	return nil
}
