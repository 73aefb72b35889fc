// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the zhisid CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zhisid",
		Short: "Zhisi platform account service",
		Long: `zhisid is the account/identity service for the Zhisi educational
platform: registration, login, profile storage, and role-based access
for students, teachers, and administrators.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}
