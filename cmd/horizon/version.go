// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/horizon/internal/agentcatalog"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print horizon version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "horizon %s (commit: %s, built: %s)\n", version, commit, date); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "agent catalog %s, %s\n", agentcatalog.Default().Version(), runtime.Version())
			return err
		},
	}
}
