// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/horizon/internal/server"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Long:  "Query the running server's status endpoint and show storage and knowledge source health.",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr := serverAddress(cmd)
	out := cmd.OutOrStdout()

	var body server.StatusBody
	if err := newAPIClient(addr).getJSON("/api/v1/status", nil, &body); err != nil {
		if hzerr.HasCode(err, hzerr.CodeCLIServerNotRunning) {
			_, _ = fmt.Fprintf(out, "Server at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Server at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Server at %s: %s (storage: %s)\n", addr, body.Status, body.Storage)
	for _, s := range body.Sources {
		state := "ok"
		if !s.Available {
			state = "failing: " + s.LastError
		}
		_, _ = fmt.Fprintf(out, "  %-20s %s (%d fetches, %d failures)\n", s.Source, state, s.FetchCount, s.FailureCount)
	}
	return nil
}
