// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/sigil-dev/horizon/internal/agentcatalog"
	"github.com/sigil-dev/horizon/internal/config"
	"github.com/sigil-dev/horizon/internal/server"
	"github.com/sigil-dev/horizon/internal/store/sqlite"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, configuration, agent catalog, database, running server and disk space.",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr := serverAddress(cmd)
	dataDir := resolveDataDir()

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", checkConfig},
		{"Agent Catalog", checkCatalog},
		{"Database", func() string { return checkDatabase(cmd.Context(), dataDir) }},
		{"Server", func() string { return checkServer(addr) }},
		{"Disk Space", func() string { return checkDiskSpace(dataDir) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

// resolveDataDir returns the configured data directory with ~ expanded.
func resolveDataDir() string {
	cfg := config.Config{Storage: config.StorageConfig{DataDir: viper.GetString("storage.data_dir")}}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "~/.horizon"
	}
	dir, err := cfg.DataPath()
	if err != nil {
		return cfg.Storage.DataDir
	}
	return dir
}

func checkBinary() string {
	return fmt.Sprintf("horizon %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig() string {
	if _, err := config.FromViper(viper.GetViper()); err != nil {
		return fmt.Sprintf("invalid: %s", err)
	}
	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkCatalog() string {
	c := agentcatalog.Default()
	return fmt.Sprintf("%d agents (version %s, default %s)", len(c.IDs()), c.Version(), c.Snapshot("").AgentID)
}

// checkDatabase pings an existing database without creating one.
func checkDatabase(ctx context.Context, dataDir string) string {
	path := filepath.Join(dataDir, sqlite.DatabaseFile)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Sprintf("not created yet at %s (run 'horizon start')", path)
	}
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}

	b, err := sqlite.Open(path, nil)
	if err != nil {
		return fmt.Sprintf("error opening %s: %s", path, err)
	}
	defer func() { _ = b.Close() }()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := b.Ping(ctx); err != nil {
		return fmt.Sprintf("unreachable: %s", err)
	}
	return fmt.Sprintf("ok at %s (%s)", path, formatBytes(uint64(info.Size())))
}

func checkServer(addr string) string {
	var body server.StatusBody
	if err := newAPIClient(addr).getJSON("/api/v1/status", nil, &body); err != nil {
		if hzerr.HasCode(err, hzerr.CodeCLIServerNotRunning) {
			return fmt.Sprintf("not running at %s (run 'horizon start')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s at %s", body.Status, addr)
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// The data dir is created on first start; report its filesystem via home.
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
		kb = 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
