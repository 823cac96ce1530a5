// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs a warning when the config file can be
// modified by group or other users, since it chooses the data directory
// and the trace export endpoint. It never fails startup. It reports
// whether a warning was logged.
func WarnInsecurePermissions(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return false
	}

	const groupWrite fs.FileMode = 0o020
	const otherWrite fs.FileMode = 0o002

	mode := info.Mode()
	if mode.Perm()&(groupWrite|otherWrite) == 0 {
		return false
	}

	slog.Warn("config file is writable by other users",
		"path", path,
		"mode", mode,
		"recommended", "0600",
	)
	return true
}
