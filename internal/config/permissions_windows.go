// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build windows

package config

import "log/slog"

// WarnInsecurePermissions is a no-op on Windows, where ACLs replace mode bits.
func WarnInsecurePermissions(path string) bool {
	if path != "" {
		slog.Debug("config permission check not implemented on Windows", "path", path)
	}
	return false
}
