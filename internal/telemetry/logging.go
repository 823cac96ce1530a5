// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package telemetry

import (
	"io"
	"log/slog"
	"strings"

	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// ParseLevel maps a configuration level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, hzerr.Errorf(hzerr.CodeConfigValidateInvalidValue, "unknown log level %q", level)
	}
}

// NewLogger builds a text or JSON logger writing to w.
func NewLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, hzerr.Errorf(hzerr.CodeConfigValidateInvalidValue, "unknown log format %q", format)
	}
}
