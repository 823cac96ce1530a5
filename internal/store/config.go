// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import "time"

// StorageConfig controls which backend the store factory uses.
type StorageConfig struct {
	Backend      string // "sqlite" is the only supported backend for now.
	MaxOpenConns int    // Connection pool bound; 0 uses the backend default.
	Retry        RetryConfig
}

// RetryConfig bounds retry-with-backoff on transient storage failures.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig mirrors the configuration defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     4,
		InitialInterval: 25 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}
