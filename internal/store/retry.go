// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"context"

	"github.com/cenkalti/backoff/v5"

	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// Retry runs op with exponential backoff. Only errors classified as
// unavailable (busy or locked database, dropped connection) are retried;
// everything else is returned on the first attempt.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func() (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig()
	}

	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !hzerr.IsUnavailable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(cfg.MaxAttempts)))
}

// RetryExec is Retry for operations without a result.
func RetryExec(ctx context.Context, cfg RetryConfig, op func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
