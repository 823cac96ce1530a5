// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/horizon/internal/config"
)

// isolate points HOME at a temp dir and resets the global viper so config
// discovery and bootstrap never touch the real user environment.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// testConfig is the default configuration rooted at a temp data dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.DataDir = t.TempDir()
	return cfg
}

// startTestService wires a real service on a temp database and serves it
// with httptest. It returns the host:port address.
func startTestService(t *testing.T) (*Service, string) {
	t.Helper()
	svc, err := WireService(testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	ts := httptest.NewServer(svc.Server.Handler())
	t.Cleanup(ts.Close)

	old := defaultHTTPClient
	defaultHTTPClient = ts.Client()
	t.Cleanup(func() { defaultHTTPClient = old })

	return svc, strings.TrimPrefix(ts.URL, "http://")
}
