// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sigil-dev/horizon/internal/server"
	"github.com/sigil-dev/horizon/internal/store"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all routes registered and extracts the
// OpenAPI document that huma generates from the Go type annotations.
func generateSpec() ([]byte, error) {
	// Handlers are never invoked during spec generation, so the stubs only
	// need to satisfy the service interfaces.
	svc, err := server.NewServices(&stubContext{}, &stubFacts{})
	if err != nil {
		return nil, hzerr.Errorf(hzerr.CodeCLISetupFailure, "creating services: %w", err)
	}

	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		Services:   svc,
	})
	if err != nil {
		return nil, hzerr.Errorf(hzerr.CodeCLISetupFailure, "creating server: %w", err)
	}

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

type stubContext struct{ server.ContextService }

type stubFacts struct {
	store.FactStore
	store.EvidenceLedger
}
