// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/horizon/internal/knowledge"
	"github.com/sigil-dev/horizon/internal/server"
	"github.com/sigil-dev/horizon/internal/store"
	"github.com/sigil-dev/horizon/internal/store/sqlite"
)

// stubContextService returns canned results and records the last options.
type stubContextService struct {
	payload     *knowledge.Payload
	suggestions *knowledge.Suggestions
	err         error
	last        knowledge.Options
}

func (s *stubContextService) Assemble(_ context.Context, opts knowledge.Options) (*knowledge.Payload, error) {
	s.last = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func (s *stubContextService) SuggestFor(_ context.Context, opts knowledge.Options) (*knowledge.Suggestions, error) {
	s.last = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.suggestions, nil
}

func openBackend(t *testing.T) *sqlite.Backend {
	t.Helper()
	b, err := sqlite.Open(filepath.Join(t.TempDir(), "horizon.db"), &store.StorageConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func newFactService(t *testing.T) *sqlite.FactStore {
	t.Helper()
	return openBackend(t).FactStore()
}

func newTestServer(t *testing.T, ctxSvc server.ContextService, facts server.FactService, opts ...server.ServicesOption) *server.Server {
	t.Helper()
	svc, err := server.NewServices(ctxSvc, facts, opts...)
	require.NoError(t, err)
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0", Services: svc})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
}
