// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/horizon/internal/server"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

func TestServer_New(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	assert.NotNil(t, srv)
	assert.NotNil(t, srv.API())
}

func TestServer_New_EmptyListenAddr(t *testing.T) {
	_, err := server.New(server.Config{})
	require.Error(t, err)
	assert.True(t, hzerr.HasCode(err, hzerr.CodeServerConfigInvalid), "expected CodeServerConfigInvalid, got %s", hzerr.CodeOf(err))
	assert.Contains(t, err.Error(), "listen address is required")
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body server.HealthBody
	decode(t, w, &body)
	assert.Equal(t, "ok", body.Status)
}

func TestServer_OpenAPISpecListsKnowledgeRoutes(t *testing.T) {
	srv := newTestServer(t, &stubContextService{}, newFactService(t))

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "openapi")

	body := w.Body.String()
	for _, path := range []string{
		"/api/v1/context",
		"/api/v1/suggestions",
		"/api/v1/status",
		"/api/v1/facts",
		"/api/v1/facts/{id}",
		"/api/v1/facts/{id}/status",
		"/api/v1/facts/{id}/evidence",
	} {
		assert.Contains(t, body, `"`+path+`"`)
	}
}

func TestServer_MetricsUsesGivenGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "horizon_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0", Gatherer: reg})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "horizon_test_total 1")
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, err := server.New(server.Config{
		ListenAddr:  "127.0.0.1:0",
		CORSOrigins: []string{"https://app.example.com"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/context", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_ServeShutsDownOnCancel(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
