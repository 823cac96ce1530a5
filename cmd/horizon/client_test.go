// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

func TestAPIClient_ProblemDetails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"title":"Unprocessable Entity","detail":"validation failed","errors":[{"message":"expected value to be one of \"short, medium, long\"","location":"body.horizon"}]}`))
	}))
	defer ts.Close()

	c := newAPIClient(strings.TrimPrefix(ts.URL, "http://"))
	c.http = ts.Client()

	err := c.sendJSON(http.MethodPut, "/api/v1/facts", map[string]string{"horizon": "x"}, nil)
	require.Error(t, err)
	assert.True(t, hzerr.HasCode(err, hzerr.CodeCLIRequestFailure))
	assert.Contains(t, err.Error(), "status 422")
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "(body.horizon)")
}

func TestAPIClient_InvalidJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer ts.Close()

	c := newAPIClient(strings.TrimPrefix(ts.URL, "http://"))
	c.http = ts.Client()

	var dest map[string]any
	err := c.getJSON("/anything", nil, &dest)
	assert.True(t, hzerr.HasCode(err, hzerr.CodeCLIResponseInvalid))
}

func TestAPIClient_ConnectionRefused(t *testing.T) {
	err := newAPIClient("127.0.0.1:1").getJSON("/health", nil, &struct{}{})
	assert.True(t, hzerr.HasCode(err, hzerr.CodeCLIServerNotRunning))
}
