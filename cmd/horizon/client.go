// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// defaultHTTPClient is the package-level HTTP client used by server commands.
// Overridden in tests via httptest.
var defaultHTTPClient = &http.Client{
	Timeout: 10 * time.Second,
}

// apiClient provides HTTP access to a running horizon server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

// newAPIClient creates a client targeting the given host:port address.
func newAPIClient(addr string) *apiClient {
	return &apiClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *apiClient) getJSON(path string, query url.Values, dest any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.sendJSON(http.MethodGet, path, nil, dest)
}

// sendJSON encodes body, sends it with method and decodes the response
// into dest when dest is non-nil. Connection refused maps to
// CodeCLIServerNotRunning.
func (c *apiClient) sendJSON(method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return hzerr.Wrap(err, hzerr.CodeCLIInputInvalid, "encoding request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return hzerr.Wrap(err, hzerr.CodeCLIRequestFailure, "building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isDialError(err) {
			return hzerr.New(hzerr.CodeCLIServerNotRunning, "server is not running (connection refused)")
		}
		return hzerr.Wrap(err, hzerr.CodeCLIRequestFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return hzerr.Wrap(err, hzerr.CodeCLIResponseInvalid, "invalid response")
	}
	return nil
}

// problem is the RFC 9457 body huma returns for errors.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message  string `json:"message"`
		Location string `json:"location"`
	} `json:"errors"`
}

func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := string(bytes.TrimSpace(raw))
	var p problem
	if err := json.Unmarshal(raw, &p); err == nil && (p.Detail != "" || p.Title != "") {
		msg = p.Detail
		if msg == "" {
			msg = p.Title
		}
		for _, e := range p.Errors {
			msg += "; " + e.Message
			if e.Location != "" {
				msg += " (" + e.Location + ")"
			}
		}
	}

	return hzerr.Errorf(hzerr.CodeCLIRequestFailure, "server returned status %d: %s", resp.StatusCode, msg)
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
