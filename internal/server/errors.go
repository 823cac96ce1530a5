// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// apiError maps a coded error to a huma status error. Server-side failures
// are logged and their details withheld from the client.
func (s *Server) apiError(err error, msg string) error {
	status := hzerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "error", err, "code", string(hzerr.CodeOf(err)))
		return huma.NewError(status, msg)
	}
	return huma.NewError(status, msg, err)
}
