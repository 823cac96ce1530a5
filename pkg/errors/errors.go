// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package errors carries coded errors across the horizon packages. A code is
// a dotted path whose last segment names its Kind, so callers classify an
// error without matching on message text.
package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreFactNotFound        Code = "store.fact.get.not_found"
	CodeStoreFactUpsertInvalid   Code = "store.fact.upsert.invalid_input"
	CodeStoreFactUpsertConflict  Code = "store.fact.upsert.conflict"
	CodeStoreEvidenceInvalid     Code = "store.evidence.append.invalid_input"
	CodeStoreDatabaseFailure     Code = "store.database.failure"
	CodeStoreDatabaseUnavailable Code = "store.database.unavailable"
	CodeStoreBackendUnsupported  Code = "store.backend.unsupported"
	CodeStoreInvalidInput        Code = "store.invalid_input"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeCatalogParseInvalid Code = "catalog.parse.invalid"
	CodeHorizonParseInvalid Code = "horizon.parse.invalid"

	CodeKnowledgeAssembleInvalidInput Code = "knowledge.assemble.invalid_input"
	CodeKnowledgeFetchTimeout         Code = "knowledge.fetch.timeout"
	CodeKnowledgeFetchFailure         Code = "knowledge.fetch.failure"

	CodeTelemetrySetupFailure Code = "telemetry.setup.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLIServerNotRunning Code = "cli.server.not_running"
	CodeCLIRequestFailure   Code = "cli.request.failure"
	CodeCLIResponseInvalid  Code = "cli.response.invalid"
	CodeCLISetupFailure     Code = "cli.setup.failure"
	CodeCLIInputInvalid     Code = "cli.input.invalid"
)

// Kind groups codes by how a caller should react to them.
type Kind string

const (
	KindUnknown     Kind = ""
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindInvalid     Kind = "invalid"
	KindUnavailable Kind = "unavailable"
	KindTimeout     Kind = "timeout"
	KindFailure     Kind = "failure"
)

// kindBySuffix maps the last code segment to its Kind. Unlisted suffixes
// such as "unsupported" or "not_running" are failures.
var kindBySuffix = map[string]Kind{
	"not_found":      KindNotFound,
	"conflict":       KindConflict,
	"invalid":        KindInvalid,
	"invalid_input":  KindInvalid,
	"invalid_value":  KindInvalid,
	"invalid_format": KindInvalid,
	"unavailable":    KindUnavailable,
	"timeout":        KindTimeout,
}

var statusByKind = map[Kind]int{
	KindNotFound:    http.StatusNotFound,
	KindConflict:    http.StatusConflict,
	KindInvalid:     http.StatusBadRequest,
	KindUnavailable: http.StatusServiceUnavailable,
	KindTimeout:     http.StatusGatewayTimeout,
}

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldUserID(value string) Attr  { return Field("user_id", value) }
func FieldAgentID(value string) Attr { return Field("agent_id", value) }
func FieldFactID(value string) Attr  { return Field("fact_id", value) }
func FieldSource(value string) Attr  { return Field("source", value) }

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

// Wrap annotates err with msg. When err already carries a code that code
// stays authoritative; code applies only to uncoded causes.
func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

// FieldsOf returns the structured fields collected along the chain.
func FieldsOf(err error) map[string]any {
	oopsErr, ok := oops.AsOops(err)
	if err == nil || !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// KindOf classifies err by the last segment of its code.
func KindOf(err error) Kind {
	code := string(CodeOf(err))
	if code == "" {
		return KindUnknown
	}
	suffix := code[strings.LastIndex(code, ".")+1:]
	if kind, ok := kindBySuffix[suffix]; ok {
		return kind
	}
	return KindFailure
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsInvalidInput(err error) bool { return KindOf(err) == KindInvalid }
func IsUnavailable(err error) bool  { return KindOf(err) == KindUnavailable }
func IsTimeout(err error) bool      { return KindOf(err) == KindTimeout }

// HTTPStatus maps err onto a response status. Anything unclassified is a 500.
func HTTPStatus(err error) int {
	if status, ok := statusByKind[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}
