// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// Tracer returns a named tracer from the global provider. Tracers obtained
// before SetupTracing runs pick up the configured provider once it is set.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// TracingConfig selects the OTLP/HTTP collector. An empty Endpoint
// disables export and leaves the no-op provider in place.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// SetupTracing installs a batching tracer provider exporting to cfg.Endpoint.
func SetupTracing(ctx context.Context, cfg TracingConfig) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return nil, hzerr.Wrap(err, hzerr.CodeTelemetrySetupFailure, "creating otlp exporter")
	}

	name := cfg.ServiceName
	if name == "" {
		name = "horizon"
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}
