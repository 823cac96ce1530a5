// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sigil-dev/horizon/internal/agentcatalog"
	"github.com/sigil-dev/horizon/internal/config"
	"github.com/sigil-dev/horizon/internal/knowledge"
	"github.com/sigil-dev/horizon/internal/server"
	"github.com/sigil-dev/horizon/internal/store"
	_ "github.com/sigil-dev/horizon/internal/store/sqlite" // register sqlite backend
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
	"github.com/sigil-dev/horizon/pkg/health"
)

// Service holds all wired subsystems and manages their lifecycle.
type Service struct {
	Server   *server.Server
	Backend  store.Backend
	Engine   *knowledge.Engine
	Registry *prometheus.Registry
	Health   *health.Tracker
}

// factService joins the fact store and its evidence ledger, which a backend
// exposes separately.
type factService struct {
	store.FactStore
	store.EvidenceLedger
}

// WireService opens storage and wires the engine and HTTP server from cfg.
func WireService(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dataPath, err := cfg.DataPath()
	if err != nil {
		return nil, err
	}

	backend, err := store.Open(cfg.StoreConfig(), dataPath)
	if err != nil {
		return nil, hzerr.Wrap(err, hzerr.CodeCLISetupFailure, "opening storage")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tracker := health.NewTracker()

	engine := knowledge.NewEngine(knowledge.EngineConfig{
		Facts:            backend.Facts(),
		Profiles:         backend.Profiles(),
		Tasks:            backend.Tasks(),
		Conversations:    backend.Conversations(),
		Catalog:          agentcatalog.Default(),
		Logger:           logger,
		Metrics:          knowledge.NewMetrics(reg),
		Health:           tracker,
		FetchTimeout:     cfg.Context.FetchTimeout,
		DefaultMaxBlocks: cfg.Context.MaxBlocks,
		SharedSubjects:   cfg.Context.SharedSubjects,
	})

	services, err := server.NewServices(engine,
		factService{FactStore: backend.Facts(), EvidenceLedger: backend.Evidence()},
		server.WithPinger(backend),
		server.WithHealth(tracker),
	)
	if err != nil {
		_ = backend.Close()
		return nil, hzerr.Wrap(err, hzerr.CodeCLISetupFailure, "creating services")
	}

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
		Gatherer:    reg,
		Services:    services,
		Logger:      logger,
	})
	if err != nil {
		_ = backend.Close()
		return nil, hzerr.Wrap(err, hzerr.CodeCLISetupFailure, "creating server")
	}

	logger.Info("storage ready", "backend", cfg.Storage.Backend, "data_dir", dataPath)

	return &Service{
		Server:   srv,
		Backend:  backend,
		Engine:   engine,
		Registry: reg,
		Health:   tracker,
	}, nil
}

// Start runs the HTTP server and blocks until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	return s.Server.Start(ctx)
}

// Close releases all resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.Backend != nil {
		if err := s.Backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
