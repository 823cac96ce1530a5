// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"maps"
	"slices"
	"strings"
	"sync"

	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// BackendFactory opens a backend rooted at dataPath.
type BackendFactory func(cfg *StorageConfig, dataPath string) (Backend, error)

var (
	backendFactories = map[string]BackendFactory{}
	factoriesMu      sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f BackendFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	backendFactories[name] = f
}

// Backends lists the registered backend names in order.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(backendFactories))
}

func resolveBackend(cfg *StorageConfig) string {
	if cfg == nil || cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// Open creates the configured backend. The dataPath directory holds the
// backend's files.
func Open(cfg *StorageConfig, dataPath string) (Backend, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := backendFactories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, hzerr.Errorf(hzerr.CodeStoreBackendUnsupported, "unsupported storage backend %q (registered: %s)",
			backend, strings.Join(Backends(), ", "))
	}

	if cfg == nil {
		cfg = &StorageConfig{}
	}
	return factory(cfg, dataPath)
}
