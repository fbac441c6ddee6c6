// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	"github.com/gogpu/framegraph/rg"
)

// Backend name constants.
const (
	// BackendNative is the name of the Pure Go GPU backend (gogpu/wgpu HAL).
	BackendNative = "native"
	// BackendSoftware is the name of the CPU reference backend.
	BackendSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or no registered backend could be opened.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Options are passed to a backend factory.
type Options struct {
	// Shaders holds shader sources for backends that compile them.
	Shaders fs.FS
}

// Factory opens a new device.
type Factory func(opts Options) (rg.Device, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	backendPriority = []string{BackendNative, BackendSoftware}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens a device of the named backend.
func Open(name string, opts Options) (rg.Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	dev, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", name, err)
	}
	return dev, nil
}

// Default opens the best available backend. Backends are tried in priority
// order, then any other registered backend in name order. A backend whose
// factory fails is skipped.
func Default(opts Options) (rg.Device, error) {
	var errs []error
	for _, name := range candidates() {
		dev, err := Open(name, opts)
		if err == nil {
			slogger().Info("backend: selected", "name", name)
			return dev, nil
		}
		slogger().Warn("backend: unavailable", "name", name, "err", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(append([]error{ErrBackendNotAvailable}, errs...)...)
}

// MustDefault is like Default but panics if no backend can be opened.
func MustDefault(opts Options) rg.Device {
	dev, err := Default(opts)
	if err != nil {
		panic(err)
	}
	return dev
}

// candidates returns registered names in selection order.
func candidates() []string {
	available := Available()
	names := make([]string, 0, len(available))
	for _, name := range backendPriority {
		if slices.Contains(available, name) {
			names = append(names, name)
		}
	}
	for _, name := range available {
		if !slices.Contains(backendPriority, name) {
			names = append(names, name)
		}
	}
	return names
}
