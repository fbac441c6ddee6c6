// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend selects the device a frame graph executes on.
//
// Backends are registered via init() functions and selected at runtime.
// The software backend is registered on import; the native GPU backend
// registers itself when its package is imported:
//
//	import (
//		"github.com/gogpu/framegraph/backend"
//		_ "github.com/gogpu/framegraph/backend/native"
//	)
//
// # Backend Selection
//
// Use Default to open the best available backend, or Open to request a
// specific backend by name:
//
//	dev, err := backend.Default(backend.Options{Shaders: os.DirFS("assets")})
//
//	// Or request a specific backend
//	dev, err := backend.Open(backend.BackendSoftware, backend.Options{})
//
// # Available Backends
//
//   - "native": Pure Go GPU backend on gogpu/wgpu HAL (compute only)
//   - "software": CPU reference backend running Go kernels (always available)
package backend
