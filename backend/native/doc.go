// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native executes frame graphs on a GPU through the gogpu/wgpu HAL.
//
// The backend is compute only. Buffers map to HAL storage buffers. Images are
// stored linearly in storage buffers, one texel after another in row-major
// order, so WGSL kernels address them as arrays. Draw passes, ray tracing and
// raw descriptor sets return ErrUnsupportedCommand from Submit.
//
// Shaders are looked up by their graph path with the extension replaced by
// .wgsl, compiled to SPIR-V with naga, and specialized per binding signature
// on first use.
//
// A device can own its GPU:
//
//	dev, err := native.Open(native.WithShaders(os.DirFS("assets")))
//
// or share one with a host application:
//
//	dev, err := native.NewFromProvider(app, native.WithShaders(shaders))
//
// Importing the package registers the "native" backend with package backend.
package native
