// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrNoHAL is returned when a device provider does not expose HAL objects.
	ErrNoHAL = errors.New("native: provider does not expose HAL device and queue")

	// ErrClosed is returned for operations on a closed device.
	ErrClosed = errors.New("native: device closed")

	// ErrUnsupportedFormat is returned for image formats without a storage layout.
	ErrUnsupportedFormat = errors.New("native: unsupported image format")

	// ErrUnsupportedCommand is returned for commands the compute-only backend
	// cannot execute: draws, ray tracing and raw descriptor sets.
	ErrUnsupportedCommand = errors.New("native: unsupported command")

	// ErrNoShaderSource is returned when a pipeline's WGSL source cannot be found.
	ErrNoShaderSource = errors.New("native: shader source not found")

	// ErrShaderCompile is returned when naga rejects a shader.
	ErrShaderCompile = errors.New("native: shader compilation failed")

	// ErrForeignResource is returned for resources created by another device.
	ErrForeignResource = errors.New("native: resource not created by this device")

	// ErrTimeout is returned when the GPU does not complete a submission in time.
	ErrTimeout = errors.New("native: GPU timeout")
)
