// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build nogpu

package native

// Open always fails in nogpu builds.
func Open(...Option) (*Device, error) {
	return nil, ErrNoGPU
}
