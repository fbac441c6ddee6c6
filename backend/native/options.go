// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"io/fs"
	"time"
)

// Option configures a Device.
type Option func(*options)

type options struct {
	shaders       fs.FS
	workgroupSize [3]uint32
	submitTimeout time.Duration
}

func defaultOptions() options {
	return options{
		workgroupSize: [3]uint32{8, 8, 1},
		submitTimeout: 5 * time.Second,
	}
}

// WithShaders sets the file system WGSL sources are read from. Graph shader
// paths are made relative by dropping the leading slash.
func WithShaders(fsys fs.FS) Option {
	return func(o *options) {
		o.shaders = fsys
	}
}

// WithWorkgroupSize sets the @workgroup_size the WGSL kernels declare. A
// dispatch over an extent launches ceil(extent / size) workgroups per axis.
// Zero components are ignored.
func WithWorkgroupSize(x, y, z uint32) Option {
	return func(o *options) {
		for i, v := range [3]uint32{x, y, z} {
			if v > 0 {
				o.workgroupSize[i] = v
			}
		}
	}
}

// WithSubmitTimeout sets how long Submit waits for the GPU.
func WithSubmitTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.submitTimeout = d
		}
	}
}
