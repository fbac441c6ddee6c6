// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/config"
	"github.com/gogpu/framegraph/rg"
)

// OpenDevice opens the backend named in cfg, or the best available backend
// when cfg.Backend is empty. Shader sources are read from cfg.ShaderRoot.
func OpenDevice(cfg config.Renderer) (rg.Device, error) {
	opts := backend.Options{Shaders: cfg.Shaders()}
	if cfg.Backend == "" {
		return backend.Default(opts)
	}
	return backend.Open(cfg.Backend, opts)
}
