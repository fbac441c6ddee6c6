// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads renderer settings and pipeline manifests.
//
// Renderer settings are TOML. Every key is optional and overrides the value
// of DefaultRenderer:
//
//	surfel_cells = 262144
//	slots_per_cell = 8
//	shader_root = "assets"
//	backend = "software"
//	log_level = "debug"
//
// Pipeline manifests are HCL and declare compute pipelines with the named
// binding slots of descriptor set 0, in binding order:
//
//	pipeline "allocate_surfels" {
//	  shader = "/assets/shaders/surfel_gi/allocate_surfels.hlsl"
//
//	  slot "gbuffer" { kind = "image" }
//	  slot "surfel_meta_buf" {
//	    kind  = "buffer"
//	    write = true
//	  }
//	}
package config
