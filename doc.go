// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framegraph composes GPU frames from reusable pass recipes on top of
// a reference render graph.
//
// # Overview
//
// A frame is recorded into an rg.Graph and executed on a device. The graph
// tracks resource versions and the access type every pass declares.
// framegraph adds three layers on top of it:
//   - compose: a fluent builder for compute passes whose bindings follow call
//     order or a declared slot layout
//   - temporal: resources that outlive a frame, lent to each graph between
//     Begin and End and handed back by Retire
//   - passes: stand-alone recipes such as blur, light-gbuffer, rasterization
//     and ray tracing
//
// renderers/surfelgi builds a renderer from them: six temporal buffers hold a
// surfel spatial hash across frames.
//
// # Quick Start
//
//	cfg, err := config.LoadRenderer("renderer.toml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	framegraph.SetLogger(framegraph.NewLogger(os.Stderr, cfg))
//
//	dev, err := framegraph.OpenDevice(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	renderer, err := surfelgi.New(dev, cfg.SurfelGI())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer renderer.Close()
//
//	for frame := range frames {
//		g := rg.NewGraph()
//		gbuffer := rg.Import[rg.ImageDesc](g, frame.GBuffer, rg.AccessNothing)
//		depth := rg.Import[rg.ImageDesc](g, frame.Depth, rg.AccessNothing)
//
//		inst := renderer.Begin(g)
//		debug := inst.AllocateSurfels(g, gbuffer, depth)
//		passes.Blur(g, debug)
//		renderer.End(g, inst)
//
//		retired, err := g.Execute(ctx, dev)
//		renderer.Retire(retired)
//		retired.Release()
//	}
//
// # Backends
//
// backend/software runs Go kernels registered per shader path and is always
// available. backend/native runs WGSL compute kernels through gogpu/wgpu.
package framegraph

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
