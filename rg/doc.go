// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package rg is a reference render graph engine.
//
// A Graph is built once per frame. Passes declare the resources they create,
// read and write, register the pipelines they use, and record their GPU work
// as command values (Dispatch, TraceRays, DrawPass, ClearColor,
// ClearDepthStencil). Execute orders passes by their declared data
// dependencies, allocates transients, compiles pipelines through a
// PipelineCache, and hands everything to a Device.
//
// Resources that persist across frames are wrapped in a TemporalResource and
// bracketed per frame:
//
//	h := rg.ImportTemporal[rg.BufferDesc](g, t)
//	pass := g.AddPass("update")
//	ref := rg.Write(pass, &h, rg.AccessComputeShaderWrite)
//	...
//	rg.ExportTemporal(g, h, t)
//	retired, err := g.Execute(ctx, device)
//	rg.RetireTemporal(retired, t)
//
// Misuse of the declaration API (stale handles, double imports, declaring
// into a finished pass) is a programming error and panics with an error
// wrapping one of the Err* sentinels. Setup and device failures are returned.
package rg
