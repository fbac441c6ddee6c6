// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package passes provides stand-alone pass recipes.
//
// Each recipe adds exactly one pass to a graph: it registers the pipeline,
// declares every resource access with its precise access type and records one
// command. Recipes that produce a new resource return its handle; recipes
// that modify a resource in place take a *rg.Handle and advance it.
//
// Pipeline registration errors do not surface here. They are stored on the
// pass and returned by rg.Graph.Execute before any device work.
package passes

// Shader paths used by the recipes. Backends resolve them to shader code or,
// for the software backend, to registered kernels.
const (
	BlurShader           = "/assets/shaders/blur.hlsl"
	NormalizeAccumShader = "/assets/shaders/normalize_accum.hlsl"
	LightGbufferShader   = "/assets/shaders/light_gbuffer.hlsl"

	RasterSimpleVertexShader = "/assets/shaders/raster_simple_vs.hlsl"
	RasterSimplePixelShader  = "/assets/shaders/raster_simple_ps.hlsl"

	TriangleRayGenShader     = "/assets/shaders/rt/triangle.rgen.hlsl"
	TriangleMissShader       = "/assets/shaders/rt/triangle.rmiss.hlsl"
	TriangleClosestHitShader = "/assets/shaders/rt/triangle.rchit.hlsl"
	ShadowMissShader         = "/assets/shaders/rt/shadow.rmiss.hlsl"
	ReferencePathTraceShader = "/assets/shaders/rt/reference_path_trace.rgen.hlsl"
	TraceSunShadowMaskShader = "/assets/shaders/rt/trace_sun_shadow_mask.rgen.hlsl"
	SdfRaymarchGbufferShader = "/assets/shaders/sdf/sdf_raymarch_gbuffer.hlsl"
	GenEmptySdfShader        = "/assets/shaders/sdf/gen_empty_sdf.hlsl"
	EditSdfShader            = "/assets/shaders/sdf/edit_sdf.hlsl"
	ClearBricksMetaShader    = "/assets/shaders/sdf/clear_bricks_meta.hlsl"
	FindBricksShader         = "/assets/shaders/sdf/find_bricks.hlsl"
)
