// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gputypes"
)

// Descriptor set indices of the ray-tracing recipes.
const (
	rtOutputSet   = 0
	rtBindlessSet = 1
	rtTLASSet     = 3
)

func trianglePipeline(p *rg.PassBuilder, raygen string) rg.RayTracingPipelineHandle {
	return p.RegisterRayTracingPipeline(
		[]rg.PipelineShader{
			rg.NewPipelineShader(raygen, rg.StageRayGen),
			rg.NewPipelineShader(TriangleMissShader, rg.StageRayMiss),
			rg.NewPipelineShader(ShadowMissShader, rg.StageRayMiss),
			rg.NewPipelineShader(TriangleClosestHitShader, rg.StageRayClosestHit),
		},
		rg.RayTracingPipelineDesc{MaxPipelineRayRecursionDepth: 2},
	)
}

func traceTriangles(g *rg.Graph, name, raygen string, output *rg.Handle[rg.ImageDesc], bindless rg.RawDescriptorSet, tlas rg.Handle[rg.RayTracingAccelerationDesc]) {
	p := g.AddPass(name)
	pipeline := trianglePipeline(p, raygen)
	tlasRef := rg.Read(p, tlas, rg.AccessAnyShaderReadOther)
	out := rg.Write(p, output, rg.AccessAnyShaderWrite)
	p.Record(rg.TraceRays{
		Pipeline: pipeline,
		Sets: []rg.DescriptorSet{
			rg.Set(rtOutputSet, out.Bind()),
			rg.RawSet(rtBindlessSet, bindless),
			rg.Set(rtTLASSet, tlasRef.Bind()),
		},
		Extent: out.Desc().Extent,
	})
}

// RayTraceTest traces the scene in tlas into output with the triangle
// ray-tracing pipeline.
func RayTraceTest(g *rg.Graph, output *rg.Handle[rg.ImageDesc], bindless rg.RawDescriptorSet, tlas rg.Handle[rg.RayTracingAccelerationDesc]) {
	traceTriangles(g, "ray trace test", TriangleRayGenShader, output, bindless, tlas)
}

// ReferencePathTrace accumulates a reference path-traced image of tlas into
// output.
func ReferencePathTrace(g *rg.Graph, output *rg.Handle[rg.ImageDesc], bindless rg.RawDescriptorSet, tlas rg.Handle[rg.RayTracingAccelerationDesc]) {
	traceTriangles(g, "reference path trace", ReferencePathTraceShader, output, bindless, tlas)
}

// TraceSunShadowMask traces one shadow ray per depth texel towards the sun
// and returns the visibility mask: an R8Unorm image with the extent of depth.
func TraceSunShadowMask(g *rg.Graph, depth rg.Handle[rg.ImageDesc], tlas rg.Handle[rg.RayTracingAccelerationDesc]) rg.Handle[rg.ImageDesc] {
	p := g.AddPass("trace sun shadow mask")
	pipeline := p.RegisterRayTracingPipeline(
		[]rg.PipelineShader{
			rg.NewPipelineShader(TraceSunShadowMaskShader, rg.StageRayGen),
			rg.NewPipelineShader(ShadowMissShader, rg.StageRayMiss),
		},
		rg.RayTracingPipelineDesc{MaxPipelineRayRecursionDepth: 1},
	)
	depthRef := rg.Read(p, depth, rg.AccessComputeShaderReadSampledImageOrUniformTexelBuffer)
	tlasRef := rg.Read(p, tlas, rg.AccessAnyShaderReadOther)

	output := rg.Create(p, depth.Desc().WithFormat(gputypes.TextureFormatR8Unorm))
	out := rg.Write(p, &output, rg.AccessAnyShaderWrite)

	p.Record(rg.TraceRays{
		Pipeline: pipeline,
		Sets: []rg.DescriptorSet{
			rg.Set(rtOutputSet,
				rg.BindImageView(depthRef, rg.ImageViewDesc{Aspect: rg.AspectDepth}),
				out.Bind(),
			),
			rg.Set(rtTLASSet, tlasRef.Bind()),
		},
		Extent: out.Desc().Extent,
	})
	return output
}
