// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/framegraph/rg"
)

// UploadedTriMesh locates one mesh inside a shared, externally owned index
// buffer.
type UploadedTriMesh struct {
	IndexBufferOffset uint64
	IndexCount        uint32
}

// RasterMeshesData is the scene geometry drawn by RasterMeshes.
type RasterMeshesData struct {
	Meshes []UploadedTriMesh

	// VertexBuffer holds the indices of every mesh. It lives outside the
	// graph and is bound directly.
	VertexBuffer *rg.Buffer

	// Bindless is the externally managed set holding vertex and material data.
	Bindless rg.RawDescriptorSet
}

// RasterSdfData is the input of RasterSdf.
type RasterSdfData struct {
	Sdf             rg.Handle[rg.ImageDesc]
	BrickInstBuffer rg.Handle[rg.BufferDesc]
	BrickMetaBuffer rg.Handle[rg.BufferDesc]
	CubeIndexBuffer rg.Handle[rg.BufferDesc]
}

// drawIndexedIndirectStride is the size of one indexed indirect draw record:
// five 32-bit words.
const drawIndexedIndirectStride = 20

func simpleRasterPipeline(p *rg.PassBuilder, renderPass *rg.RenderPassDesc) rg.RasterPipelineHandle {
	return p.RegisterRasterPipeline(
		[]rg.PipelineShader{
			rg.NewPipelineShader(RasterSimpleVertexShader, rg.StageVertex),
			rg.NewPipelineShader(RasterSimplePixelShader, rg.StagePixel),
		},
		rg.RasterPipelineDesc{RenderPass: renderPass, FaceCull: true},
	)
}

// attachments declares depth and color as the render targets of p and
// returns their bindings and the render extent, taken from color.
func attachments(p *rg.PassBuilder, depth, color *rg.Handle[rg.ImageDesc]) (rg.Binding, rg.Binding, [2]uint32) {
	depthRef := rg.Raster(p, depth, rg.AccessDepthStencilAttachmentWrite)
	colorRef := rg.Raster(p, color, rg.AccessColorAttachmentWrite)
	depthBinding := rg.BindImageView(depthRef, rg.ImageViewDesc{Aspect: rg.AspectDepth | rg.AspectStencil})
	return depthBinding, colorRef.Bind(), colorRef.Desc().Extent2D()
}

// RasterMeshes draws every mesh of data into color and depth.
func RasterMeshes(g *rg.Graph, renderPass *rg.RenderPassDesc, depth, color *rg.Handle[rg.ImageDesc], data RasterMeshesData) {
	p := g.AddPass("raster meshes")
	pipeline := simpleRasterPipeline(p, renderPass)
	depthBinding, colorBinding, extent := attachments(p, depth, color)

	draws := make([]rg.Draw, 0, len(data.Meshes))
	for _, m := range data.Meshes {
		draws = append(draws, rg.DrawIndexed{
			ExternalIndex: data.VertexBuffer,
			IndexOffset:   m.IndexBufferOffset,
			IndexCount:    m.IndexCount,
			InstanceCount: 1,
		})
	}
	p.Record(rg.DrawPass{
		RenderPass: renderPass,
		Extent:     extent,
		Color:      []rg.Binding{colorBinding},
		Depth:      &depthBinding,
		Pipeline:   pipeline,
		Sets:       []rg.DescriptorSet{rg.Set(0), rg.RawSet(1, data.Bindless)},
		Draws:      draws,
	})
}

// RasterSdf draws the SDF bricks found by CalculateSdfBricksMeta as cubes.
// The draw arguments are read from the brick meta buffer, written on the GPU.
func RasterSdf(g *rg.Graph, renderPass *rg.RenderPassDesc, depth, color *rg.Handle[rg.ImageDesc], data RasterSdfData) {
	p := g.AddPass("raster sdf")
	pipeline := simpleRasterPipeline(p, renderPass)

	sdf := rg.Read(p, data.Sdf, rg.AccessFragmentShaderReadSampledImageOrUniformTexelBuffer)
	brickInst := rg.Read(p, data.BrickInstBuffer, rg.AccessVertexShaderReadSampledImageOrUniformTexelBuffer)
	brickMeta := rg.Read(p, data.BrickMetaBuffer, rg.AccessIndirectBuffer)
	cubeIndex := rg.Read(p, data.CubeIndexBuffer, rg.AccessIndexBuffer)
	depthBinding, colorBinding, extent := attachments(p, depth, color)

	p.Record(rg.DrawPass{
		RenderPass: renderPass,
		Extent:     extent,
		Color:      []rg.Binding{colorBinding},
		Depth:      &depthBinding,
		Pipeline:   pipeline,
		Sets:       []rg.DescriptorSet{rg.Set(0, brickInst.Bind(), sdf.Bind())},
		Draws: []rg.Draw{rg.DrawIndexedIndirect{
			IndexBuffer: cubeIndex.Bind(),
			Args:        brickMeta.Bind(),
			DrawCount:   1,
			Stride:      drawIndexedIndirectStride,
		}},
	})
}
