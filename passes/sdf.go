// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/framegraph/compose"
	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gputypes"
)

// SdfRasterBricks are the buffers CalculateSdfBricksMeta produces for RasterSdf.
type SdfRasterBricks struct {
	// BrickMetaBuffer holds one indexed indirect draw record.
	BrickMetaBuffer rg.Handle[rg.BufferDesc]

	// BrickInstBuffer holds one float4 per brick instance.
	BrickInstBuffer rg.Handle[rg.BufferDesc]
}

// RaymarchSdf raymarches sdf into a new image described by desc.
func RaymarchSdf(g *rg.Graph, sdf rg.Handle[rg.ImageDesc], desc rg.ImageDesc) rg.Handle[rg.ImageDesc] {
	p := g.AddPass("raymarch sdf")
	output := rg.Create(p, desc)
	_ = compose.New(p, SdfRaymarchGbufferShader).
		Write(&output).
		Read(sdf).
		Dispatch(desc.Extent)
	return output
}

// EditSdf applies the pending edits to the 3D distance field sdf, or resets
// it to empty space when clear is set.
func EditSdf(g *rg.Graph, sdf *rg.Handle[rg.ImageDesc], clear bool) {
	shader := EditSdfShader
	if clear {
		shader = GenEmptySdfShader
	}
	p := g.AddPass("edit sdf")
	_ = compose.New(p, shader).
		Write(sdf).
		Dispatch(sdf.Desc().Extent)
}

// ClearSdfBricksMeta returns a new brick meta buffer holding an empty
// indexed indirect draw.
func ClearSdfBricksMeta(g *rg.Graph) rg.Handle[rg.BufferDesc] {
	p := g.AddPass("clear sdf bricks meta")
	meta := rg.Create(p, rg.NewBufferDesc(
		drawIndexedIndirectStride,
		gputypes.BufferUsageStorage|gputypes.BufferUsageIndirect,
	))
	_ = compose.New(p, ClearBricksMetaShader).
		Write(&meta).
		Dispatch([3]uint32{1, 1, 1})
	return meta
}

// CalculateSdfBricksMeta finds the bricks of sdf that contain a surface and
// returns the draw arguments and per-brick instance data for RasterSdf.
// One thread handles a 2x2x2 block of the field.
func CalculateSdfBricksMeta(g *rg.Graph, sdf rg.Handle[rg.ImageDesc]) SdfRasterBricks {
	meta := ClearSdfBricksMeta(g)

	dim := sdf.Desc().Extent[0]
	p := g.AddPass("calculate sdf bricks meta")
	inst := rg.Create(p, rg.NewBufferDesc(
		uint64(dim)*uint64(dim)*uint64(dim)*4*4,
		gputypes.BufferUsageStorage,
	))
	_ = compose.New(p, FindBricksShader).
		Read(sdf).
		Write(&meta).
		Write(&inst).
		Dispatch([3]uint32{dim / 2, dim / 2, dim / 2})

	return SdfRasterBricks{BrickMetaBuffer: meta, BrickInstBuffer: inst}
}
