// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surfelgi

import (
	"github.com/gogpu/framegraph/compose"
	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/framegraph/temporal"
	"github.com/gogpu/gputypes"
)

// AllocateSurfelsShader spawns surfels where the G-buffer lacks coverage.
const AllocateSurfelsShader = "/assets/shaders/surfel_gi/allocate_surfels.hlsl"

// AllocateSurfelsLayout is the binding layout of AllocateSurfelsShader.
func AllocateSurfelsLayout() *rg.BindingLayout {
	return &rg.BindingLayout{Slots: []rg.BindingSlot{
		{Name: "gbuffer", Kind: rg.KindImage},
		{Name: "depth", Kind: rg.KindImage},
		{Name: SurfelMetaBuf, Kind: rg.KindBuffer, Write: true},
		{Name: SurfelHashKeyBuf, Kind: rg.KindBuffer, Write: true},
		{Name: SurfelHashValueBuf, Kind: rg.KindBuffer, Write: true},
		{Name: CellIndexOffsetBuf, Kind: rg.KindBuffer},
		{Name: SurfelIndexBuf, Kind: rg.KindBuffer},
		{Name: SurfelSpatialBuf, Kind: rg.KindBuffer},
		{Name: "debug_out", Kind: rg.KindImage, Write: true},
	}}
}

// RenderInstance holds the frame-local handles of the renderer's temporal
// buffers. It is valid between Renderer.Begin and Renderer.End of one frame.
type RenderInstance struct {
	frame *temporal.Frame

	SurfelMetaBuf      *rg.Handle[rg.BufferDesc]
	SurfelHashKeyBuf   *rg.Handle[rg.BufferDesc]
	SurfelHashValueBuf *rg.Handle[rg.BufferDesc]
	CellIndexOffsetBuf *rg.Handle[rg.BufferDesc]
	SurfelIndexBuf     *rg.Handle[rg.BufferDesc]
	SurfelSpatialBuf   *rg.Handle[rg.BufferDesc]
}

// Frame returns the temporal frame the instance was created from.
func (inst *RenderInstance) Frame() *temporal.Frame { return inst.frame }

// AllocateSurfels adds the pass that spawns surfels for uncovered G-buffer
// texels. It reads gbuffer and the depth aspect of depth, updates the surfel
// counter and hash, reads the cell index structures and returns a debug
// visualization: an RGBA32Float image with the extent of gbuffer.
func (inst *RenderInstance) AllocateSurfels(g *rg.Graph, gbuffer, depth rg.Handle[rg.ImageDesc]) rg.Handle[rg.ImageDesc] {
	p := g.AddPass("allocate surfels")
	debugOut := rg.Create(p, gbuffer.Desc().WithFormat(gputypes.TextureFormatRGBA32Float))

	// Binding errors are kept on the pass and returned by Execute.
	_ = compose.NewWithLayout(p, rg.ComputePipelineDesc{Shader: AllocateSurfelsShader, Layout: AllocateSurfelsLayout()}).
		BindSlot("gbuffer", gbuffer).
		BindSlotAspect("depth", depth, rg.AspectDepth).
		BindSlotWrite(SurfelMetaBuf, inst.SurfelMetaBuf).
		BindSlotWrite(SurfelHashKeyBuf, inst.SurfelHashKeyBuf).
		BindSlotWrite(SurfelHashValueBuf, inst.SurfelHashValueBuf).
		BindSlot(CellIndexOffsetBuf, inst.CellIndexOffsetBuf).
		BindSlot(SurfelIndexBuf, inst.SurfelIndexBuf).
		BindSlot(SurfelSpatialBuf, inst.SurfelSpatialBuf).
		BindSlotWrite("debug_out", &debugOut).
		Dispatch(gbuffer.Desc().Extent)

	return debugOut
}
