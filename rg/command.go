// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import (
	"fmt"

	"golang.org/x/image/math/f32"
)

// RawDescriptorSet is an externally managed descriptor set, such as the
// bindless texture table. The graph passes it through untouched.
type RawDescriptorSet uint64

// DescriptorSet is either a list of composed bindings or a raw set.
type DescriptorSet struct {
	Index    uint32
	Bindings []Binding
	Raw      RawDescriptorSet
}

// IsRaw reports whether the set is an externally managed raw set.
func (s DescriptorSet) IsRaw() bool { return s.Raw != 0 }

// Set returns a composed descriptor set. Binding i is bound at slot i.
func Set(index uint32, bindings ...Binding) DescriptorSet {
	return DescriptorSet{Index: index, Bindings: bindings}
}

// RawSet returns a pass-through descriptor set.
func RawSet(index uint32, raw RawDescriptorSet) DescriptorSet {
	return DescriptorSet{Index: index, Raw: raw}
}

// Command is a recorded unit of GPU work. It is a closed set of value types:
// Dispatch, TraceRays, DrawPass, ClearColor and ClearDepthStencil. Commands
// are plain data, so tests and logs can inspect exactly what a pass will do.
type Command interface {
	// Bindings returns every resource binding the command references, in order.
	Bindings() []Binding

	isCommand()
}

// Dispatch runs a compute pipeline over Extent threads.
type Dispatch struct {
	Pipeline  ComputePipelineHandle
	Sets      []DescriptorSet
	Constants []byte
	Extent    [3]uint32
}

// TraceRays launches a ray-tracing pipeline over Extent rays.
type TraceRays struct {
	Pipeline RayTracingPipelineHandle
	Sets     []DescriptorSet
	Extent   [3]uint32
}

// Draw is one draw inside a DrawPass: DrawIndexed or DrawIndexedIndirect.
type Draw interface {
	drawBindings() []Binding
	isDraw()
}

// DrawIndexed draws IndexCount indices starting at IndexOffset. The index
// buffer is either a graph binding or an externally owned buffer that lives
// outside the graph (e.g. scene mesh data).
type DrawIndexed struct {
	IndexBuffer   *Binding
	ExternalIndex *Buffer
	IndexOffset   uint64
	IndexCount    uint32
	InstanceCount uint32
}

// DrawIndexedIndirect draws using arguments a previous pass wrote into Args.
type DrawIndexedIndirect struct {
	IndexBuffer Binding
	Args        Binding
	ArgsOffset  uint64
	DrawCount   uint32
	Stride      uint32
}

// DrawPass begins a render pass over the given attachments and issues Draws
// with one pipeline. The viewport and scissor cover Extent.
type DrawPass struct {
	RenderPass *RenderPassDesc
	Extent     [2]uint32
	Color      []Binding
	Depth      *Binding
	Pipeline   RasterPipelineHandle
	Sets       []DescriptorSet
	Draws      []Draw
}

// Viewport returns x, y, width and height of the full-extent viewport.
func (d DrawPass) Viewport() [4]float32 {
	return [4]float32{0, 0, float32(d.Extent[0]), float32(d.Extent[1])}
}

// Scissor returns the full-extent scissor rectangle.
func (d DrawPass) Scissor() [4]uint32 {
	return [4]uint32{0, 0, d.Extent[0], d.Extent[1]}
}

// ClearColor fills an image with a color.
type ClearColor struct {
	Image Binding
	Value f32.Vec4
}

// ClearDepthStencil fills a depth-stencil image.
type ClearDepthStencil struct {
	Image   Binding
	Depth   float32
	Stencil uint32
}

func (Dispatch) isCommand()          {}
func (TraceRays) isCommand()         {}
func (DrawPass) isCommand()          {}
func (ClearColor) isCommand()        {}
func (ClearDepthStencil) isCommand() {}
func (DrawIndexed) isDraw()          {}
func (DrawIndexedIndirect) isDraw()  {}

// Bindings implements Command.
func (c Dispatch) Bindings() []Binding { return setBindings(c.Sets) }

// Bindings implements Command.
func (c TraceRays) Bindings() []Binding { return setBindings(c.Sets) }

// Bindings implements Command.
func (c DrawPass) Bindings() []Binding {
	out := append([]Binding(nil), c.Color...)
	if c.Depth != nil {
		out = append(out, *c.Depth)
	}
	out = append(out, setBindings(c.Sets)...)
	for _, d := range c.Draws {
		out = append(out, d.drawBindings()...)
	}
	return out
}

// Bindings implements Command.
func (c ClearColor) Bindings() []Binding { return []Binding{c.Image} }

// Bindings implements Command.
func (c ClearDepthStencil) Bindings() []Binding { return []Binding{c.Image} }

func (d DrawIndexed) drawBindings() []Binding {
	if d.IndexBuffer == nil {
		return nil
	}
	return []Binding{*d.IndexBuffer}
}

func (d DrawIndexedIndirect) drawBindings() []Binding {
	return []Binding{d.IndexBuffer, d.Args}
}

func setBindings(sets []DescriptorSet) []Binding {
	var out []Binding
	for _, s := range sets {
		out = append(out, s.Bindings...)
	}
	return out
}

// commandName returns a short name for logs.
func commandName(c Command) string {
	switch c := c.(type) {
	case Dispatch:
		return fmt.Sprintf("Dispatch%v", c.Extent)
	case TraceRays:
		return fmt.Sprintf("TraceRays%v", c.Extent)
	case DrawPass:
		return fmt.Sprintf("DrawPass(%d draws)", len(c.Draws))
	case ClearColor:
		return "ClearColor"
	case ClearDepthStencil:
		return "ClearDepthStencil"
	default:
		return fmt.Sprintf("%T", c)
	}
}

// pipelineOf returns the pipeline a command uses, if any.
func pipelineOf(c Command) (PipelineID, bool) {
	switch c := c.(type) {
	case Dispatch:
		return c.Pipeline.id, true
	case TraceRays:
		return c.Pipeline.id, true
	case DrawPass:
		return c.Pipeline.id, true
	default:
		return 0, false
	}
}
