// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import (
	"fmt"
	"slices"
)

// PassAccess is one declared resource access of a pass.
type PassAccess struct {
	Handle RawHandle
	Kind   ResourceKind
	Access AccessType
}

// PassBuilder declares the resources, pipelines and commands of one pass.
//
// Declarations are made through the package-level functions Create, Read,
// Write and Raster, which need a type parameter Go methods cannot carry.
// Record finalizes the pass; declaring into it afterwards panics with
// ErrPassFinalized.
//
// Pipeline registration failures do not panic. They are kept as the pass
// error (first error wins) and returned by Graph.Execute before any device
// work is done.
type PassBuilder struct {
	graph     *Graph
	index     int
	name      string
	accesses  []PassAccess
	deps      map[int]struct{}
	pipelines []PipelineID
	commands  []Command
	err       error
	recorded  bool
}

// Name returns the pass name.
func (p *PassBuilder) Name() string { return p.name }

// Index returns the declaration index of the pass in its graph.
func (p *PassBuilder) Index() int { return p.index }

// Graph returns the graph the pass belongs to.
func (p *PassBuilder) Graph() *Graph { return p.graph }

// Err returns the first registration error of the pass.
func (p *PassBuilder) Err() error { return p.err }

// Fail stores err as the pass error unless one is already set.
func (p *PassBuilder) Fail(err error) {
	if err == nil || p.err != nil {
		return
	}
	p.err = fmt.Errorf("pass %q: %w", p.name, err)
	slogger().Debug("rg: pass failed", "pass", p.name, "err", err)
}

// Recorded reports whether the pass recorded its commands.
func (p *PassBuilder) Recorded() bool { return p.recorded }

// Accesses returns the declared accesses in declaration order.
func (p *PassBuilder) Accesses() []PassAccess { return slices.Clone(p.accesses) }

// Commands returns the recorded commands.
func (p *PassBuilder) Commands() []Command { return slices.Clone(p.commands) }

// Dependencies returns the indices of passes this pass must run after.
func (p *PassBuilder) Dependencies() []int {
	out := make([]int, 0, len(p.deps))
	for d := range p.deps {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

func (p *PassBuilder) checkRecording() {
	p.graph.checkRecording()
	if p.recorded {
		violation(ErrPassFinalized, "pass %q", p.name)
	}
}

func (p *PassBuilder) dependOn(pass int) {
	if pass >= 0 && pass != p.index {
		p.deps[pass] = struct{}{}
	}
}

func (p *PassBuilder) declared(b Binding) bool {
	for _, a := range p.accesses {
		if a.Handle == b.Handle && a.Access == b.Access {
			return true
		}
	}
	return false
}

func (p *PassBuilder) usePipeline(id PipelineID) {
	if !slices.Contains(p.pipelines, id) {
		p.pipelines = append(p.pipelines, id)
	}
}

// RegisterComputePipeline registers a compute pipeline for shader path.
func (p *PassBuilder) RegisterComputePipeline(path string) ComputePipelineHandle {
	return p.RegisterComputePipelineDesc(ComputePipelineDesc{Shader: path})
}

// RegisterComputePipelineDesc registers a compute pipeline, optionally with a
// declared binding layout. On failure the pass error is set and the returned
// handle is invalid.
func (p *PassBuilder) RegisterComputePipelineDesc(desc ComputePipelineDesc) ComputePipelineHandle {
	p.checkRecording()
	id, err := p.graph.pipelines.Register(&desc)
	if err != nil {
		p.Fail(fmt.Errorf("register compute pipeline %q: %w", desc.Shader, err))
		return ComputePipelineHandle{}
	}
	p.usePipeline(id)
	h := ComputePipelineHandle{id: id}
	if stored, ok := p.graph.pipelines.Desc(id); ok {
		if cd, ok := stored.(*ComputePipelineDesc); ok {
			h.layout = cd.Layout
		}
	}
	return h
}

// RegisterRasterPipeline registers a raster pipeline built from stages.
func (p *PassBuilder) RegisterRasterPipeline(stages []PipelineShader, desc RasterPipelineDesc) RasterPipelineHandle {
	p.checkRecording()
	desc.Stages = stages
	id, err := p.graph.pipelines.Register(&desc)
	if err != nil {
		p.Fail(fmt.Errorf("register raster pipeline: %w", err))
		return RasterPipelineHandle{}
	}
	p.usePipeline(id)
	return RasterPipelineHandle{id: id}
}

// RegisterRayTracingPipeline registers a ray-tracing pipeline built from stages.
func (p *PassBuilder) RegisterRayTracingPipeline(stages []PipelineShader, desc RayTracingPipelineDesc) RayTracingPipelineHandle {
	p.checkRecording()
	desc.Stages = stages
	id, err := p.graph.pipelines.Register(&desc)
	if err != nil {
		p.Fail(fmt.Errorf("register ray tracing pipeline: %w", err))
		return RayTracingPipelineHandle{}
	}
	p.usePipeline(id)
	return RayTracingPipelineHandle{id: id}
}

// Record stores the commands executed for this pass and finalizes it.
//
// Every binding a command references must have been declared by this pass
// with the same handle version and access type; otherwise Record panics with
// ErrUnregisteredBinding.
func (p *PassBuilder) Record(cmds ...Command) {
	p.checkRecording()
	for _, c := range cmds {
		if c == nil {
			violation(ErrUnregisteredBinding, "pass %q: nil command", p.name)
		}
		for _, b := range c.Bindings() {
			if !p.declared(b) {
				violation(ErrUnregisteredBinding, "pass %q: %s in %s", p.name, b, commandName(c))
			}
		}
		if id, ok := pipelineOf(c); ok && id != 0 {
			p.usePipeline(id)
		}
	}
	p.commands = append(p.commands, cmds...)
	p.recorded = true
	slogger().Debug("rg: pass recorded", "pass", p.name, "commands", len(cmds), "accesses", len(p.accesses))
}

// Create declares a new transient resource owned by the graph. The resource
// is allocated at Execute and released after submission unless exported.
func Create[D Desc](p *PassBuilder, desc D) Handle[D] {
	p.checkRecording()
	g := p.graph
	raw := g.addResource(&graphResource{
		kind:       kindOf[D](),
		desc:       desc,
		label:      fmt.Sprintf("%s.%d", p.name, len(g.resources)),
		lastWriter: -1,
	})
	return Handle[D]{raw: raw, desc: desc}
}

// Read declares a read of h by p. access must not be a write access.
func Read[D Desc](p *PassBuilder, h Handle[D], access AccessType) Ref[D] {
	p.checkRecording()
	if !access.IsRead() {
		violation(ErrAccessMismatch, "pass %q reads %s with %s", p.name, h.raw, access)
	}
	r := p.graph.lookup(h.raw, kindOf[D]())
	p.dependOn(r.lastWriter)
	if !slices.Contains(r.readers, p.index) {
		r.readers = append(r.readers, p.index)
	}
	p.accesses = append(p.accesses, PassAccess{Handle: h.raw, Kind: r.kind, Access: access})
	return Ref[D]{handle: h.raw, desc: h.desc, access: access}
}

// Write declares a write of *h by p and advances h to the new version.
// Copies of h taken before the write become stale.
func Write[D Desc](p *PassBuilder, h *Handle[D], access AccessType) Ref[D] {
	p.checkRecording()
	if !access.IsWrite() {
		violation(ErrAccessMismatch, "pass %q writes %s with %s", p.name, h.raw, access)
	}
	r := p.graph.lookup(h.raw, kindOf[D]())
	p.dependOn(r.lastWriter)
	for _, reader := range r.readers {
		p.dependOn(reader)
	}
	r.version++
	r.lastWriter = p.index
	r.readers = r.readers[:0]
	h.raw.version = r.version
	p.accesses = append(p.accesses, PassAccess{Handle: h.raw, Kind: r.kind, Access: access})
	return Ref[D]{handle: h.raw, desc: h.desc, access: access}
}

// Raster declares an image as a render attachment of p. Write attachment
// accesses advance the handle version like Write.
func Raster(p *PassBuilder, h *Handle[ImageDesc], access AccessType) Ref[ImageDesc] {
	if !access.IsAttachment() {
		p.checkRecording()
		violation(ErrAccessMismatch, "pass %q rasters to %s with %s", p.name, h.raw, access)
	}
	if access.IsWrite() {
		return Write(p, h, access)
	}
	return Read(p, *h, access)
}
