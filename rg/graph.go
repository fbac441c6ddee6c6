// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"ocm.software/open-component-model/bindings/go/dag"
)

var nextGraphID atomic.Uint64

// graphResource is the graph-side bookkeeping for one resource.
type graphResource struct {
	kind  ResourceKind
	desc  any
	label string

	version    uint32
	lastWriter int
	readers    []int

	imported     Resource
	importAccess AccessType

	exported     bool
	exportAccess AccessType
}

// Graph is a per-frame render graph. It is built on a single goroutine,
// executed once, and then discarded.
//
// Passes run in an order that honors declared data dependencies: a pass that
// reads or writes a resource runs after the last pass that wrote it, and a
// writer runs after every earlier reader. Independent passes keep their
// declaration order.
type Graph struct {
	id        uint64
	label     string
	passes    []*PassBuilder
	resources []*graphResource
	pipelines *PipelineCache
	metrics   *Metrics
	executed  bool
}

// GraphOption configures a Graph.
type GraphOption func(*graphOptions)

type graphOptions struct {
	pipelines *PipelineCache
	metrics   *Metrics
	label     string
}

// WithPipelineCache shares a pipeline cache across graphs.
func WithPipelineCache(c *PipelineCache) GraphOption {
	return func(o *graphOptions) {
		o.pipelines = c
	}
}

// WithMetrics records graph metrics into m.
func WithMetrics(m *Metrics) GraphOption {
	return func(o *graphOptions) {
		o.metrics = m
	}
}

// WithLabel names the graph in logs.
func WithLabel(label string) GraphOption {
	return func(o *graphOptions) {
		o.label = label
	}
}

// NewGraph creates an empty graph.
func NewGraph(opts ...GraphOption) *Graph {
	o := graphOptions{label: "frame"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pipelines == nil {
		o.pipelines = NewPipelineCache()
	}
	return &Graph{
		id:        nextGraphID.Add(1),
		label:     o.label,
		pipelines: o.pipelines,
		metrics:   o.metrics,
	}
}

// Label returns the graph label.
func (g *Graph) Label() string { return g.label }

// PipelineCache returns the cache pipelines are registered in.
func (g *Graph) PipelineCache() *PipelineCache { return g.pipelines }

// Passes returns the declared passes in declaration order.
func (g *Graph) Passes() []*PassBuilder { return append([]*PassBuilder(nil), g.passes...) }

// Executed reports whether Execute was called.
func (g *Graph) Executed() bool { return g.executed }

// Err joins the registration errors of all passes.
func (g *Graph) Err() error {
	var errs []error
	for _, p := range g.passes {
		if p.err != nil {
			errs = append(errs, p.err)
		}
	}
	return errors.Join(errs...)
}

// AddPass declares a new pass.
func (g *Graph) AddPass(name string) *PassBuilder {
	g.checkRecording()
	p := &PassBuilder{
		graph: g,
		index: len(g.passes),
		name:  name,
		deps:  make(map[int]struct{}),
	}
	g.passes = append(g.passes, p)
	g.metrics.passDeclared()
	return p
}

func (g *Graph) checkRecording() {
	if g.executed {
		violation(ErrGraphExecuted, "graph %q", g.label)
	}
}

func (g *Graph) addResource(r *graphResource) RawHandle {
	g.resources = append(g.resources, r)
	//nolint:gosec // G115: resource counts per frame are far below 2^32
	return RawHandle{graph: g.id, id: uint32(len(g.resources))}
}

// lookup validates h against the graph and returns its bookkeeping.
func (g *Graph) lookup(h RawHandle, kind ResourceKind) *graphResource {
	if !h.IsValid() || h.id == 0 {
		violation(ErrInvalidHandle, "%s", h)
	}
	if h.graph != g.id {
		violation(ErrForeignHandle, "%s used in graph %q", h, g.label)
	}
	if int(h.id) > len(g.resources) {
		violation(ErrInvalidHandle, "%s out of range", h)
	}
	r := g.resources[h.id-1]
	if r.kind != kind {
		violation(ErrKindMismatch, "%s is %s, used as %s", h, r.kind, kind)
	}
	if r.exported {
		violation(ErrResourceExported, "%s (%s)", h, r.label)
	}
	if h.version != r.version {
		violation(ErrStaleHandle, "%s, current version %d (%s)", h, r.version, r.label)
	}
	return r
}

// Import brings an existing device resource into the graph. access is the
// state the resource is in when the frame starts.
func Import[D Desc](g *Graph, res Resource, access AccessType) Handle[D] {
	g.checkRecording()
	desc, ok := descOf[D](res)
	if !ok {
		violation(ErrKindMismatch, "import of %s as %s", res.Kind(), kindOf[D]())
	}
	raw := g.addResource(&graphResource{
		kind:         kindOf[D](),
		desc:         desc,
		label:        res.ResourceLabel(),
		lastWriter:   -1,
		imported:     res,
		importAccess: access,
	})
	return Handle[D]{raw: raw, desc: desc}
}

// Export marks h as leaving the graph. No pass may access the resource after
// it is exported. access is the state the resource is transitioned to at the
// end of the frame; AccessNothing keeps the last declared access.
//
// Exported transients outlive the graph and are owned by the RetiredGraph.
func Export[D Desc](g *Graph, h Handle[D], access AccessType) ExportedHandle[D] {
	g.checkRecording()
	r := g.lookup(h.raw, kindOf[D]())
	r.exported = true
	r.exportAccess = access
	return ExportedHandle[D]{raw: h.raw, desc: h.desc}
}

// Execute orders and submits the graph to device and returns the retired
// graph. The graph cannot be used afterwards.
//
// Pass registration errors are returned before any device work. The returned
// RetiredGraph is non-nil even when err is not, so temporal resources can be
// retired and the next frame can import them again.
func (g *Graph) Execute(ctx context.Context, device Device) (*RetiredGraph, error) {
	g.checkRecording()
	g.executed = true
	start := time.Now()

	retired := &RetiredGraph{
		graph:   g.id,
		label:   g.label,
		device:  device,
		exports: make(map[uint32]exportRecord),
		metrics: g.metrics,
	}
	err := g.execute(ctx, device, retired)
	g.metrics.frameExecuted(start, err)
	if err != nil {
		slogger().Warn("rg: graph execution failed", "graph", g.label, "err", err)
	} else {
		slogger().Debug("rg: graph executed", "graph", g.label, "passes", len(g.passes),
			"resources", len(g.resources), "elapsed", time.Since(start))
	}
	return retired, err
}

func (g *Graph) execute(ctx context.Context, device Device, retired *RetiredGraph) error {
	order, err := g.order()
	if err != nil {
		return err
	}
	passes, final := g.compile(order)

	// Exports are resolved from declarations alone, so they are valid even
	// when the device fails below.
	for i, r := range g.resources {
		if !r.exported {
			continue
		}
		access := final[i]
		if r.exportAccess != AccessNothing {
			access = r.exportAccess
		}
		//nolint:gosec // G115: bounded by resource count
		retired.exports[uint32(i+1)] = exportRecord{resource: r.imported, access: access}
	}

	if err := g.Err(); err != nil {
		return err
	}
	if device == nil {
		return ErrNilDevice
	}

	table := newResourceTable()
	var transients []Resource
	defer func() {
		for _, res := range transients {
			destroyResource(device, res)
		}
	}()
	for i, r := range g.resources {
		//nolint:gosec // G115: bounded by resource count
		id := uint32(i + 1)
		if r.imported != nil {
			table.resources[id] = r.imported
			continue
		}
		res, err := createTransient(device, r)
		if err != nil {
			return err
		}
		g.metrics.transientCreated(r.kind)
		table.resources[id] = res
		if rec, ok := retired.exports[id]; ok {
			rec.resource = res
			retired.exports[id] = rec
			retired.owned = append(retired.owned, res)
			g.metrics.exportedTransients(1)
		} else {
			transients = append(transients, res)
		}
	}

	for _, idx := range order {
		for _, id := range g.passes[idx].pipelines {
			if _, ok := table.pipelines[id]; ok {
				continue
			}
			p, hit, err := g.pipelines.getOrCreate(device, id)
			if err != nil {
				return err
			}
			g.metrics.pipelineLookup(hit)
			table.pipelines[id] = p
		}
	}

	if err := device.Submit(ctx, passes, table); err != nil {
		return fmt.Errorf("rg: submit %q to %s: %w", g.label, device.Name(), err)
	}
	return nil
}

// order returns pass indices sorted so that every pass follows its
// dependencies.
func (g *Graph) order() ([]int, error) {
	d := dag.NewDirectedAcyclicGraph[int]()
	for i := range g.passes {
		if err := d.AddVertex(i); err != nil {
			return nil, fmt.Errorf("rg: order passes: %w", err)
		}
	}
	for i, p := range g.passes {
		for _, dep := range p.Dependencies() {
			if err := d.AddEdge(i, dep); err != nil {
				return nil, fmt.Errorf("rg: order passes: %w", err)
			}
		}
	}
	order, err := d.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("rg: order passes: %w", err)
	}
	return order, nil
}

// compile walks passes in execution order, recording the access transition
// each pass requests, and returns the compiled passes and the final access of
// every resource.
func (g *Graph) compile(order []int) ([]CompiledPass, []AccessType) {
	current := make([]AccessType, len(g.resources))
	for i, r := range g.resources {
		current[i] = r.importAccess
	}
	out := make([]CompiledPass, 0, len(order))
	for _, idx := range order {
		p := g.passes[idx]
		cp := CompiledPass{Name: p.name, Index: p.index, Commands: p.commands}
		for _, a := range p.accesses {
			slot := a.Handle.id - 1
			cp.Transitions = append(cp.Transitions, Transition{
				Handle: a.Handle,
				Kind:   a.Kind,
				From:   current[slot],
				To:     a.Access,
			})
			current[slot] = a.Access
		}
		if !p.recorded {
			slogger().Warn("rg: pass declared no commands", "graph", g.label, "pass", p.name)
		}
		out = append(out, cp)
	}
	return out, current
}

func createTransient(device Device, r *graphResource) (Resource, error) {
	switch desc := r.desc.(type) {
	case BufferDesc:
		b, err := device.CreateBuffer(desc, r.label)
		if err != nil {
			return nil, fmt.Errorf("rg: create buffer %q: %w", r.label, err)
		}
		return b, nil
	case ImageDesc:
		img, err := device.CreateImage(desc, r.label)
		if err != nil {
			return nil, fmt.Errorf("rg: create image %q: %w", r.label, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("rg: transient %s %q is not supported; import it instead", r.kind, r.label)
	}
}

func destroyResource(device Device, res Resource) {
	switch r := res.(type) {
	case *Buffer:
		device.DestroyBuffer(r)
	case *Image:
		device.DestroyImage(r)
	}
}

type exportRecord struct {
	resource Resource
	access   AccessType
}

// RetiredGraph is what remains of a graph after Execute: the final state of
// exported resources.
type RetiredGraph struct {
	graph   uint64
	label   string
	device  Device
	exports map[uint32]exportRecord
	owned   []Resource
	metrics *Metrics
}

// Label returns the label of the executed graph.
func (r *RetiredGraph) Label() string { return r.label }

// ExportedResource returns the device resource and final access type of an
// exported handle.
func ExportedResource[D Desc](r *RetiredGraph, h ExportedHandle[D]) (Resource, AccessType) {
	rec := r.export(h.raw)
	return rec.resource, rec.access
}

func (r *RetiredGraph) export(h RawHandle) exportRecord {
	if h.graph != r.graph {
		violation(ErrForeignHandle, "%s resolved against retired graph %q", h, r.label)
	}
	rec, ok := r.exports[h.id]
	if !ok {
		violation(ErrInvalidHandle, "%s was not exported from %q", h, r.label)
	}
	return rec
}

// Release destroys the transients that were kept alive by exports.
// Imported resources are never destroyed.
func (r *RetiredGraph) Release() {
	if r.device != nil {
		for _, res := range r.owned {
			destroyResource(r.device, res)
		}
	}
	r.metrics.exportedTransients(-len(r.owned))
	r.owned = nil
}
