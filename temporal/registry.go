// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package temporal

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/rg"
)

var (
	// ErrDuplicateName is returned when registering two resources under one name.
	ErrDuplicateName = errors.New("temporal: duplicate resource name")

	// ErrUnknownName is returned by Lookup for a name the registry does not hold.
	ErrUnknownName = errors.New("temporal: unknown resource name")

	// ErrFrameInProgress is raised by Registry.Begin while a previous frame
	// has not ended, and returned by Add during a frame.
	ErrFrameInProgress = errors.New("temporal: frame in progress")

	// ErrForeignFrame is raised when ending a frame of another registry or graph.
	ErrForeignFrame = errors.New("temporal: frame belongs to a different registry or graph")

	// ErrFrameEnded is raised when ending a frame twice.
	ErrFrameEnded = errors.New("temporal: frame already ended")
)

// Entry is a temporal resource that a Registry can hold. It is implemented
// by *Temporal[D] for every description type.
type Entry interface {
	Label() string
	State() rg.TemporalState
	Close() error

	begin(g *rg.Graph) any
	end(g *rg.Graph, h any)
	retire(r *rg.RetiredGraph)
}

// Registry is an ordered, named collection of temporal resources that are
// bracketed together.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	names   []string
	entries map[string]Entry
	frame   *Frame
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Add registers e under name. Resources are imported and exported in
// registration order.
func (r *Registry) Add(name string, e Entry) error {
	if r.frame != nil {
		return fmt.Errorf("%w: cannot add %q", ErrFrameInProgress, name)
	}
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.names = append(r.names, name)
	r.entries[name] = e
	return nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string { return append([]string(nil), r.names...) }

// Len returns the number of registered resources.
func (r *Registry) Len() int { return len(r.names) }

// Frame holds the frame-local handles of every resource in a registry.
type Frame struct {
	reg     *Registry
	graph   *rg.Graph
	handles map[string]any
	ended   bool
}

// Graph returns the graph the frame was begun in.
func (f *Frame) Graph() *rg.Graph { return f.graph }

// Begin imports every registered resource into g.
func (r *Registry) Begin(g *rg.Graph) *Frame {
	if r.frame != nil {
		panic(fmt.Errorf("%w: begin in %q", ErrFrameInProgress, g.Label()))
	}
	f := &Frame{reg: r, graph: g, handles: make(map[string]any, len(r.names))}
	for _, name := range r.names {
		f.handles[name] = r.entries[name].begin(g)
	}
	r.frame = f
	slogger().Debug("temporal: frame begun", "graph", g.Label(), "resources", len(r.names))
	return f
}

// End exports every registered resource out of g using the handles in f.
func (r *Registry) End(g *rg.Graph, f *Frame) {
	if f.reg != r || f.graph != g {
		panic(fmt.Errorf("%w: end in %q", ErrForeignFrame, g.Label()))
	}
	if f.ended {
		panic(fmt.Errorf("%w: end in %q", ErrFrameEnded, g.Label()))
	}
	for _, name := range r.names {
		r.entries[name].end(g, f.handles[name])
	}
	f.ended = true
	r.frame = nil
}

// Retire returns every registered resource to rest after its frame executed.
func (r *Registry) Retire(retired *rg.RetiredGraph) {
	for _, name := range r.names {
		r.entries[name].retire(retired)
	}
}

// Close destroys every registered resource. It returns the errors of
// resources that could not be closed; the others are destroyed regardless.
func (r *Registry) Close() error {
	var errs []error
	for _, name := range r.names {
		if err := r.entries[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the frame-local handle of the resource registered as name.
// The handle is updated in place by writes, so it can be passed to
// rg.Write directly.
func Lookup[D rg.Desc](f *Frame, name string) (*rg.Handle[D], error) {
	h, ok := f.handles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	typed, ok := h.(*rg.Handle[D])
	if !ok {
		var zero rg.Handle[D]
		return nil, fmt.Errorf("%w: %q is not a %s", rg.ErrKindMismatch, name, zero.Kind())
	}
	return typed, nil
}

// MustLookup is like Lookup but panics on error. It suits renderers whose
// names are fixed at construction.
func MustLookup[D rg.Desc](f *Frame, name string) *rg.Handle[D] {
	h, err := Lookup[D](f, name)
	if err != nil {
		panic(err)
	}
	return h
}
