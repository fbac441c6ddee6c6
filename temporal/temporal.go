// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package temporal manages GPU resources that persist across frames.
//
// A temporal resource is allocated once and lent to one render graph per
// frame. Every frame brackets it:
//
//	h := history.Begin(g)       // import into the frame
//	... passes read and write *h ...
//	history.End(g, h)           // export back
//	retired, err := g.Execute(ctx, device)
//	history.Retire(retired)     // rest until the next frame
//
// The backing memory is never replaced between frames, so a frame that
// declares no writes leaves the contents intact for the next one.
//
// Registry groups the temporal resources of a renderer under stable names so
// that the bracket is written once instead of once per resource.
package temporal

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/rg"
)

var (
	// ErrCreateResource is returned when the device fails to allocate a
	// temporal resource.
	ErrCreateResource = errors.New("temporal: create resource")

	// ErrInUse is returned when closing a resource that a frame still holds.
	ErrInUse = errors.New("temporal: resource is in use by a frame")
)

// Allocator creates and destroys the backing resources. Every rg.Device is
// an Allocator.
type Allocator interface {
	CreateBuffer(desc rg.BufferDesc, label string) (*rg.Buffer, error)
	CreateImage(desc rg.ImageDesc, label string) (*rg.Image, error)
	DestroyBuffer(b *rg.Buffer)
	DestroyImage(img *rg.Image)
}

// Temporal is a resource of description D that persists across frames.
type Temporal[D rg.Desc] struct {
	label  string
	desc   D
	alloc  Allocator
	res    *rg.TemporalResource
	closed bool
}

// NewBuffer allocates a temporal buffer.
func NewBuffer(alloc Allocator, desc rg.BufferDesc, label string) (*Temporal[rg.BufferDesc], error) {
	b, err := alloc.CreateBuffer(desc, label)
	if err != nil {
		return nil, fmt.Errorf("%w: buffer %q (%d bytes): %w", ErrCreateResource, label, desc.Size, err)
	}
	slogger().Debug("temporal: buffer created", "label", label, "size", desc.Size)
	return &Temporal[rg.BufferDesc]{label: label, desc: desc, alloc: alloc, res: rg.NewTemporalResource(b)}, nil
}

// NewImage allocates a temporal image.
func NewImage(alloc Allocator, desc rg.ImageDesc, label string) (*Temporal[rg.ImageDesc], error) {
	img, err := alloc.CreateImage(desc, label)
	if err != nil {
		return nil, fmt.Errorf("%w: image %q %v: %w", ErrCreateResource, label, desc.Extent, err)
	}
	slogger().Debug("temporal: image created", "label", label, "extent", desc.Extent, "format", desc.Format)
	return &Temporal[rg.ImageDesc]{label: label, desc: desc, alloc: alloc, res: rg.NewTemporalResource(img)}, nil
}

// Label returns the debug label given at creation.
func (t *Temporal[D]) Label() string { return t.label }

// Desc returns the resource description.
func (t *Temporal[D]) Desc() D { return t.desc }

// Resource returns the backing device resource.
func (t *Temporal[D]) Resource() rg.Resource { return t.res.Resource() }

// State returns the lifecycle state.
func (t *Temporal[D]) State() rg.TemporalState { return t.res.State() }

// LastAccess returns the access type the resource was left in by the last
// retired frame.
func (t *Temporal[D]) LastAccess() rg.AccessType { return t.res.LastAccess() }

// Begin imports the resource into g and returns its frame-local handle.
// Passes that write the resource update the handle in place.
//
// Begin panics with rg.ErrTemporalAlreadyImported if the resource is already
// lent to a frame.
func (t *Temporal[D]) Begin(g *rg.Graph) *rg.Handle[D] {
	h := rg.ImportTemporal[D](g, t.res)
	return &h
}

// End exports h, the handle returned by Begin, back out of g.
//
// End panics with rg.ErrTemporalNotImported without a matching Begin and with
// rg.ErrTemporalHandleMismatch if h belongs to another resource.
func (t *Temporal[D]) End(g *rg.Graph, h *rg.Handle[D]) {
	rg.ExportTemporal(g, *h, t.res)
}

// Retire returns the resource to rest after its frame executed. The memory is
// kept; only the final access type is remembered.
//
// Retire panics with rg.ErrTemporalNotExported if End was never called.
func (t *Temporal[D]) Retire(r *rg.RetiredGraph) {
	rg.RetireTemporal(r, t.res)
}

// Close destroys the backing resource. Closing twice is a no-op.
func (t *Temporal[D]) Close() error {
	if t.closed {
		return nil
	}
	if t.res.State() != rg.TemporalInert {
		return fmt.Errorf("%w: %s", ErrInUse, t.res)
	}
	switch r := t.res.Resource().(type) {
	case *rg.Buffer:
		t.alloc.DestroyBuffer(r)
	case *rg.Image:
		t.alloc.DestroyImage(r)
	}
	t.closed = true
	slogger().Debug("temporal: destroyed", "label", t.label)
	return nil
}

// begin, end and retire let Registry drive resources of any description.

func (t *Temporal[D]) begin(g *rg.Graph) any { return t.Begin(g) }

func (t *Temporal[D]) end(g *rg.Graph, h any) {
	t.End(g, h.(*rg.Handle[D]))
}

func (t *Temporal[D]) retire(r *rg.RetiredGraph) { t.Retire(r) }
