// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import "fmt"

// TemporalState is the lifecycle state of a temporal resource.
type TemporalState uint8

const (
	// TemporalInert means the resource rests between frames.
	TemporalInert TemporalState = iota

	// TemporalImported means a graph holds a handle to the resource.
	TemporalImported

	// TemporalExported means the handle was returned to the resource and
	// is awaiting graph retirement.
	TemporalExported
)

// String returns the string representation of TemporalState.
func (s TemporalState) String() string {
	switch s {
	case TemporalInert:
		return "Inert"
	case TemporalImported:
		return "Imported"
	case TemporalExported:
		return "Exported"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// TemporalResource is a device resource that persists across frames and is
// lent to one graph at a time.
//
// Each frame brackets it with ImportTemporal and ExportTemporal, and after
// execution RetireTemporal returns it to rest remembering the final access
// type so the next import starts from the correct state. The backing resource
// is never replaced, so a frame that declares no writes leaves its contents
// intact for the next frame.
type TemporalResource struct {
	resource   Resource
	state      TemporalState
	lastAccess AccessType
	handle     RawHandle
}

// NewTemporalResource wraps res in the Inert state with no prior access.
func NewTemporalResource(res Resource) *TemporalResource {
	return &TemporalResource{resource: res, lastAccess: AccessNothing}
}

// Resource returns the backing device resource.
func (t *TemporalResource) Resource() Resource { return t.resource }

// State returns the lifecycle state.
func (t *TemporalResource) State() TemporalState { return t.state }

// LastAccess returns the access type recorded at the last retirement.
func (t *TemporalResource) LastAccess() AccessType { return t.lastAccess }

// String returns a diagnostic description.
func (t *TemporalResource) String() string {
	return fmt.Sprintf("%s(%s, %s)", t.resource.ResourceLabel(), t.state, t.lastAccess)
}

// ImportTemporal imports t into g and returns a handle valid in g.
// Importing a resource that is not Inert panics with ErrTemporalAlreadyImported.
func ImportTemporal[D Desc](g *Graph, t *TemporalResource) Handle[D] {
	if t.state != TemporalInert {
		violation(ErrTemporalAlreadyImported, "%s", t)
	}
	h := Import[D](g, t.resource, t.lastAccess)
	t.handle = h.raw
	t.state = TemporalImported
	g.metrics.temporalImported()
	slogger().Debug("rg: temporal imported", "resource", t.resource.ResourceLabel(), "graph", g.label, "access", t.lastAccess)
	return h
}

// ExportTemporal exports h, which must be the current version of the handle
// t was imported as, out of g.
//
// Exporting a resource that is not Imported panics with
// ErrTemporalNotImported; exporting a handle of another resource panics with
// ErrTemporalHandleMismatch.
func ExportTemporal[D Desc](g *Graph, h Handle[D], t *TemporalResource) {
	if t.state != TemporalImported {
		violation(ErrTemporalNotImported, "%s", t)
	}
	if !h.raw.sameResource(t.handle) {
		violation(ErrTemporalHandleMismatch, "%s exported as %s", t, h.raw)
	}
	eh := Export(g, h, AccessNothing)
	t.handle = eh.raw
	t.state = TemporalExported
}

// RetireTemporal returns t to rest after its graph executed, recording the
// final access type from r. Retiring an Inert resource is a no-op; retiring
// an Imported one panics with ErrTemporalNotExported.
func RetireTemporal(r *RetiredGraph, t *TemporalResource) {
	switch t.state {
	case TemporalInert:
		return
	case TemporalImported:
		violation(ErrTemporalNotExported, "%s", t)
	}
	rec := r.export(t.handle)
	t.lastAccess = rec.access
	t.handle = RawHandle{}
	t.state = TemporalInert
}
