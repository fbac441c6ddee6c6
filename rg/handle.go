// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import "fmt"

// RawHandle is the untyped identity of one version of a graph resource.
// The zero value is invalid.
type RawHandle struct {
	graph   uint64
	id      uint32
	version uint32
}

// ID returns the graph-local resource id.
func (h RawHandle) ID() uint32 { return h.id }

// Version returns the resource version the handle refers to.
// Every declared write produces a new version.
func (h RawHandle) Version() uint32 { return h.version }

// IsValid reports whether the handle was issued by a graph.
func (h RawHandle) IsValid() bool { return h.graph != 0 }

// String returns a compact "#id.vN" form for logs.
func (h RawHandle) String() string {
	if !h.IsValid() {
		return "#invalid"
	}
	return fmt.Sprintf("#%d.v%d", h.id, h.version)
}

// sameResource reports whether two handles name the same resource regardless of version.
func (h RawHandle) sameResource(o RawHandle) bool {
	return h.graph == o.graph && h.id == o.id
}

// Handle is a typed, graph-local reference to a resource of description D.
//
// Handles are only meaningful inside the graph that issued them. Writes take a
// *Handle and advance its version, so a copy kept from before a write becomes
// stale; using a stale copy panics with ErrStaleHandle.
type Handle[D Desc] struct {
	raw  RawHandle
	desc D
}

// Raw returns the untyped handle.
func (h Handle[D]) Raw() RawHandle { return h.raw }

// Desc returns the resource description.
func (h Handle[D]) Desc() D { return h.desc }

// Kind returns the resource kind.
func (h Handle[D]) Kind() ResourceKind { return kindOf[D]() }

// IsValid reports whether the handle was issued by a graph.
func (h Handle[D]) IsValid() bool { return h.raw.IsValid() }

// BindRead declares a read of h in p and returns its binding.
func (h Handle[D]) BindRead(p *PassBuilder, access AccessType) Binding {
	return Read(p, h, access).Bind()
}

// BindWrite declares a write of h in p and returns its binding.
func (h *Handle[D]) BindWrite(p *PassBuilder, access AccessType) Binding {
	return Write(p, h, access).Bind()
}

// Readable is any handle that can be declared as a read. Handle[D] and
// *Handle[D] both satisfy it.
type Readable interface {
	Raw() RawHandle
	Kind() ResourceKind
	BindRead(p *PassBuilder, access AccessType) Binding
}

// Writable is a handle that can be declared as a write. Only *Handle[D]
// satisfies it, since a write advances the handle version.
type Writable interface {
	Readable
	BindWrite(p *PassBuilder, access AccessType) Binding
}

// ExportedHandle identifies a resource exported out of a graph. It is resolved
// against the RetiredGraph returned by Execute.
type ExportedHandle[D Desc] struct {
	raw  RawHandle
	desc D
}

// Raw returns the untyped handle of the exported version.
func (h ExportedHandle[D]) Raw() RawHandle { return h.raw }

// Desc returns the resource description.
func (h ExportedHandle[D]) Desc() D { return h.desc }

// Ref is the access token returned when a pass declares a read or write.
// It is the only way a recorded command can reference a resource, and it is
// valid only while the issuing graph is recording.
type Ref[D Desc] struct {
	handle RawHandle
	desc   D
	access AccessType
}

// Handle returns the handle version this access refers to.
func (r Ref[D]) Handle() RawHandle { return r.handle }

// Desc returns the resource description.
func (r Ref[D]) Desc() D { return r.desc }

// Access returns the declared access type.
func (r Ref[D]) Access() AccessType { return r.access }

// Bind returns the descriptor-slot entry for this access with the default view.
func (r Ref[D]) Bind() Binding {
	return Binding{Kind: kindOf[D](), Handle: r.handle, Access: r.access}
}

// BindImageView returns the descriptor-slot entry for an image access with an
// explicit view, e.g. the depth aspect of a depth-stencil image.
func BindImageView(r Ref[ImageDesc], view ImageViewDesc) Binding {
	b := r.Bind()
	b.View = view
	return b
}

// ImageAspect selects the planes of an image a view exposes.
type ImageAspect uint8

const (
	// AspectColor selects the color plane.
	AspectColor ImageAspect = 1 << iota

	// AspectDepth selects the depth plane.
	AspectDepth

	// AspectStencil selects the stencil plane.
	AspectStencil
)

// Contains reports whether all aspects in o are set in a.
func (a ImageAspect) Contains(o ImageAspect) bool { return a&o == o }

// String returns the string representation of ImageAspect.
func (a ImageAspect) String() string {
	if a == 0 {
		return "Default"
	}
	s := ""
	for _, n := range []struct {
		bit  ImageAspect
		name string
	}{{AspectColor, "Color"}, {AspectDepth, "Depth"}, {AspectStencil, "Stencil"}} {
		if a&n.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	return s
}

// ImageViewDesc describes how an image is viewed by a binding.
// The zero value means the full image with its natural aspect.
type ImageViewDesc struct {
	Aspect       ImageAspect
	BaseMipLevel uint32
	LevelCount   uint32
}

// Binding is one descriptor-slot entry produced from an access token.
type Binding struct {
	Kind   ResourceKind
	Handle RawHandle
	Access AccessType
	View   ImageViewDesc
}

// IsWrite reports whether the binding writes its resource.
func (b Binding) IsWrite() bool { return b.Access.IsWrite() }

// String returns a compact description for logs and test failures.
func (b Binding) String() string {
	if b.View.Aspect != 0 {
		return fmt.Sprintf("%s%s(%s, %s)", b.Kind, b.Handle, b.Access, b.View.Aspect)
	}
	return fmt.Sprintf("%s%s(%s)", b.Kind, b.Handle, b.Access)
}
