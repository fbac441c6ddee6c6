// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package compose assembles single-dispatch compute passes.
//
// A SimpleComputePass registers one compute pipeline, accumulates resource
// bindings and records exactly one rg.Dispatch:
//
//	err := compose.New(g.AddPass("blur"), "shaders/blur.hlsl").
//		Read(input).
//		Write(&output).
//		Dispatch(input.Desc().Extent)
//
// Positional calls (Read, ReadAspect, Write) bind descriptor set 0 in call
// order: the n-th call binds slot n. When the pipeline declares an
// rg.BindingLayout, slots can instead be bound by name with BindSlot and
// BindSlotWrite, and Dispatch checks the bindings against the layout before
// anything is recorded.
package compose

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/rg"
)

var (
	// ErrLayoutMismatch is returned when a binding disagrees with the declared
	// slot in kind or access, or binds past the end of the layout.
	ErrLayoutMismatch = errors.New("compose: binding does not match pipeline layout")

	// ErrUnknownSlot is returned when binding a slot name the layout lacks.
	ErrUnknownSlot = errors.New("compose: unknown binding slot")

	// ErrSlotBoundTwice is returned when a slot is bound more than once.
	ErrSlotBoundTwice = errors.New("compose: binding slot bound twice")

	// ErrSlotUnbound is returned by Dispatch when a declared slot was never bound.
	ErrSlotUnbound = errors.New("compose: binding slot not bound")
)

const (
	// ReadAccess is the access declared by Read and BindSlot.
	ReadAccess = rg.AccessComputeShaderReadSampledImageOrUniformTexelBuffer

	// WriteAccess is the access declared by Write and BindSlotWrite.
	WriteAccess = rg.AccessComputeShaderWrite
)

// SimpleComputePass builds a pass made of one compute dispatch.
//
// Methods return the receiver for chaining. The first binding error is kept
// and returned by Dispatch; later calls still declare their accesses.
// A SimpleComputePass is not safe for concurrent use.
type SimpleComputePass struct {
	pass      *rg.PassBuilder
	pipeline  rg.ComputePipelineHandle
	layout    *rg.BindingLayout
	bindings  []rg.Binding
	bound     []bool
	next      int
	constants []byte
	rawSets   []rg.DescriptorSet
	err       error
}

// New registers the compute pipeline for shaderPath in pass.
func New(pass *rg.PassBuilder, shaderPath string) *SimpleComputePass {
	return NewWithLayout(pass, rg.ComputePipelineDesc{Shader: shaderPath})
}

// NewWithLayout registers the compute pipeline described by desc in pass.
// If desc carries a binding layout, bindings are validated against it.
func NewWithLayout(pass *rg.PassBuilder, desc rg.ComputePipelineDesc) *SimpleComputePass {
	s := &SimpleComputePass{pass: pass}
	s.pipeline = pass.RegisterComputePipelineDesc(desc)
	if l := s.pipeline.Layout(); l != nil {
		s.layout = l
		s.bindings = make([]rg.Binding, len(l.Slots))
		s.bound = make([]bool, len(l.Slots))
	}
	return s
}

// Pass returns the underlying pass builder.
func (s *SimpleComputePass) Pass() *rg.PassBuilder { return s.pass }

// Pipeline returns the registered pipeline handle.
func (s *SimpleComputePass) Pipeline() rg.ComputePipelineHandle { return s.pipeline }

// Bindings returns the bindings of descriptor set 0 accumulated so far.
func (s *SimpleComputePass) Bindings() []rg.Binding {
	return append([]rg.Binding(nil), s.bindings...)
}

// Read binds res to the next slot as a sampled or uniform read.
func (s *SimpleComputePass) Read(res rg.Readable) *SimpleComputePass {
	return s.ReadWith(res, ReadAccess)
}

// ReadWith binds res to the next slot with an explicit read access.
func (s *SimpleComputePass) ReadWith(res rg.Readable, access rg.AccessType) *SimpleComputePass {
	s.positional(res.BindRead(s.pass, access))
	return s
}

// ReadAspect binds the given planes of img to the next slot as a read, e.g.
// the depth aspect of a depth-stencil image.
func (s *SimpleComputePass) ReadAspect(img rg.Handle[rg.ImageDesc], aspect rg.ImageAspect) *SimpleComputePass {
	ref := rg.Read(s.pass, img, ReadAccess)
	s.positional(rg.BindImageView(ref, rg.ImageViewDesc{Aspect: aspect}))
	return s
}

// Write binds res to the next slot as a storage write and advances its version.
func (s *SimpleComputePass) Write(res rg.Writable) *SimpleComputePass {
	return s.WriteWith(res, WriteAccess)
}

// WriteWith binds res to the next slot with an explicit write access, such
// as rg.AccessGeneral for a read-modify-write in place.
func (s *SimpleComputePass) WriteWith(res rg.Writable, access rg.AccessType) *SimpleComputePass {
	s.positional(res.BindWrite(s.pass, access))
	return s
}

// BindSlot binds res to the named slot of the declared layout as a read.
func (s *SimpleComputePass) BindSlot(name string, res rg.Readable) *SimpleComputePass {
	if i, ok := s.slot(name); ok {
		s.bindAt(i, res.BindRead(s.pass, ReadAccess))
	}
	return s
}

// BindSlotAspect binds the given planes of img to the named slot as a read.
func (s *SimpleComputePass) BindSlotAspect(name string, img rg.Handle[rg.ImageDesc], aspect rg.ImageAspect) *SimpleComputePass {
	if i, ok := s.slot(name); ok {
		ref := rg.Read(s.pass, img, ReadAccess)
		s.bindAt(i, rg.BindImageView(ref, rg.ImageViewDesc{Aspect: aspect}))
	}
	return s
}

// BindSlotWrite binds res to the named slot of the declared layout as a
// storage write.
func (s *SimpleComputePass) BindSlotWrite(name string, res rg.Writable) *SimpleComputePass {
	if i, ok := s.slot(name); ok {
		s.bindAt(i, res.BindWrite(s.pass, WriteAccess))
	}
	return s
}

// Constants sets the push-constant payload recorded with the dispatch.
func (s *SimpleComputePass) Constants(data []byte) *SimpleComputePass {
	s.constants = append([]byte(nil), data...)
	return s
}

// RawDescriptorSet passes an externally managed descriptor set, such as a
// bindless table, through at set index.
func (s *SimpleComputePass) RawDescriptorSet(index uint32, set rg.RawDescriptorSet) *SimpleComputePass {
	s.rawSets = append(s.rawSets, rg.RawSet(index, set))
	return s
}

// Dispatch validates the bindings, records one rg.Dispatch over extent and
// finalizes the pass.
//
// On a binding error nothing is recorded; the error is stored on the pass,
// so Graph.Execute fails as well, and returned.
func (s *SimpleComputePass) Dispatch(extent [3]uint32) error {
	if err := s.validate(); err != nil {
		s.pass.Fail(err)
		return fmt.Errorf("compose: pass %q: %w", s.pass.Name(), err)
	}
	if err := s.pass.Err(); err != nil {
		return err
	}
	sets := make([]rg.DescriptorSet, 0, 1+len(s.rawSets))
	sets = append(sets, rg.Set(0, s.bindings...))
	sets = append(sets, s.rawSets...)
	s.pass.Record(rg.Dispatch{
		Pipeline:  s.pipeline,
		Sets:      sets,
		Constants: s.constants,
		Extent:    extent,
	})
	slogger().Debug("compose: dispatch recorded", "pass", s.pass.Name(), "bindings", len(s.bindings), "extent", extent)
	return nil
}

func (s *SimpleComputePass) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *SimpleComputePass) positional(b rg.Binding) {
	if s.layout == nil {
		s.bindings = append(s.bindings, b)
		return
	}
	for s.next < len(s.bound) && s.bound[s.next] {
		s.next++
	}
	if s.next >= len(s.bound) {
		s.fail(fmt.Errorf("%w: positional binding %s past %d declared slots", ErrLayoutMismatch, b, len(s.bound)))
		return
	}
	s.bindAt(s.next, b)
}

func (s *SimpleComputePass) slot(name string) (int, bool) {
	if s.layout == nil {
		s.fail(fmt.Errorf("%w: %q: pipeline declares no binding layout", ErrUnknownSlot, name))
		return 0, false
	}
	i, ok := s.layout.Index(name)
	if !ok {
		s.fail(fmt.Errorf("%w: %q", ErrUnknownSlot, name))
		return 0, false
	}
	if s.bound[i] {
		s.fail(fmt.Errorf("%w: %q", ErrSlotBoundTwice, name))
		return 0, false
	}
	return i, true
}

func (s *SimpleComputePass) bindAt(i int, b rg.Binding) {
	s.bindings[i] = b
	s.bound[i] = true
}

// validate checks the final binding list against the layout.
func (s *SimpleComputePass) validate() error {
	if s.err != nil || s.layout == nil {
		return s.err
	}
	for i, slot := range s.layout.Slots {
		if !s.bound[i] {
			return fmt.Errorf("%w: %q", ErrSlotUnbound, slot.Name)
		}
		b := s.bindings[i]
		if b.Kind != slot.Kind {
			return fmt.Errorf("%w: slot %q wants %s, got %s", ErrLayoutMismatch, slot.Name, slot.Kind, b.Kind)
		}
		if b.IsWrite() != slot.Write {
			return fmt.Errorf("%w: slot %q write=%t, bound with %s", ErrLayoutMismatch, slot.Name, slot.Write, b.Access)
		}
	}
	return nil
}
