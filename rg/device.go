// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import (
	"context"
	"fmt"
)

// Pipeline is a backend-compiled pipeline.
type Pipeline interface {
	Destroy()
}

// Device is the backend boundary of the graph engine. It owns GPU memory,
// compiles pipelines and executes recorded passes.
//
// Implementations live in backend/software and backend/native.
type Device interface {
	// Name identifies the backend in logs.
	Name() string

	CreateBuffer(desc BufferDesc, label string) (*Buffer, error)
	CreateImage(desc ImageDesc, label string) (*Image, error)
	DestroyBuffer(b *Buffer)
	DestroyImage(img *Image)

	// CreatePipeline compiles a registered description. It is called at most
	// once per description and device by PipelineCache.
	CreatePipeline(desc PipelineDesc) (Pipeline, error)

	// Submit executes passes in order and returns when the work is complete.
	Submit(ctx context.Context, passes []CompiledPass, resources *ResourceTable) error
}

// Transition records the access change a pass requests for one resource.
// The graph does not derive barriers from it; backends may.
type Transition struct {
	Handle RawHandle
	Kind   ResourceKind
	From   AccessType
	To     AccessType
}

// CompiledPass is a pass ready for submission.
type CompiledPass struct {
	Name        string
	Index       int
	Transitions []Transition
	Commands    []Command
}

// ResourceTable resolves bindings and pipeline ids to device objects during
// Submit.
type ResourceTable struct {
	resources map[uint32]Resource
	pipelines map[PipelineID]Pipeline
}

func newResourceTable() *ResourceTable {
	return &ResourceTable{
		resources: make(map[uint32]Resource),
		pipelines: make(map[PipelineID]Pipeline),
	}
}

// Resource resolves a binding to its device resource.
func (t *ResourceTable) Resource(b Binding) (Resource, error) {
	r, ok := t.resources[b.Handle.id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, b)
	}
	return r, nil
}

// Buffer resolves a buffer binding.
func (t *ResourceTable) Buffer(b Binding) (*Buffer, error) {
	r, err := t.Resource(b)
	if err != nil {
		return nil, err
	}
	buf, ok := r.(*Buffer)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, not Buffer", ErrKindMismatch, b, r.Kind())
	}
	return buf, nil
}

// Image resolves an image binding.
func (t *ResourceTable) Image(b Binding) (*Image, error) {
	r, err := t.Resource(b)
	if err != nil {
		return nil, err
	}
	img, ok := r.(*Image)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, not Image", ErrKindMismatch, b, r.Kind())
	}
	return img, nil
}

// Pipeline resolves a pipeline id compiled for this submission.
func (t *ResourceTable) Pipeline(id PipelineID) (Pipeline, error) {
	p, ok := t.pipelines[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPipeline, id)
	}
	return p, nil
}
