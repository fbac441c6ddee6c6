// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import (
	"context"
	"errors"
	"testing"
)

// =============================================================================
// Test Helpers
// =============================================================================

// fakeDevice records every call the graph makes.
type fakeDevice struct {
	created    []string
	destroyed  []string
	pipelines  []PipelineDesc
	submitted  [][]CompiledPass
	tables     []*ResourceTable
	submitErr  error
	createErr  error
	compileErr error
}

type fakePipeline struct {
	desc      PipelineDesc
	destroyed bool
}

func (p *fakePipeline) Destroy() { p.destroyed = true }

func (d *fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) CreateBuffer(desc BufferDesc, label string) (*Buffer, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	d.created = append(d.created, label)
	return &Buffer{Desc: desc, Label: label}, nil
}

func (d *fakeDevice) CreateImage(desc ImageDesc, label string) (*Image, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	d.created = append(d.created, label)
	return &Image{Desc: desc, Label: label}, nil
}

func (d *fakeDevice) DestroyBuffer(b *Buffer) { d.destroyed = append(d.destroyed, b.Label) }

func (d *fakeDevice) DestroyImage(img *Image) { d.destroyed = append(d.destroyed, img.Label) }

func (d *fakeDevice) CreatePipeline(desc PipelineDesc) (Pipeline, error) {
	if d.compileErr != nil {
		return nil, d.compileErr
	}
	d.pipelines = append(d.pipelines, desc)
	return &fakePipeline{desc: desc}, nil
}

func (d *fakeDevice) Submit(_ context.Context, passes []CompiledPass, table *ResourceTable) error {
	if d.submitErr != nil {
		return d.submitErr
	}
	d.submitted = append(d.submitted, passes)
	d.tables = append(d.tables, table)
	return nil
}

// expectViolation runs fn and fails unless it panics with an error wrapping want.
func expectViolation(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v, got none", want)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v (%T) is not an error", r, r)
		}
		if !errors.Is(err, want) {
			t.Fatalf("panic %v does not wrap %v", err, want)
		}
	}()
	fn()
}

// testBuffer returns a device buffer suitable for importing.
func testBuffer(label string, size uint64) *Buffer {
	return &Buffer{Desc: BufferDesc{Size: size}, Label: label}
}
