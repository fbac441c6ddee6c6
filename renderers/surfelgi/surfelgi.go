// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surfelgi implements the persistent state of a surfel global
// illumination renderer.
//
// Surfels are stored in a spatial hash that survives across frames in six
// temporal buffers. Each frame the renderer lends them to the frame graph:
//
//	inst := renderer.Begin(g)
//	debug := inst.AllocateSurfels(g, gbuffer, depth)
//	renderer.End(g, inst)
//	retired, err := g.Execute(ctx, device)
//	renderer.Retire(retired)
package surfelgi

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/framegraph/temporal"
	"github.com/gogpu/gputypes"
)

// Limits of the default configuration.
const (
	MaxSurfelCells    = 1024 * 1024
	MaxSurfels        = MaxSurfelCells
	MaxSurfelsPerCell = 8
)

// Names of the temporal buffers, in import order.
const (
	SurfelMetaBuf      = "surfel_meta_buf"
	SurfelHashKeyBuf   = "surfel_hash_key_buf"
	SurfelHashValueBuf = "surfel_hash_value_buf"
	CellIndexOffsetBuf = "cell_index_offset_buf"
	SurfelIndexBuf     = "surfel_index_buf"
	SurfelSpatialBuf   = "surfel_spatial_buf"
)

// ErrInvalidConfig is returned by New for a configuration with no capacity.
var ErrInvalidConfig = errors.New("surfelgi: invalid configuration")

// Config sizes the surfel hash grid.
type Config struct {
	// Cells is the number of hash grid cells.
	Cells uint64

	// SlotsPerCell is the number of surfels a cell can index.
	SlotsPerCell uint64
}

// DefaultConfig returns the configuration of the reference renderer.
func DefaultConfig() Config {
	return Config{Cells: MaxSurfelCells, SlotsPerCell: MaxSurfelsPerCell}
}

// Validate reports whether c describes a usable grid.
func (c Config) Validate() error {
	if c.Cells == 0 || c.SlotsPerCell == 0 {
		return fmt.Errorf("%w: %d cells with %d slots per cell", ErrInvalidConfig, c.Cells, c.SlotsPerCell)
	}
	return nil
}

// BufferSizes returns the byte size of every temporal buffer, keyed by name.
//
// The meta buffer holds one 32-bit surfel counter. The hash key, hash value
// and cell offset buffers hold one 32-bit word per cell, the index buffer one
// per slot, and the spatial buffer one float4 per surfel.
func (c Config) BufferSizes() map[string]uint64 {
	const word = 4
	return map[string]uint64{
		SurfelMetaBuf:      word,
		SurfelHashKeyBuf:   word * c.Cells,
		SurfelHashValueBuf: word * c.Cells,
		CellIndexOffsetBuf: word * c.Cells,
		SurfelIndexBuf:     word * c.Cells * c.SlotsPerCell,
		SurfelSpatialBuf:   16 * c.Cells,
	}
}

// bufferNames lists the temporal buffers in import order.
var bufferNames = []string{
	SurfelMetaBuf,
	SurfelHashKeyBuf,
	SurfelHashValueBuf,
	CellIndexOffsetBuf,
	SurfelIndexBuf,
	SurfelSpatialBuf,
}

// Renderer owns the temporal buffers of the surfel GI pipeline.
//
// A Renderer is not safe for concurrent use.
type Renderer struct {
	cfg     Config
	buffers map[string]*temporal.Temporal[rg.BufferDesc]
	reg     *temporal.Registry
}

// New allocates the temporal buffers on alloc. If any allocation fails the
// buffers created so far are destroyed.
func New(alloc temporal.Allocator, cfg Config) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{
		cfg:     cfg,
		buffers: make(map[string]*temporal.Temporal[rg.BufferDesc], len(bufferNames)),
		reg:     temporal.NewRegistry(),
	}
	sizes := cfg.BufferSizes()
	for _, name := range bufferNames {
		buf, err := temporal.NewBuffer(alloc, rg.NewBufferDesc(sizes[name], gputypes.BufferUsageStorage), name)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("surfelgi: %w", err), r.Close())
		}
		if err := r.reg.Add(name, buf); err != nil {
			return nil, errors.Join(err, buf.Close(), r.Close())
		}
		r.buffers[name] = buf
	}
	slogger().Info("surfelgi: renderer created", "cells", cfg.Cells, "slots_per_cell", cfg.SlotsPerCell)
	return r, nil
}

// Config returns the grid configuration.
func (r *Renderer) Config() Config { return r.cfg }

// Buffer returns the temporal buffer registered as name, or nil.
func (r *Renderer) Buffer(name string) *temporal.Temporal[rg.BufferDesc] { return r.buffers[name] }

// Begin imports the temporal buffers into g.
func (r *Renderer) Begin(g *rg.Graph) *RenderInstance {
	f := r.reg.Begin(g)
	return &RenderInstance{
		frame:              f,
		SurfelMetaBuf:      temporal.MustLookup[rg.BufferDesc](f, SurfelMetaBuf),
		SurfelHashKeyBuf:   temporal.MustLookup[rg.BufferDesc](f, SurfelHashKeyBuf),
		SurfelHashValueBuf: temporal.MustLookup[rg.BufferDesc](f, SurfelHashValueBuf),
		CellIndexOffsetBuf: temporal.MustLookup[rg.BufferDesc](f, CellIndexOffsetBuf),
		SurfelIndexBuf:     temporal.MustLookup[rg.BufferDesc](f, SurfelIndexBuf),
		SurfelSpatialBuf:   temporal.MustLookup[rg.BufferDesc](f, SurfelSpatialBuf),
	}
}

// End exports the buffers of inst back out of g.
func (r *Renderer) End(g *rg.Graph, inst *RenderInstance) {
	r.reg.End(g, inst.frame)
}

// Retire returns the buffers to rest after their frame executed.
func (r *Renderer) Retire(retired *rg.RetiredGraph) {
	r.reg.Retire(retired)
}

// Close destroys the temporal buffers.
func (r *Renderer) Close() error {
	var errs []error
	for _, name := range bufferNames {
		if buf, ok := r.buffers[name]; ok {
			if err := buf.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
