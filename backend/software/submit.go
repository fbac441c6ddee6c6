// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"context"
	"fmt"

	"github.com/gogpu/framegraph/rg"
	"golang.org/x/image/math/f32"
	"golang.org/x/sync/errgroup"
)

// bound is one resolved binding of an invocation.
type bound struct {
	binding rg.Binding
	set     uint32
	buf     *bufferMemory
	img     *imageMemory
}

// Invocation is what a kernel sees: the command extent, the Z slice it runs
// for, push constants and the resolved bindings.
//
// Bindings are numbered in recording order. For a Dispatch or TraceRays that
// is descriptor set order, then slot order; raw sets are skipped. For a
// DrawPass the color attachments come first, then the depth attachment, then
// the descriptor sets.
type Invocation struct {
	Pass      string
	Extent    [3]uint32
	Z         uint32
	Constants []byte
	Draws     []rg.Draw
	RawSets   []rg.DescriptorSet

	bound []bound
}

// NumBindings returns the number of resolved bindings.
func (inv *Invocation) NumBindings() int { return len(inv.bound) }

// Binding returns binding i as recorded.
func (inv *Invocation) Binding(i int) rg.Binding { return inv.bound[i].binding }

// SetIndex returns the descriptor set binding i belongs to.
func (inv *Invocation) SetIndex(i int) uint32 { return inv.bound[i].set }

// Buffer returns the memory of buffer binding i. Writes are visible to later
// passes.
func (inv *Invocation) Buffer(i int) ([]byte, error) {
	if i < 0 || i >= len(inv.bound) || inv.bound[i].buf == nil {
		return nil, fmt.Errorf("%w: binding %d is not a buffer", ErrOutOfRange, i)
	}
	return inv.bound[i].buf.data, nil
}

// Image returns texel access to image binding i.
func (inv *Invocation) Image(i int) (ImageView, error) {
	if i < 0 || i >= len(inv.bound) || inv.bound[i].img == nil {
		return ImageView{}, fmt.Errorf("%w: binding %d is not an image", ErrOutOfRange, i)
	}
	return ImageView{mem: inv.bound[i].img}, nil
}

// Submit implements rg.Device. Passes execute in the given order; each
// command completes before the next starts.
func (d *Device) Submit(ctx context.Context, passes []rg.CompiledPass, resources *rg.ResourceTable) error {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()

	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, cmd := range p.Commands {
			if err := d.execute(ctx, p.Name, cmd, resources); err != nil {
				return fmt.Errorf("software: pass %q: %w", p.Name, err)
			}
		}
		slogger().Debug("software: pass executed", "pass", p.Name, "commands", len(p.Commands))
	}
	return nil
}

func (d *Device) execute(ctx context.Context, pass string, cmd rg.Command, table *rg.ResourceTable) error {
	switch c := cmd.(type) {
	case rg.Dispatch:
		return d.run(ctx, table, c.Pipeline.ID(), &Invocation{Pass: pass, Extent: c.Extent, Constants: c.Constants}, nil, c.Sets)
	case rg.TraceRays:
		return d.run(ctx, table, c.Pipeline.ID(), &Invocation{Pass: pass, Extent: c.Extent}, nil, c.Sets)
	case rg.DrawPass:
		attachments := append([]rg.Binding(nil), c.Color...)
		if c.Depth != nil {
			attachments = append(attachments, *c.Depth)
		}
		inv := &Invocation{Pass: pass, Extent: [3]uint32{c.Extent[0], c.Extent[1], 1}, Draws: c.Draws}
		return d.run(ctx, table, c.Pipeline.ID(), inv, attachments, c.Sets)
	case rg.ClearColor:
		img, err := resolveImage(table, c.Image)
		if err != nil {
			return err
		}
		ImageView{mem: img}.Fill(c.Value)
		return nil
	case rg.ClearDepthStencil:
		img, err := resolveImage(table, c.Image)
		if err != nil {
			return err
		}
		v := ImageView{mem: img}
		v.Fill(f32.Vec4{c.Depth, 0, 0, 1})
		v.fillStencil(uint8(c.Stencil)) //nolint:gosec // stencil values are 8-bit
		return nil
	default:
		return fmt.Errorf("software: unsupported command %T", cmd)
	}
}

// run resolves bindings and calls the pipeline kernel for every Z slice of
// the invocation extent.
func (d *Device) run(ctx context.Context, table *rg.ResourceTable, id rg.PipelineID, inv *Invocation, attachments []rg.Binding, sets []rg.DescriptorSet) error {
	p, err := table.Pipeline(id)
	if err != nil {
		return err
	}
	pipe, ok := p.(*pipeline)
	if !ok {
		return fmt.Errorf("%w: pipeline %s", ErrForeignResource, id)
	}
	for _, b := range attachments {
		res, err := resolve(table, b, 0)
		if err != nil {
			return err
		}
		inv.bound = append(inv.bound, res)
	}
	for _, s := range sets {
		if s.IsRaw() {
			inv.RawSets = append(inv.RawSets, s)
			continue
		}
		for _, b := range s.Bindings {
			res, err := resolve(table, b, s.Index)
			if err != nil {
				return err
			}
			inv.bound = append(inv.bound, res)
		}
	}

	if inv.Extent[0] == 0 || inv.Extent[1] == 0 || inv.Extent[2] == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for z := range inv.Extent[2] {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slice := *inv
			slice.Z = z
			if err := pipe.kernel(&slice); err != nil {
				return fmt.Errorf("kernel %q slice %d: %w", pipe.shader, z, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func resolve(table *rg.ResourceTable, b rg.Binding, set uint32) (bound, error) {
	out := bound{binding: b, set: set}
	switch b.Kind {
	case rg.KindBuffer:
		buf, err := table.Buffer(b)
		if err != nil {
			return out, err
		}
		mem, err := bufferMem(buf)
		if err != nil {
			return out, err
		}
		out.buf = mem
	case rg.KindImage:
		img, err := resolveImage(table, b)
		if err != nil {
			return out, err
		}
		out.img = img
	default:
		// Acceleration structures have no CPU representation; kernels see
		// only the binding.
	}
	return out, nil
}

func resolveImage(table *rg.ResourceTable, b rg.Binding) (*imageMemory, error) {
	img, err := table.Image(b)
	if err != nil {
		return nil, err
	}
	return imageMem(img)
}
