// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"
)

// pollInterval is the sleep between queue completion polls.
const pollInterval = 50 * time.Microsecond

// batch accumulates compute passes into one command encoder and tracks the
// per-submit HAL objects for cleanup.
type batch struct {
	dev        *Device
	enc        hal.CommandEncoder
	cmdBufs    []hal.CommandBuffer
	bindGroups []hal.BindGroup
	uniforms   []hal.Buffer

	// inFlight is set when a submission timed out. Its objects may still be
	// in use by the GPU and are leaked instead of destroyed.
	inFlight bool
}

func newBatch(d *Device) *batch { return &batch{dev: d} }

// encoder returns the open encoder, beginning one if needed.
func (b *batch) encoder() (hal.CommandEncoder, error) {
	if b.enc != nil {
		return b.enc, nil
	}
	enc, err := b.dev.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "framegraph"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("framegraph"); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	b.enc = enc
	return enc, nil
}

// flush submits the open encoder and waits for the GPU to finish it.
func (b *batch) flush() error {
	if b.enc == nil {
		return nil
	}
	enc := b.enc
	b.enc = nil
	cmdBuf, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	b.cmdBufs = append(b.cmdBufs, cmdBuf)

	index, err := b.dev.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	if err := b.dev.waitCompleted(index); err != nil {
		b.inFlight = true
		return err
	}
	return nil
}

// cleanup destroys all tracked per-submit resources.
func (b *batch) cleanup() {
	device := b.dev.device
	if b.enc != nil {
		b.enc.DiscardEncoding()
	}
	if b.inFlight {
		slogger().Warn("native: leaking objects of a timed out submission",
			"command_buffers", len(b.cmdBufs), "bind_groups", len(b.bindGroups))
		return
	}
	for _, c := range b.cmdBufs {
		device.FreeCommandBuffer(c)
	}
	for _, g := range b.bindGroups {
		device.DestroyBindGroup(g)
	}
	for _, u := range b.uniforms {
		device.DestroyBuffer(u)
	}
}

// waitCompleted polls the queue until submission index has completed.
// The wait is bounded by the submit timeout, not by a context: work already
// on the GPU cannot be abandoned safely.
func (d *Device) waitCompleted(index uint64) error {
	timeout := d.opts.submitTimeout
	deadline := time.Now().Add(timeout)
	for d.queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %v (submission %d)", ErrTimeout, timeout, index)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// Submit implements rg.Device. Dispatches are encoded into one command
// buffer. Clears are queue writes, so the work encoded before a clear is
// submitted and waited for first.
func (d *Device) Submit(ctx context.Context, passes []rg.CompiledPass, resources *rg.ResourceTable) error {
	if d.closed.Load() {
		return ErrClosed
	}
	d.submitMu.Lock()
	defer d.submitMu.Unlock()

	b := newBatch(d)
	defer b.cleanup()
	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, cmd := range p.Commands {
			if err := d.encode(b, p.Name, cmd, resources); err != nil {
				return fmt.Errorf("native: pass %q: %w", p.Name, err)
			}
		}
		slogger().Debug("native: pass encoded", "pass", p.Name, "commands", len(p.Commands))
	}
	return b.flush()
}

func (d *Device) encode(b *batch, pass string, cmd rg.Command, table *rg.ResourceTable) error {
	switch c := cmd.(type) {
	case rg.Dispatch:
		return d.encodeDispatch(b, pass, c, table)
	case rg.ClearColor:
		return d.clear(b, c.Image, table, c.Value, 0)
	case rg.ClearDepthStencil:
		return d.clear(b, c.Image, table, f32.Vec4{c.Depth, 0, 0, 1}, uint8(c.Stencil)) //nolint:gosec // stencil values are 8-bit
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedCommand, cmd)
	}
}

// encodeDispatch records one compute pass. Push constants are uploaded to a
// uniform buffer bound after the last binding of set 0.
func (d *Device) encodeDispatch(b *batch, pass string, c rg.Dispatch, table *rg.ResourceTable) error {
	p, err := table.Pipeline(c.Pipeline.ID())
	if err != nil {
		return err
	}
	pipe, ok := p.(*computePipeline)
	if !ok || pipe.dev != d {
		return fmt.Errorf("%w: pipeline %s", ErrForeignResource, c.Pipeline.ID())
	}

	groups, err := d.resolveSets(c.Sets, table)
	if err != nil {
		return err
	}
	if len(c.Constants) > 0 {
		if len(groups) == 0 {
			groups = append(groups, nil)
		}
		u, err := d.uniform(b, pass, c.Constants)
		if err != nil {
			return err
		}
		groups[0] = append(groups[0], boundBuffer{buf: u, size: alignSize(uint64(len(c.Constants))), typ: gputypes.BufferBindingTypeUniform})
	}

	sig := make(signature, len(groups))
	for i, g := range groups {
		sig[i] = make([]gputypes.BufferBindingType, len(g))
		for j, bb := range g {
			sig[i][j] = bb.typ
		}
	}
	v, err := pipe.variant(sig)
	if err != nil {
		return err
	}

	bindGroups := make([]hal.BindGroup, len(groups))
	for i, g := range groups {
		entries := make([]gputypes.BindGroupEntry, len(g))
		for j, bb := range g {
			entries[j] = gputypes.BindGroupEntry{
				Binding: uint32(j), //nolint:gosec // slot counts are small
				Resource: gputypes.BufferBinding{
					Buffer: bb.buf.NativeHandle(),
					Offset: 0,
					Size:   bb.size,
				},
			}
		}
		bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s_bg%d", pass, i),
			Layout:  v.groups[i],
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("native: create bind group %d: %w", i, err)
		}
		b.bindGroups = append(b.bindGroups, bg)
		bindGroups[i] = bg
	}

	enc, err := b.encoder()
	if err != nil {
		return err
	}
	cp := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: pass})
	cp.SetPipeline(v.pipeline)
	for i, bg := range bindGroups {
		cp.SetBindGroup(uint32(i), bg, nil) //nolint:gosec // set counts are small
	}
	wg := workgroups(c.Extent, d.opts.workgroupSize)
	cp.Dispatch(wg[0], wg[1], wg[2])
	cp.End()
	return nil
}

// boundBuffer is one resolved bind group entry.
type boundBuffer struct {
	buf  hal.Buffer
	size uint64
	typ  gputypes.BufferBindingType
}

// resolveSets maps descriptor sets to bind groups indexed by set index.
// Missing set indices become empty groups.
func (d *Device) resolveSets(sets []rg.DescriptorSet, table *rg.ResourceTable) ([][]boundBuffer, error) {
	var groups [][]boundBuffer
	seen := make(map[uint32]bool, len(sets))
	for _, s := range sets {
		if s.IsRaw() {
			return nil, fmt.Errorf("%w: raw descriptor set %d", ErrUnsupportedCommand, s.Index)
		}
		if seen[s.Index] {
			return nil, fmt.Errorf("native: descriptor set %d bound twice", s.Index)
		}
		seen[s.Index] = true
		for int(s.Index) >= len(groups) {
			groups = append(groups, nil)
		}
		for _, bnd := range s.Bindings {
			res, err := table.Resource(bnd)
			if err != nil {
				return nil, err
			}
			st, err := d.storageOf(res)
			if err != nil {
				return nil, err
			}
			typ := gputypes.BufferBindingTypeReadOnlyStorage
			if bnd.IsWrite() {
				typ = gputypes.BufferBindingTypeStorage
			}
			groups[s.Index] = append(groups[s.Index], boundBuffer{buf: st.buf, size: st.size, typ: typ})
		}
	}
	return groups, nil
}

// uniform uploads push constants into a buffer owned by the batch.
func (d *Device) uniform(b *batch, pass string, data []byte) (hal.Buffer, error) {
	size := alignSize(uint64(len(data)))
	u, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: pass + "_constants",
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create constants buffer: %w", err)
	}
	b.uniforms = append(b.uniforms, u)
	padded := make([]byte, size)
	copy(padded, data)
	if err := d.queue.WriteBuffer(u, 0, padded); err != nil {
		return nil, fmt.Errorf("native: write constants: %w", err)
	}
	return u, nil
}

// clear fills every texel of an image with the encoding of v.
func (d *Device) clear(b *batch, img rg.Binding, table *rg.ResourceTable, v f32.Vec4, stencil uint8) error {
	res, err := table.Image(img)
	if err != nil {
		return err
	}
	st, err := d.storageOf(res)
	if err != nil {
		return err
	}
	texel, err := encodeTexel(st.format, v, stencil)
	if err != nil {
		return err
	}
	if err := b.flush(); err != nil {
		return err
	}
	fill := make([]byte, st.size)
	n := copy(fill, bytes.Repeat(texel, int(res.Desc.TexelCount()))) //nolint:gosec // image sizes fit int
	if err := d.queue.WriteBuffer(st.buf, 0, fill); err != nil {
		return fmt.Errorf("native: clear %q: %w", res.Label, err)
	}
	slogger().Debug("native: image cleared", "image", res.Label, "bytes", n)
	return nil
}

// workgroups returns the workgroup count covering extent.
func workgroups(extent, size [3]uint32) [3]uint32 {
	var n [3]uint32
	for i := range n {
		n[i] = (extent[i] + size[i] - 1) / size[i]
	}
	return n
}
