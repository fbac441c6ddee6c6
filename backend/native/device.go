// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device is an rg.Device backed by a HAL device and queue.
//
// Resource creation is safe for concurrent use. Submit calls are serialized.
type Device struct {
	opts options

	// instance is set when the device was opened by Open and is owned.
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool

	submitMu sync.Mutex
	closed   atomic.Bool

	buffers atomic.Int64
	images  atomic.Int64
}

// storage is the Native payload of buffers and images created by a Device.
type storage struct {
	dev    *Device
	buf    hal.Buffer
	size   uint64
	format gputypes.TextureFormat
}

// New wraps a HAL device and queue owned by the caller. Close releases the
// resources of the Device but leaves device and queue alive.
func New(device hal.Device, queue hal.Queue, opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Device{opts: o, device: device, queue: queue, external: true}
}

// NewFromProvider shares the GPU of a host application. The provider must
// also implement HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue, as gogpu does.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	slogger().Info("native: using shared GPU device")
	return New(device, queue, opts...), nil
}

// Name implements rg.Device.
func (d *Device) Name() string { return "native" }

// LiveResources reports the number of buffers and images not yet destroyed.
func (d *Device) LiveResources() (buffers, images int64) {
	return d.buffers.Load(), d.images.Load()
}

// CreateBuffer implements rg.Device. Every buffer is usable as a storage
// buffer and as a copy source and destination.
func (d *Device) CreateBuffer(desc rg.BufferDesc, label string) (*rg.Buffer, error) {
	s, err := d.createStorage(label, desc.Size, desc.Usage, gputypes.TextureFormatUndefined)
	if err != nil {
		return nil, err
	}
	d.buffers.Add(1)
	return &rg.Buffer{Desc: desc, Label: label, Native: s}, nil
}

// CreateImage implements rg.Device. Only mip level 0 is stored.
func (d *Device) CreateImage(desc rg.ImageDesc, label string) (*rg.Image, error) {
	texel, err := texelSize(desc.Format)
	if err != nil {
		return nil, err
	}
	s, err := d.createStorage(label, texel*desc.TexelCount(), 0, desc.Format)
	if err != nil {
		return nil, err
	}
	d.images.Add(1)
	return &rg.Image{Desc: desc, Label: label, Native: s}, nil
}

func (d *Device) createStorage(label string, size uint64, usage gputypes.BufferUsage, format gputypes.TextureFormat) (*storage, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	size = alignSize(size)
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create buffer %q (%d bytes): %w", label, size, err)
	}
	slogger().Debug("native: storage created", "label", label, "size", size)
	return &storage{dev: d, buf: buf, size: size, format: format}, nil
}

// DestroyBuffer implements rg.Device.
func (d *Device) DestroyBuffer(b *rg.Buffer) {
	if d.destroy(b) {
		d.buffers.Add(-1)
	}
}

// DestroyImage implements rg.Device.
func (d *Device) DestroyImage(img *rg.Image) {
	if d.destroy(img) {
		d.images.Add(-1)
	}
}

func (d *Device) destroy(res rg.Resource) bool {
	s, err := d.storageOf(res)
	if err != nil {
		slogger().Warn("native: destroy skipped", "resource", res.ResourceLabel(), "err", err)
		return false
	}
	d.device.DestroyBuffer(s.buf)
	s.buf = nil
	return true
}

// storageOf returns the storage of a live resource created by d.
func (d *Device) storageOf(res rg.Resource) (*storage, error) {
	var native any
	switch r := res.(type) {
	case *rg.Buffer:
		native = r.Native
	case *rg.Image:
		native = r.Native
	}
	s, ok := native.(*storage)
	if !ok || s.dev != d || s.buf == nil {
		return nil, fmt.Errorf("%w: %s", ErrForeignResource, res.ResourceLabel())
	}
	return s, nil
}

// Write uploads data into a buffer or image at offset bytes.
func (d *Device) Write(res rg.Resource, offset uint64, data []byte) error {
	s, err := d.storageOf(res)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > s.size {
		return fmt.Errorf("native: write of %d bytes at %d exceeds %q (%d bytes)", len(data), offset, res.ResourceLabel(), s.size)
	}
	if err := d.queue.WriteBuffer(s.buf, offset, data); err != nil {
		return fmt.Errorf("native: write %q: %w", res.ResourceLabel(), err)
	}
	return nil
}

// Read copies the contents of a buffer or image back from the GPU.
func (d *Device) Read(res rg.Resource) ([]byte, error) {
	s, err := d.storageOf(res)
	if err != nil {
		return nil, err
	}
	d.submitMu.Lock()
	defer d.submitMu.Unlock()

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "native_readback",
		Size:  s.size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}
	b := newBatch(d)
	defer func() {
		if !b.inFlight {
			d.device.DestroyBuffer(staging)
		}
		b.cleanup()
	}()
	enc, err := b.encoder()
	if err != nil {
		return nil, err
	}
	enc.CopyBufferToBuffer(s.buf, staging, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: s.size}})
	if err := b.flush(); err != nil {
		return nil, err
	}

	m, err := d.device.MapBuffer(staging, 0, s.size)
	if err != nil {
		return nil, fmt.Errorf("native: map readback buffer: %w", err)
	}
	data := make([]byte, s.size)
	copy(data, unsafe.Slice((*byte)(m.Ptr), s.size))
	if err := d.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("native: unmap readback buffer: %w", err)
	}
	return data, nil
}

// Close releases the device. Resources still alive are reported and leaked
// to the HAL device. Devices opened by Open destroy their HAL device.
func (d *Device) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	if b, i := d.LiveResources(); b != 0 || i != 0 {
		slogger().Warn("native: closing with live resources", "buffers", b, "images", i)
	}
	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	return nil
}
