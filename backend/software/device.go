// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software provides a CPU implementation of rg.Device.
//
// Buffers and images are plain byte slices. Shaders are emulated by Go
// kernels registered per shader path: a compute pipeline compiles only if a
// kernel is registered for its shader, a raster pipeline for its pixel
// shader, and a ray-tracing pipeline for its ray generation shader. Kernels
// run once per Z slice of the dispatch extent, with slices executed in
// parallel.
//
// The device is deterministic, which makes it the reference backend for tests
// and a fallback when no GPU is available.
package software

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framegraph/rg"
)

var (
	// ErrNoKernel is returned when a pipeline references a shader with no registered kernel.
	ErrNoKernel = errors.New("software: no kernel registered for shader")

	// ErrUnsupportedFormat is returned when creating an image of a format the CPU codec lacks.
	ErrUnsupportedFormat = errors.New("software: unsupported texture format")

	// ErrForeignResource is returned when a resource was not created by a software device.
	ErrForeignResource = errors.New("software: resource not created by a software device")

	// ErrOutOfRange is returned by readback and upload outside a resource.
	ErrOutOfRange = errors.New("software: access out of range")
)

// Kernel emulates a shader. It is called once per Z slice of the command
// extent; calls for different slices may run concurrently and must only
// write texels of their own slice.
type Kernel func(inv *Invocation) error

// Option configures a Device.
type Option func(*options)

type options struct {
	kernels map[string]Kernel
	workers int
}

// WithKernel registers k for shader path.
func WithKernel(path string, k Kernel) Option {
	return func(o *options) {
		o.kernels[path] = k
	}
}

// WithWorkers limits the number of Z slices executed in parallel.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// Device is a CPU rg.Device.
//
// Device is safe for concurrent use, but Submit calls are serialized.
type Device struct {
	mu      sync.RWMutex
	kernels map[string]Kernel
	workers int

	submitMu sync.Mutex

	liveBuffers atomic.Int64
	liveImages  atomic.Int64
}

// New creates a software device.
func New(opts ...Option) *Device {
	o := options{kernels: make(map[string]Kernel), workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	slogger().Info("software: device created", "kernels", len(o.kernels), "workers", o.workers)
	return &Device{kernels: o.kernels, workers: o.workers}
}

// RegisterKernel registers or replaces the kernel for shader path.
func (d *Device) RegisterKernel(path string, k Kernel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kernels[path] = k
}

func (d *Device) kernel(path string) (Kernel, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	k, ok := d.kernels[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoKernel, path)
	}
	return k, nil
}

// Name implements rg.Device.
func (d *Device) Name() string { return "software" }

// LiveResources returns the number of buffers and images not yet destroyed.
func (d *Device) LiveResources() (buffers, images int64) {
	return d.liveBuffers.Load(), d.liveImages.Load()
}

// CreateBuffer implements rg.Device.
func (d *Device) CreateBuffer(desc rg.BufferDesc, label string) (*rg.Buffer, error) {
	d.liveBuffers.Add(1)
	slogger().Debug("software: create buffer", "label", label, "size", desc.Size)
	return &rg.Buffer{Desc: desc, Label: label, Native: &bufferMemory{data: make([]byte, desc.Size)}}, nil
}

// CreateImage implements rg.Device.
func (d *Device) CreateImage(desc rg.ImageDesc, label string) (*rg.Image, error) {
	mem, err := newImageMemory(desc)
	if err != nil {
		return nil, fmt.Errorf("software: create image %q: %w", label, err)
	}
	d.liveImages.Add(1)
	slogger().Debug("software: create image", "label", label, "extent", desc.Extent, "format", desc.Format)
	return &rg.Image{Desc: desc, Label: label, Native: mem}, nil
}

// DestroyBuffer implements rg.Device.
func (d *Device) DestroyBuffer(b *rg.Buffer) {
	if b == nil || b.Native == nil {
		return
	}
	b.Native = nil
	d.liveBuffers.Add(-1)
}

// DestroyImage implements rg.Device.
func (d *Device) DestroyImage(img *rg.Image) {
	if img == nil || img.Native == nil {
		return
	}
	img.Native = nil
	d.liveImages.Add(-1)
}

// pipeline is a compiled software pipeline: the kernel that emulates it.
type pipeline struct {
	kind   rg.PipelineKind
	shader string
	kernel Kernel
}

func (*pipeline) Destroy() {}

// CreatePipeline implements rg.Device.
func (d *Device) CreatePipeline(desc rg.PipelineDesc) (rg.Pipeline, error) {
	var shader string
	switch desc := desc.(type) {
	case *rg.ComputePipelineDesc:
		shader = desc.Shader
	case *rg.RasterPipelineDesc:
		shader = stagePath(desc.Stages, rg.StagePixel)
	case *rg.RayTracingPipelineDesc:
		shader = stagePath(desc.Stages, rg.StageRayGen)
	default:
		return nil, fmt.Errorf("software: unknown pipeline description %T", desc)
	}
	k, err := d.kernel(shader)
	if err != nil {
		return nil, err
	}
	return &pipeline{kind: desc.PipelineKind(), shader: shader, kernel: k}, nil
}

func stagePath(stages []rg.PipelineShader, stage rg.ShaderStage) string {
	for _, s := range stages {
		if s.Stage == stage {
			return s.Path
		}
	}
	return ""
}

// ReadBuffer copies the contents of a software buffer.
func ReadBuffer(b *rg.Buffer) ([]byte, error) {
	mem, err := bufferMem(b)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), mem.data...), nil
}

// WriteBuffer uploads data into a software buffer at offset.
func WriteBuffer(b *rg.Buffer, offset uint64, data []byte) error {
	mem, err := bufferMem(b)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > uint64(len(mem.data)) {
		return fmt.Errorf("%w: write of %d bytes at %d into %d", ErrOutOfRange, len(data), offset, len(mem.data))
	}
	copy(mem.data[offset:], data)
	return nil
}

// View returns texel access to a software image.
func View(img *rg.Image) (ImageView, error) {
	mem, err := imageMem(img)
	if err != nil {
		return ImageView{}, err
	}
	return ImageView{mem: mem}, nil
}

func bufferMem(b *rg.Buffer) (*bufferMemory, error) {
	if b == nil {
		return nil, ErrForeignResource
	}
	mem, ok := b.Native.(*bufferMemory)
	if !ok {
		return nil, fmt.Errorf("%w: buffer %q", ErrForeignResource, b.Label)
	}
	return mem, nil
}

func imageMem(img *rg.Image) (*imageMemory, error) {
	if img == nil {
		return nil, ErrForeignResource
	}
	mem, ok := img.Native.(*imageMemory)
	if !ok {
		return nil, fmt.Errorf("%w: image %q", ErrForeignResource, img.Label)
	}
	return mem, nil
}
