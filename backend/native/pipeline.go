// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// computePipeline is a compiled shader module plus the HAL pipelines built
// from it, one per binding signature.
//
// Variant lookup is safe for concurrent use. It uses RWMutex with
// double-check locking, the same way the pipeline caches of the 2D renderer
// do.
type computePipeline struct {
	dev        *Device
	label      string
	entryPoint string
	module     hal.ShaderModule

	mu       sync.RWMutex
	variants map[string]*variant

	hits   atomic.Uint64
	misses atomic.Uint64
}

// variant is a HAL compute pipeline for one binding signature.
type variant struct {
	groups   []hal.BindGroupLayout
	layout   hal.PipelineLayout
	pipeline hal.ComputePipeline
}

// signature lists the buffer binding type of every slot, per bind group.
type signature [][]gputypes.BufferBindingType

func (s signature) key() string { return fmt.Sprint([][]gputypes.BufferBindingType(s)) }

// CreatePipeline implements rg.Device. Only compute pipelines are supported.
func (d *Device) CreatePipeline(desc rg.PipelineDesc) (rg.Pipeline, error) {
	cd, ok := desc.(*rg.ComputePipelineDesc)
	if !ok {
		return nil, fmt.Errorf("%w: %s pipeline", ErrUnsupportedCommand, desc.PipelineKind())
	}
	src, err := d.shaderSource(cd.Shader)
	if err != nil {
		return nil, err
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShaderCompile, cd.Shader, err)
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  cd.Shader,
		Source: hal.ShaderSource{SPIRV: spirvWords(spirv)},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create shader module %s: %w", cd.Shader, err)
	}
	entry := cd.EntryPoint
	if entry == "" {
		entry = "main"
	}
	slogger().Debug("native: shader compiled", "shader", cd.Shader, "spirv_bytes", len(spirv))
	return &computePipeline{
		dev:        d,
		label:      cd.Shader,
		entryPoint: entry,
		module:     module,
		variants:   make(map[string]*variant),
	}, nil
}

// shaderSource reads the WGSL source for a graph shader path.
func (d *Device) shaderSource(shader string) (string, error) {
	if d.opts.shaders == nil {
		return "", fmt.Errorf("%w: %s: no shader file system configured", ErrNoShaderSource, shader)
	}
	name := strings.TrimPrefix(shader, "/")
	name = strings.TrimSuffix(name, path.Ext(name)) + ".wgsl"
	src, err := fs.ReadFile(d.opts.shaders, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNoShaderSource, name)
		}
		return "", fmt.Errorf("native: read shader %s: %w", name, err)
	}
	return string(src), nil
}

// spirvWords converts little-endian SPIR-V bytes to words.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}

// variant returns the pipeline for sig, creating it on first use.
func (p *computePipeline) variant(sig signature) (*variant, error) {
	key := sig.key()

	// Fast path: read lock
	p.mu.RLock()
	if v, ok := p.variants[key]; ok {
		p.mu.RUnlock()
		p.hits.Add(1)
		return v, nil
	}
	p.mu.RUnlock()

	// Slow path: write lock with double-check
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.variants[key]; ok {
		p.hits.Add(1)
		return v, nil
	}

	v, err := p.createVariant(sig)
	if err != nil {
		return nil, err
	}
	p.variants[key] = v
	p.misses.Add(1)
	return v, nil
}

// stats returns variant cache hits and misses.
func (p *computePipeline) stats() (hits, misses uint64) {
	return p.hits.Load(), p.misses.Load()
}

func (p *computePipeline) createVariant(sig signature) (*variant, error) {
	device := p.dev.device
	v := &variant{}
	for i, slots := range sig {
		entries := make([]gputypes.BindGroupLayoutEntry, len(slots))
		for j, t := range slots {
			entries[j] = gputypes.BindGroupLayoutEntry{
				Binding:    uint32(j), //nolint:gosec // slot counts are small
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: t},
			}
		}
		bgl, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_bgl%d", p.label, i),
			Entries: entries,
		})
		if err != nil {
			v.destroy(device)
			return nil, fmt.Errorf("native: create bind group layout %d for %s: %w", i, p.label, err)
		}
		v.groups = append(v.groups, bgl)
	}

	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label + "_pl",
		BindGroupLayouts: v.groups,
	})
	if err != nil {
		v.destroy(device)
		return nil, fmt.Errorf("native: create pipeline layout for %s: %w", p.label, err)
	}
	v.layout = layout

	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  p.label,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     p.module,
			EntryPoint: p.entryPoint,
		},
	})
	if err != nil {
		v.destroy(device)
		return nil, fmt.Errorf("native: create compute pipeline %s: %w", p.label, err)
	}
	v.pipeline = pipeline

	slogger().Debug("native: pipeline variant created", "shader", p.label, "signature", sig.key())
	return v, nil
}

func (v *variant) destroy(device hal.Device) {
	if v.pipeline != nil {
		device.DestroyComputePipeline(v.pipeline)
	}
	if v.layout != nil {
		device.DestroyPipelineLayout(v.layout)
	}
	for _, g := range v.groups {
		device.DestroyBindGroupLayout(g)
	}
}

// Destroy implements rg.Pipeline.
func (p *computePipeline) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range p.variants {
		v.destroy(p.dev.device)
	}
	p.variants = make(map[string]*variant)
	if p.module != nil {
		p.dev.device.DestroyShaderModule(p.module)
		p.module = nil
	}
}
