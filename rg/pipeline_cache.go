// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
)

// PipelineCache deduplicates pipeline descriptions by content and caches the
// pipelines compiled from them per device.
//
// Registering an equal description twice, from any pass or graph sharing the
// cache, yields the same PipelineID, and the pipeline is compiled once per
// device. Graphs created without WithPipelineCache get a private cache, so
// sharing one across frames is what makes compilation a one-time cost.
//
// PipelineCache is safe for concurrent use. Lookups take a read lock; creation
// double-checks under the write lock.
type PipelineCache struct {
	mu       sync.RWMutex
	descs    map[PipelineID]registered
	compiled map[compiledKey]Pipeline

	hits   uint64
	misses uint64
}

// registered is a description stored with its canonical key.
type registered struct {
	desc PipelineDesc
	key  []byte
}

type compiledKey struct {
	device Device
	id     PipelineID
}

// NewPipelineCache creates an empty cache.
func NewPipelineCache() *PipelineCache {
	return &PipelineCache{
		descs:    make(map[PipelineID]registered),
		compiled: make(map[compiledKey]Pipeline),
	}
}

// Register validates desc and records it under its content hash.
// Registering an equal description again returns the same id. A different
// description whose hash collides with a registered one is rejected with
// ErrInvalidPipeline rather than sharing its pipeline.
func (c *PipelineCache) Register(desc PipelineDesc) (PipelineID, error) {
	if desc == nil {
		return 0, fmt.Errorf("%w: nil description", ErrInvalidPipeline)
	}
	if err := desc.Validate(); err != nil {
		return 0, err
	}
	key := pipelineKey(desc)
	id := hashPipelineKey(key)

	c.mu.RLock()
	reg, ok := c.descs[id]
	c.mu.RUnlock()
	if ok {
		return id, checkCollision(id, reg, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if reg, ok := c.descs[id]; ok {
		return id, checkCollision(id, reg, key)
	}
	c.descs[id] = registered{desc: cloneDesc(desc), key: key}
	return id, nil
}

func checkCollision(id PipelineID, reg registered, key []byte) error {
	if bytes.Equal(reg.key, key) {
		return nil
	}
	return fmt.Errorf("%w: %s already names a different %s pipeline", ErrInvalidPipeline, id, reg.desc.PipelineKind())
}

// Desc returns the registered description for id.
func (c *PipelineCache) Desc(id PipelineID) (PipelineDesc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, ok := c.descs[id]
	return reg.desc, ok
}

// GetOrCreate returns the pipeline compiled for id on device, compiling it on
// first use.
func (c *PipelineCache) GetOrCreate(device Device, id PipelineID) (Pipeline, error) {
	p, _, err := c.getOrCreate(device, id)
	return p, err
}

func (c *PipelineCache) getOrCreate(device Device, id PipelineID) (Pipeline, bool, error) {
	if device == nil {
		return nil, false, ErrNilDevice
	}
	key := compiledKey{device: device, id: id}

	// Fast path: read lock
	c.mu.RLock()
	if p, ok := c.compiled[key]; ok {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return p, true, nil
	}
	reg, ok := c.descs[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownPipeline, id)
	}
	desc := reg.desc

	// Slow path: write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.compiled[key]; ok {
		atomic.AddUint64(&c.hits, 1)
		return p, true, nil
	}

	p, err := device.CreatePipeline(desc)
	if err != nil {
		return nil, false, fmt.Errorf("rg: create %s pipeline %s: %w", desc.PipelineKind(), id, err)
	}
	c.compiled[key] = p
	atomic.AddUint64(&c.misses, 1)
	slogger().Debug("rg: pipeline compiled", "kind", desc.PipelineKind(), "id", id, "device", device.Name())
	return p, false, nil
}

// Stats returns cache hits and misses.
func (c *PipelineCache) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// HitRate returns the compile cache hit rate in [0, 1].
func (c *PipelineCache) HitRate() float64 {
	hits, misses := c.Stats()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Registered returns the number of distinct registered descriptions.
func (c *PipelineCache) Registered() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.descs)
}

// Compiled returns the number of compiled pipelines across all devices.
func (c *PipelineCache) Compiled() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.compiled)
}

// DestroyAll destroys every compiled pipeline and resets statistics.
// Registered descriptions are kept.
func (c *PipelineCache) DestroyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.compiled {
		if p != nil {
			p.Destroy()
		}
	}
	c.compiled = make(map[compiledKey]Pipeline)
	atomic.StoreUint64(&c.hits, 0)
	atomic.StoreUint64(&c.misses, 0)
}

// cloneDesc copies desc so later caller mutation cannot alter the cache.
func cloneDesc(desc PipelineDesc) PipelineDesc {
	switch d := desc.(type) {
	case *ComputePipelineDesc:
		c := *d
		if d.Layout != nil {
			l := BindingLayout{Slots: append([]BindingSlot(nil), d.Layout.Slots...)}
			c.Layout = &l
		}
		return &c
	case *RasterPipelineDesc:
		c := *d
		c.Stages = append([]PipelineShader(nil), d.Stages...)
		if d.RenderPass != nil {
			rp := *d.RenderPass
			rp.Color = append([]AttachmentDesc(nil), d.RenderPass.Color...)
			c.RenderPass = &rp
		}
		return &c
	case *RayTracingPipelineDesc:
		c := *d
		c.Stages = append([]PipelineShader(nil), d.Stages...)
		return &c
	default:
		return desc
	}
}
