// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"

	"github.com/gogpu/gputypes"
)

// MaxRayRecursionDepth is the largest ray recursion depth a ray-tracing
// pipeline may request.
const MaxRayRecursionDepth = 31

// ShaderStage identifies the pipeline stage a shader runs in.
type ShaderStage uint8

const (
	StageCompute ShaderStage = iota + 1
	StageVertex
	StagePixel
	StageRayGen
	StageRayMiss
	StageRayClosestHit
)

// String returns the string representation of ShaderStage.
func (s ShaderStage) String() string {
	switch s {
	case StageCompute:
		return "Compute"
	case StageVertex:
		return "Vertex"
	case StagePixel:
		return "Pixel"
	case StageRayGen:
		return "RayGen"
	case StageRayMiss:
		return "RayMiss"
	case StageRayClosestHit:
		return "RayClosestHit"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// PipelineShader names a shader source and the stage it is compiled for.
type PipelineShader struct {
	Path       string
	Stage      ShaderStage
	EntryPoint string
}

// NewPipelineShader returns a shader for stage with the "main" entry point.
func NewPipelineShader(path string, stage ShaderStage) PipelineShader {
	return PipelineShader{Path: path, Stage: stage, EntryPoint: "main"}
}

// BindingSlot is one named entry of a declared binding layout.
type BindingSlot struct {
	Name  string
	Kind  ResourceKind
	Write bool
}

// BindingLayout is the ordered list of named slots a compute shader declares
// for descriptor set 0. Slot i is bound at binding index i.
type BindingLayout struct {
	Slots []BindingSlot
}

// Index returns the slot index of name.
func (l *BindingLayout) Index(name string) (int, bool) {
	if l == nil {
		return 0, false
	}
	for i := range l.Slots {
		if l.Slots[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Validate checks that slot names are present and unique and kinds are known.
func (l *BindingLayout) Validate() error {
	if l == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(l.Slots))
	for i, s := range l.Slots {
		if s.Name == "" {
			return fmt.Errorf("%w: slot %d has no name", ErrInvalidPipeline, i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: duplicate slot %q", ErrInvalidPipeline, s.Name)
		}
		seen[s.Name] = struct{}{}
		switch s.Kind {
		case KindBuffer, KindImage, KindRayTracingAcceleration:
		default:
			return fmt.Errorf("%w: slot %q has kind %s", ErrInvalidPipeline, s.Name, s.Kind)
		}
	}
	return nil
}

// PipelineKind distinguishes the three pipeline families.
type PipelineKind uint8

const (
	PipelineCompute PipelineKind = iota + 1
	PipelineRaster
	PipelineRayTracing
)

// String returns the string representation of PipelineKind.
func (k PipelineKind) String() string {
	switch k {
	case PipelineCompute:
		return "Compute"
	case PipelineRaster:
		return "Raster"
	case PipelineRayTracing:
		return "RayTracing"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// PipelineDesc is implemented by *ComputePipelineDesc, *RasterPipelineDesc and
// *RayTracingPipelineDesc.
type PipelineDesc interface {
	PipelineKind() PipelineKind
	Validate() error
	writeHash(h io.Writer)
}

// ComputePipelineDesc describes a single-stage compute pipeline.
type ComputePipelineDesc struct {
	// Shader is the shader source path.
	Shader string

	// EntryPoint defaults to "main" when empty.
	EntryPoint string

	// Layout optionally declares the named slots of descriptor set 0.
	Layout *BindingLayout
}

// PipelineKind implements PipelineDesc.
func (d *ComputePipelineDesc) PipelineKind() PipelineKind { return PipelineCompute }

// Validate implements PipelineDesc.
func (d *ComputePipelineDesc) Validate() error {
	if d.Shader == "" {
		return fmt.Errorf("%w: compute pipeline has no shader", ErrInvalidPipeline)
	}
	return d.Layout.Validate()
}

func (d *ComputePipelineDesc) writeHash(h io.Writer) {
	hashWriteString(h, d.Shader)
	hashWriteString(h, entryPointOrMain(d.EntryPoint))
	if d.Layout == nil {
		hashWriteBool(h, false)
		return
	}
	hashWriteBool(h, true)
	hashWriteUint32(h, uint32(len(d.Layout.Slots))) //nolint:gosec // slot counts are tiny
	for _, s := range d.Layout.Slots {
		hashWriteString(h, s.Name)
		hashWriteUint32(h, uint32(s.Kind))
		hashWriteBool(h, s.Write)
	}
}

// AttachmentDesc describes one render pass attachment.
type AttachmentDesc struct {
	Format gputypes.TextureFormat
	Load   gputypes.LoadOp
	Store  gputypes.StoreOp
}

// RenderPassDesc describes the attachment formats of a raster pass.
type RenderPassDesc struct {
	Label string
	Color []AttachmentDesc
	Depth *AttachmentDesc
}

// RasterPipelineDesc describes a vertex + pixel raster pipeline.
type RasterPipelineDesc struct {
	Stages     []PipelineShader
	RenderPass *RenderPassDesc
	FaceCull   bool
	DepthWrite bool
}

// PipelineKind implements PipelineDesc.
func (d *RasterPipelineDesc) PipelineKind() PipelineKind { return PipelineRaster }

// Validate implements PipelineDesc. A raster pipeline needs exactly one
// vertex and one pixel stage and a render pass.
func (d *RasterPipelineDesc) Validate() error {
	counts := countStages(d.Stages)
	if counts[StageVertex] != 1 || counts[StagePixel] != 1 || len(d.Stages) != 2 {
		return fmt.Errorf("%w: raster pipeline needs one vertex and one pixel stage, got %s",
			ErrInvalidPipeline, stageList(d.Stages))
	}
	if d.RenderPass == nil {
		return fmt.Errorf("%w: raster pipeline has no render pass", ErrInvalidPipeline)
	}
	return nil
}

func (d *RasterPipelineDesc) writeHash(h io.Writer) {
	hashWriteStages(h, d.Stages)
	hashWriteBool(h, d.FaceCull)
	hashWriteBool(h, d.DepthWrite)
	if d.RenderPass == nil {
		hashWriteBool(h, false)
		return
	}
	hashWriteBool(h, true)
	hashWriteUint32(h, uint32(len(d.RenderPass.Color))) //nolint:gosec // attachment counts are tiny
	for _, a := range d.RenderPass.Color {
		hashWriteAttachment(h, a)
	}
	if d.RenderPass.Depth != nil {
		hashWriteBool(h, true)
		hashWriteAttachment(h, *d.RenderPass.Depth)
	} else {
		hashWriteBool(h, false)
	}
}

// RayTracingPipelineDesc describes a ray-tracing pipeline.
type RayTracingPipelineDesc struct {
	Stages                       []PipelineShader
	MaxPipelineRayRecursionDepth uint32
}

// PipelineKind implements PipelineDesc.
func (d *RayTracingPipelineDesc) PipelineKind() PipelineKind { return PipelineRayTracing }

// Validate implements PipelineDesc. A ray-tracing pipeline needs exactly one
// ray generation stage, at least one miss stage, at most one closest-hit stage
// and a recursion depth in [1, MaxRayRecursionDepth].
func (d *RayTracingPipelineDesc) Validate() error {
	counts := countStages(d.Stages)
	other := len(d.Stages) - counts[StageRayGen] - counts[StageRayMiss] - counts[StageRayClosestHit]
	if counts[StageRayGen] != 1 || counts[StageRayMiss] < 1 || counts[StageRayClosestHit] > 1 || other != 0 {
		return fmt.Errorf("%w: ray tracing pipeline needs one raygen, one or more miss and at most one closest-hit stage, got %s",
			ErrInvalidPipeline, stageList(d.Stages))
	}
	if d.MaxPipelineRayRecursionDepth == 0 || d.MaxPipelineRayRecursionDepth > MaxRayRecursionDepth {
		return fmt.Errorf("%w: ray recursion depth %d out of range", ErrInvalidPipeline, d.MaxPipelineRayRecursionDepth)
	}
	return nil
}

func (d *RayTracingPipelineDesc) writeHash(h io.Writer) {
	hashWriteStages(h, d.Stages)
	hashWriteUint32(h, d.MaxPipelineRayRecursionDepth)
}

// PipelineID identifies a pipeline description by content.
type PipelineID uint64

// String returns the id in hex.
func (id PipelineID) String() string { return fmt.Sprintf("pipeline:%016x", uint64(id)) }

// HashPipelineDesc computes an FNV-1a hash over every field of desc that
// affects the compiled pipeline. Equal descriptions hash equally.
func HashPipelineDesc(desc PipelineDesc) PipelineID {
	return hashPipelineKey(pipelineKey(desc))
}

// pipelineKey is the length-prefixed encoding of every field of desc that
// affects the compiled pipeline. Two descriptions compile to the same
// pipeline exactly when their keys are equal.
func pipelineKey(desc PipelineDesc) []byte {
	var b bytes.Buffer
	hashWriteUint32(&b, uint32(desc.PipelineKind()))
	desc.writeHash(&b)
	return b.Bytes()
}

func hashPipelineKey(key []byte) PipelineID {
	h := fnv.New64a()
	_, _ = h.Write(key)
	return PipelineID(h.Sum64())
}

// ComputePipelineHandle refers to a registered compute pipeline.
type ComputePipelineHandle struct {
	id     PipelineID
	layout *BindingLayout
}

// ID returns the pipeline id.
func (h ComputePipelineHandle) ID() PipelineID { return h.id }

// Layout returns the declared binding layout, or nil.
func (h ComputePipelineHandle) Layout() *BindingLayout { return h.layout }

// IsValid reports whether registration succeeded.
func (h ComputePipelineHandle) IsValid() bool { return h.id != 0 }

// RasterPipelineHandle refers to a registered raster pipeline.
type RasterPipelineHandle struct{ id PipelineID }

// ID returns the pipeline id.
func (h RasterPipelineHandle) ID() PipelineID { return h.id }

// IsValid reports whether registration succeeded.
func (h RasterPipelineHandle) IsValid() bool { return h.id != 0 }

// RayTracingPipelineHandle refers to a registered ray-tracing pipeline.
type RayTracingPipelineHandle struct{ id PipelineID }

// ID returns the pipeline id.
func (h RayTracingPipelineHandle) ID() PipelineID { return h.id }

// IsValid reports whether registration succeeded.
func (h RayTracingPipelineHandle) IsValid() bool { return h.id != 0 }

func entryPointOrMain(s string) string {
	if s == "" {
		return "main"
	}
	return s
}

func countStages(stages []PipelineShader) map[ShaderStage]int {
	counts := make(map[ShaderStage]int, len(stages))
	for _, s := range stages {
		counts[s.Stage]++
	}
	return counts
}

func stageList(stages []PipelineShader) string {
	if len(stages) == 0 {
		return "no stages"
	}
	s := ""
	for i, st := range stages {
		if i > 0 {
			s += ","
		}
		s += st.Stage.String()
	}
	return s
}

func hashWriteStages(h io.Writer, stages []PipelineShader) {
	hashWriteUint32(h, uint32(len(stages))) //nolint:gosec // stage counts are tiny
	for _, s := range stages {
		hashWriteUint32(h, uint32(s.Stage))
		hashWriteString(h, s.Path)
		hashWriteString(h, entryPointOrMain(s.EntryPoint))
	}
}

func hashWriteAttachment(h io.Writer, a AttachmentDesc) {
	hashWriteUint32(h, uint32(a.Format))
	hashWriteString(h, fmt.Sprint(a.Load))
	hashWriteString(h, fmt.Sprint(a.Store))
}

func hashWriteUint32(h io.Writer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashWriteBool(h io.Writer, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}

//nolint:gosec // G115: shader paths and entry points are short
func hashWriteString(h io.Writer, s string) {
	hashWriteUint32(h, uint32(len(s)))
	_, _ = h.Write([]byte(s))
}
