// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compose

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gputypes"
)

// importKind imports a resource of kind k into g and returns its handle as
// both a Readable and a Writable.
func importKind(g *rg.Graph, k rg.ResourceKind) rg.Writable {
	switch k {
	case rg.KindBuffer:
		h := rg.Import[rg.BufferDesc](g, &rg.Buffer{Desc: rg.NewBufferDesc(64, 0), Label: "buf"}, rg.AccessNothing)
		return &h
	case rg.KindImage:
		desc := rg.NewImageDesc2D(gputypes.TextureFormatRGBA8Unorm, [2]uint32{8, 8})
		h := rg.Import[rg.ImageDesc](g, &rg.Image{Desc: desc, Label: "img"}, rg.AccessNothing)
		return &h
	default:
		h := rg.Import[rg.RayTracingAccelerationDesc](g, &rg.RayTracingAcceleration{Label: "tlas"}, rg.AccessNothing)
		return &h
	}
}

type step struct {
	kind  rg.ResourceKind
	write bool
}

// compose builds one pass from steps and returns its recorded set 0.
func compose(t *testing.T, steps []step) []rg.Binding {
	t.Helper()
	g := rg.NewGraph()
	handles := make([]rg.Writable, len(steps))
	for i, s := range steps {
		handles[i] = importKind(g, s.kind)
	}
	p := g.AddPass("composed")
	s := New(p, "shaders/composed.hlsl")
	for i, st := range steps {
		if st.write {
			s.Write(handles[i])
		} else {
			s.Read(handles[i])
		}
	}
	if err := s.Dispatch([3]uint32{1, 1, 1}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	cmds := p.Commands()
	if len(cmds) != 1 {
		t.Fatalf("recorded %d commands, want 1", len(cmds))
	}
	return cmds[0].Bindings()
}

// slotKey is the part of a binding that does not depend on which graph
// issued its handle.
type slotKey struct {
	kind    rg.ResourceKind
	id      uint32
	version uint32
	access  rg.AccessType
	view    rg.ImageViewDesc
}

func slotKeys(bindings []rg.Binding) []slotKey {
	keys := make([]slotKey, len(bindings))
	for i, b := range bindings {
		keys[i] = slotKey{b.Kind, b.Handle.ID(), b.Handle.Version(), b.Access, b.View}
	}
	return keys
}

func TestBindingOrderDeterminism(t *testing.T) {
	kinds := []rg.ResourceKind{rg.KindBuffer, rg.KindImage, rg.KindRayTracingAcceleration}
	var combos [][]step
	for _, a := range kinds {
		for _, b := range kinds {
			for mask := range 4 {
				combos = append(combos, []step{
					{kind: a, write: mask&1 != 0},
					{kind: b, write: mask&2 != 0},
				})
			}
		}
	}

	for _, steps := range combos {
		t.Run(fmt.Sprint(steps), func(t *testing.T) {
			first := compose(t, steps)
			second := compose(t, steps)
			if !slices.Equal(slotKeys(first), slotKeys(second)) {
				t.Fatalf("bindings differ:\n%v\n%v", first, second)
			}
			for i, st := range steps {
				b := first[i]
				if b.Kind != st.kind || b.IsWrite() != st.write {
					t.Errorf("slot %d = %s, want kind %s write=%t", i, b, st.kind, st.write)
				}
				if b.Handle.ID() != uint32(i+1) { //nolint:gosec // small test index
					t.Errorf("slot %d bound resource #%d, want call order", i, b.Handle.ID())
				}
				if b.Handle == second[i].Handle {
					t.Errorf("slot %d: handles of separate graphs compare equal", i)
				}
			}
		})
	}
}

func TestDispatchRecordsOneCommand(t *testing.T) {
	g := rg.NewGraph()
	gbuffer := importKind(g, rg.KindImage).(*rg.Handle[rg.ImageDesc])
	depthDesc := rg.NewImageDesc2D(gputypes.TextureFormatDepth24PlusStencil8, [2]uint32{8, 8})
	depth := rg.Import[rg.ImageDesc](g, &rg.Image{Desc: depthDesc, Label: "depth"}, rg.AccessNothing)
	out := importKind(g, rg.KindBuffer)

	p := g.AddPass("shade")
	err := New(p, "shaders/shade.hlsl").
		Read(*gbuffer).
		ReadAspect(depth, rg.AspectDepth).
		WriteWith(out, rg.AccessGeneral).
		Constants([]byte{1, 2, 3, 4}).
		RawDescriptorSet(1, 0xB1D1E55).
		Dispatch([3]uint32{8, 8, 1})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	d, ok := p.Commands()[0].(rg.Dispatch)
	if !ok {
		t.Fatalf("command = %T, want rg.Dispatch", p.Commands()[0])
	}
	if !d.Pipeline.IsValid() || d.Extent != [3]uint32{8, 8, 1} {
		t.Errorf("dispatch = %+v", d)
	}
	if string(d.Constants) != "\x01\x02\x03\x04" {
		t.Errorf("Constants = %v", d.Constants)
	}
	if len(d.Sets) != 2 || d.Sets[0].Index != 0 || !d.Sets[1].IsRaw() || d.Sets[1].Index != 1 {
		t.Fatalf("Sets = %+v", d.Sets)
	}
	set0 := d.Sets[0].Bindings
	if len(set0) != 3 {
		t.Fatalf("set 0 has %d bindings", len(set0))
	}
	if set0[0].Access != ReadAccess || set0[0].View.Aspect != 0 {
		t.Errorf("gbuffer binding = %s", set0[0])
	}
	if set0[1].View.Aspect != rg.AspectDepth {
		t.Errorf("depth view aspect = %v, want depth only", set0[1].View.Aspect)
	}
	if set0[2].Access != rg.AccessGeneral {
		t.Errorf("output access = %v", set0[2].Access)
	}
	if !p.Recorded() {
		t.Error("pass not finalized")
	}
}

var shadeLayout = &rg.BindingLayout{Slots: []rg.BindingSlot{
	{Name: "input", Kind: rg.KindImage},
	{Name: "params", Kind: rg.KindBuffer},
	{Name: "output", Kind: rg.KindImage, Write: true},
}}

func TestNamedSlots(t *testing.T) {
	g := rg.NewGraph()
	in := importKind(g, rg.KindImage)
	params := importKind(g, rg.KindBuffer)
	out := importKind(g, rg.KindImage)

	p := g.AddPass("named")
	s := NewWithLayout(p, rg.ComputePipelineDesc{Shader: "shaders/named.hlsl", Layout: shadeLayout})
	err := s.BindSlotWrite("output", out).
		BindSlot("params", params).
		BindSlot("input", in).
		Dispatch([3]uint32{8, 8, 1})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	got := p.Commands()[0].Bindings()
	want := []uint32{in.Raw().ID(), params.Raw().ID(), out.Raw().ID()}
	for i, b := range got {
		if b.Handle.ID() != want[i] {
			t.Errorf("slot %d bound #%d, want #%d", i, b.Handle.ID(), want[i])
		}
	}
}

func TestNamedSlotErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(s *SimpleComputePass, img, buf, out rg.Writable) *SimpleComputePass
		want  error
	}{
		{
			name: "unknown slot",
			build: func(s *SimpleComputePass, img, buf, out rg.Writable) *SimpleComputePass {
				return s.BindSlot("input", img).BindSlot("param", buf).BindSlotWrite("output", out)
			},
			want: ErrUnknownSlot,
		},
		{
			name: "bound twice",
			build: func(s *SimpleComputePass, img, buf, out rg.Writable) *SimpleComputePass {
				return s.BindSlot("input", img).BindSlot("input", img).BindSlot("params", buf).BindSlotWrite("output", out)
			},
			want: ErrSlotBoundTwice,
		},
		{
			name: "unbound",
			build: func(s *SimpleComputePass, img, buf, out rg.Writable) *SimpleComputePass {
				return s.BindSlot("input", img).BindSlotWrite("output", out)
			},
			want: ErrSlotUnbound,
		},
		{
			name: "wrong kind",
			build: func(s *SimpleComputePass, img, buf, out rg.Writable) *SimpleComputePass {
				return s.BindSlot("input", buf).BindSlot("params", img).BindSlotWrite("output", out)
			},
			want: ErrLayoutMismatch,
		},
		{
			name: "read bound to write slot",
			build: func(s *SimpleComputePass, img, buf, out rg.Writable) *SimpleComputePass {
				return s.BindSlot("input", img).BindSlot("params", buf).BindSlot("output", out)
			},
			want: ErrLayoutMismatch,
		},
		{
			name: "positional past layout",
			build: func(s *SimpleComputePass, img, buf, out rg.Writable) *SimpleComputePass {
				return s.Read(img).Read(buf).Write(out).Read(buf)
			},
			want: ErrLayoutMismatch,
		},
		{
			name: "positional count mismatch",
			build: func(s *SimpleComputePass, img, buf, out rg.Writable) *SimpleComputePass {
				return s.Read(img).Read(buf)
			},
			want: ErrSlotUnbound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := rg.NewGraph()
			img, buf, out := importKind(g, rg.KindImage), importKind(g, rg.KindBuffer), importKind(g, rg.KindImage)
			p := g.AddPass(tt.name)
			s := NewWithLayout(p, rg.ComputePipelineDesc{Shader: "shaders/named.hlsl", Layout: shadeLayout})

			err := tt.build(s, img, buf, out).Dispatch([3]uint32{1, 1, 1})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Dispatch() error = %v, want %v", err, tt.want)
			}
			if p.Recorded() {
				t.Error("a misbound dispatch was recorded")
			}
			if !errors.Is(g.Err(), tt.want) {
				t.Errorf("graph error = %v, want it to carry %v", g.Err(), tt.want)
			}
		})
	}
}

func TestPositionalMatchesLayout(t *testing.T) {
	g := rg.NewGraph()
	in, params, out := importKind(g, rg.KindImage), importKind(g, rg.KindBuffer), importKind(g, rg.KindImage)
	p := g.AddPass("positional")
	err := NewWithLayout(p, rg.ComputePipelineDesc{Shader: "shaders/named.hlsl", Layout: shadeLayout}).
		Read(in).Read(params).Write(out).
		Dispatch([3]uint32{1, 1, 1})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
}

func TestBindSlotWithoutLayout(t *testing.T) {
	g := rg.NewGraph()
	in := importKind(g, rg.KindImage)
	err := New(g.AddPass("p"), "shaders/plain.hlsl").BindSlot("input", in).Dispatch([3]uint32{1, 1, 1})
	if !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("Dispatch() error = %v, want ErrUnknownSlot", err)
	}
}

func TestInvalidLayoutFailsPass(t *testing.T) {
	g := rg.NewGraph()
	bad := &rg.BindingLayout{Slots: []rg.BindingSlot{{Name: "a", Kind: rg.KindImage}, {Name: "a", Kind: rg.KindImage}}}
	p := g.AddPass("bad")
	s := NewWithLayout(p, rg.ComputePipelineDesc{Shader: "shaders/bad.hlsl", Layout: bad})
	if s.Pipeline().IsValid() {
		t.Fatal("pipeline with duplicate slot names registered")
	}
	if err := s.Dispatch([3]uint32{1, 1, 1}); !errors.Is(err, rg.ErrInvalidPipeline) {
		t.Errorf("Dispatch() error = %v, want ErrInvalidPipeline", err)
	}
}
