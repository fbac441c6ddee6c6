// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package temporal

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/framegraph/backend/software"
	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gputypes"
)

const (
	storeShader   = "test/store.hlsl"
	observeShader = "test/observe.hlsl"
)

// testDevice returns a software device with a kernel that stores the first
// push-constant word into buffer binding 0, and one that reports the first
// word of buffer binding 0 to observed.
func testDevice(observed *[]uint32) *software.Device {
	return software.New(
		software.WithKernel(storeShader, func(inv *software.Invocation) error {
			data, err := inv.Buffer(0)
			if err != nil {
				return err
			}
			copy(data, inv.Constants[:4])
			return nil
		}),
		software.WithKernel(observeShader, func(inv *software.Invocation) error {
			data, err := inv.Buffer(0)
			if err != nil {
				return err
			}
			*observed = append(*observed, binary.LittleEndian.Uint32(data))
			return nil
		}),
	)
}

func store(g *rg.Graph, h *rg.Handle[rg.BufferDesc], v uint32) {
	p := g.AddPass(fmt.Sprintf("store %#x", v))
	pipe := p.RegisterComputePipeline(storeShader)
	ref := rg.Write(p, h, rg.AccessComputeShaderWrite)
	p.Record(rg.Dispatch{
		Pipeline:  pipe,
		Sets:      []rg.DescriptorSet{rg.Set(0, ref.Bind())},
		Constants: binary.LittleEndian.AppendUint32(nil, v),
		Extent:    [3]uint32{1, 1, 1},
	})
}

func observe(g *rg.Graph, h rg.Handle[rg.BufferDesc]) {
	p := g.AddPass("observe")
	pipe := p.RegisterComputePipeline(observeShader)
	ref := rg.Read(p, h, rg.AccessComputeShaderReadOther)
	p.Record(rg.Dispatch{Pipeline: pipe, Sets: []rg.DescriptorSet{rg.Set(0, ref.Bind())}, Extent: [3]uint32{1, 1, 1}})
}

func TestEndToEndPersistence(t *testing.T) {
	var observed []uint32
	dev := testDevice(&observed)
	history, err := NewBuffer(dev, rg.NewBufferDesc(4, gputypes.BufferUsageStorage), "history")
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	reg := NewRegistry()
	if err := reg.Add("history", history); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	ctx := context.Background()

	frame := func(write uint32) {
		t.Helper()
		g := rg.NewGraph()
		f := reg.Begin(g)
		h := MustLookup[rg.BufferDesc](f, "history")
		observe(g, *h)
		if write != 0 {
			store(g, h, write)
		}
		reg.End(g, f)
		retired, err := g.Execute(ctx, dev)
		reg.Retire(retired)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}

	frame(0x2A)
	frame(0x7B)
	frame(0)

	want := []uint32{0, 0x2A, 0x7B}
	if fmt.Sprint(observed) != fmt.Sprint(want) {
		t.Errorf("observed = %#x, want %#x", observed, want)
	}
	if got := history.LastAccess(); got != rg.AccessComputeShaderReadOther {
		t.Errorf("LastAccess() = %v, want the read of the last frame", got)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if b, _ := dev.LiveResources(); b != 0 {
		t.Errorf("live buffers after Close = %d", b)
	}
}

func TestPersistenceWithoutWriters(t *testing.T) {
	var observed []uint32
	dev := testDevice(&observed)
	buf, err := NewBuffer(dev, rg.NewBufferDesc(4, gputypes.BufferUsageStorage), "b")
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	if err := software.WriteBuffer(buf.Resource().(*rg.Buffer), 0, []byte{7, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	backing := buf.Resource()

	for range 3 {
		g := rg.NewGraph()
		h := buf.Begin(g)
		buf.End(g, h)
		retired, err := g.Execute(context.Background(), dev)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		buf.Retire(retired)
	}
	if buf.Resource() != backing {
		t.Error("backing resource replaced across frames")
	}
	data, _ := software.ReadBuffer(backing.(*rg.Buffer))
	if data[0] != 7 {
		t.Errorf("contents = %v after frames without writers", data)
	}
	if buf.State() != rg.TemporalInert {
		t.Errorf("State() = %v, want Inert", buf.State())
	}
}

func TestBracketViolations(t *testing.T) {
	dev := software.New()
	newBuf := func(label string) *Temporal[rg.BufferDesc] {
		b, err := NewBuffer(dev, rg.NewBufferDesc(4, 0), label)
		if err != nil {
			t.Fatal(err)
		}
		return b
	}

	tests := []struct {
		name string
		want error
		fn   func()
	}{
		{"begin twice", rg.ErrTemporalAlreadyImported, func() {
			b, g := newBuf("a"), rg.NewGraph()
			b.Begin(g)
			b.Begin(g)
		}},
		{"end without begin", rg.ErrTemporalNotImported, func() {
			b, g := newBuf("a"), rg.NewGraph()
			var h rg.Handle[rg.BufferDesc]
			b.End(g, &h)
		}},
		{"end with other handle", rg.ErrTemporalHandleMismatch, func() {
			a, b, g := newBuf("a"), newBuf("b"), rg.NewGraph()
			a.Begin(g)
			hb := b.Begin(g)
			a.End(g, hb)
		}},
		{"retire without end", rg.ErrTemporalNotExported, func() {
			b, g := newBuf("a"), rg.NewGraph()
			b.Begin(g)
			retired, _ := g.Execute(context.Background(), dev)
			b.Retire(retired)
		}},
		{"registry begin twice", ErrFrameInProgress, func() {
			reg := NewRegistry()
			reg.Begin(rg.NewGraph())
			reg.Begin(rg.NewGraph())
		}},
		{"registry end twice", ErrFrameEnded, func() {
			reg, g := NewRegistry(), rg.NewGraph()
			f := reg.Begin(g)
			reg.End(g, f)
			reg.End(g, f)
		}},
		{"registry end foreign frame", ErrForeignFrame, func() {
			a, b, g := NewRegistry(), NewRegistry(), rg.NewGraph()
			f := a.Begin(g)
			b.End(g, f)
		}},
		{"registry end in other graph", ErrForeignFrame, func() {
			reg := NewRegistry()
			f := reg.Begin(rg.NewGraph())
			reg.End(rg.NewGraph(), f)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok || !errors.Is(err, tt.want) {
					t.Fatalf("panic = %v, want %v", r, tt.want)
				}
			}()
			tt.fn()
		})
	}
}

func TestRetireInertIsNoop(t *testing.T) {
	dev := software.New()
	b, _ := NewBuffer(dev, rg.NewBufferDesc(4, 0), "b")
	g := rg.NewGraph()
	retired, err := g.Execute(context.Background(), dev)
	if err != nil {
		t.Fatal(err)
	}
	b.Retire(retired)
	if b.State() != rg.TemporalInert {
		t.Errorf("State() = %v", b.State())
	}
}

func TestRegistryAddAndLookup(t *testing.T) {
	dev := software.New()
	buf, _ := NewBuffer(dev, rg.NewBufferDesc(16, 0), "buf")
	img, err := NewImage(dev, rg.NewImageDesc2D(gputypes.TextureFormatRGBA8Unorm, [2]uint32{4, 4}), "img")
	if err != nil {
		t.Fatalf("NewImage() error = %v", err)
	}

	reg := NewRegistry()
	if err := reg.Add("buf", buf); err != nil {
		t.Fatal(err)
	}
	if err := reg.Add("img", img); err != nil {
		t.Fatal(err)
	}
	if err := reg.Add("buf", img); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Add(duplicate) error = %v, want ErrDuplicateName", err)
	}
	if got := reg.Names(); fmt.Sprint(got) != "[buf img]" {
		t.Errorf("Names() = %v", got)
	}

	g := rg.NewGraph()
	f := reg.Begin(g)
	if err := reg.Add("late", buf); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("Add during frame error = %v", err)
	}
	hi, err := Lookup[rg.ImageDesc](f, "img")
	if err != nil {
		t.Fatalf("Lookup(img) error = %v", err)
	}
	if hi.Desc().Extent != [3]uint32{4, 4, 1} {
		t.Errorf("image extent = %v", hi.Desc().Extent)
	}
	if _, err := Lookup[rg.ImageDesc](f, "buf"); !errors.Is(err, rg.ErrKindMismatch) {
		t.Errorf("Lookup(wrong kind) error = %v", err)
	}
	if _, err := Lookup[rg.BufferDesc](f, "missing"); !errors.Is(err, ErrUnknownName) {
		t.Errorf("Lookup(missing) error = %v", err)
	}
	if err := reg.Close(); !errors.Is(err, ErrInUse) {
		t.Errorf("Close() during frame error = %v, want ErrInUse", err)
	}

	reg.End(g, f)
	retired, err := g.Execute(context.Background(), dev)
	if err != nil {
		t.Fatal(err)
	}
	reg.Retire(retired)
	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if b, i := dev.LiveResources(); b != 0 || i != 0 {
		t.Errorf("LiveResources() = %d, %d", b, i)
	}
}

type failingAllocator struct{ software.Device }

func (*failingAllocator) CreateBuffer(rg.BufferDesc, string) (*rg.Buffer, error) {
	return nil, errors.New("out of memory")
}

func TestCreateResourceError(t *testing.T) {
	_, err := NewBuffer(&failingAllocator{}, rg.NewBufferDesc(4, 0), "b")
	if !errors.Is(err, ErrCreateResource) {
		t.Fatalf("NewBuffer() error = %v, want ErrCreateResource", err)
	}
	_, err = NewImage(software.New(), rg.NewImageDesc2D(gputypes.TextureFormatUndefined, [2]uint32{1, 1}), "i")
	if !errors.Is(err, ErrCreateResource) || !errors.Is(err, software.ErrUnsupportedFormat) {
		t.Errorf("NewImage() error = %v, want ErrCreateResource wrapping the device error", err)
	}
}
