// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gogpu/framegraph/backend/software"
	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

func newSoftwareDevice() *software.Device {
	return software.New(
		software.WithKernel(BlurShader, software.BlurKernel),
		software.WithKernel(NormalizeAccumShader, software.NormalizeAccumKernel),
	)
}

// accumulate clears an accumulation image, blurs it and normalizes the
// result, returning the final texels.
func accumulate(t *testing.T, dev *software.Device, accum f32.Vec4) []byte {
	t.Helper()
	g := rg.NewGraph()
	img := CreateImage(g, rg.NewImageDesc2D(gputypes.TextureFormatRGBA32Float, [2]uint32{8, 4}))
	ClearColor(g, &img, accum)
	blurred := Blur(g, img)
	out := NormalizeAccum(g, blurred, gputypes.TextureFormatRGBA8Unorm)
	exported := rg.Export(g, out, rg.AccessNothing)

	retired, err := g.Execute(context.Background(), dev)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	defer retired.Release()
	res, _ := rg.ExportedResource(retired, exported)
	view, err := software.View(res.(*rg.Image))
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if got := view.At(3, 2, 0); !closeTo(got, f32.Vec4{0.5, 1, 0, 1}) {
		t.Errorf("normalized texel = %v", got)
	}
	var buf bytes.Buffer
	for y := range view.Height() {
		for x := range view.Width() {
			for _, c := range view.At(x, y, 0) {
				buf.WriteByte(byte(c * 255))
			}
		}
	}
	return buf.Bytes()
}

func closeTo(a, b f32.Vec4) bool {
	for i := range a {
		if d := a[i] - b[i]; d > 1.0/255 || d < -1.0/255 {
			return false
		}
	}
	return true
}

func TestRecipesOnSoftwareDevice(t *testing.T) {
	dev := newSoftwareDevice()
	first := accumulate(t, dev, f32.Vec4{2, 4, 0, 4})
	second := accumulate(t, newSoftwareDevice(), f32.Vec4{2, 4, 0, 4})
	if !bytes.Equal(first, second) {
		t.Error("identical inputs produced different outputs")
	}
	if b, i := dev.LiveResources(); b != 0 || i != 0 {
		t.Errorf("LiveResources() = %d, %d after Release", b, i)
	}
}

func TestRecipeWithoutKernelFailsExecute(t *testing.T) {
	g := rg.NewGraph()
	img := CreateImage(g, rg.NewImageDesc2D(gputypes.TextureFormatRGBA8Unorm, [2]uint32{2, 2}))
	ClearColor(g, &img, f32.Vec4{})
	out := Blur(g, img)
	LightGbuffer(g, img, img, img, &out, 0)

	_, err := g.Execute(context.Background(), newSoftwareDevice())
	if !errors.Is(err, software.ErrNoKernel) {
		t.Fatalf("Execute() error = %v, want ErrNoKernel for the light_gbuffer shader", err)
	}
}
