// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command fgdemo renders a few frames through the pass recipes and saves the
// last one as a PNG. A temporal frame counter is carried across the frames.
//
// On the software backend the blur, normalize and counter kernels are built
// in. The native backend expects blur.wgsl, normalize_accum.wgsl and
// fgdemo/count_frames.wgsl under <shader_root>/assets/shaders.
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/native"
	"github.com/gogpu/framegraph/backend/software"
	"github.com/gogpu/framegraph/compose"
	"github.com/gogpu/framegraph/config"
	"github.com/gogpu/framegraph/passes"
	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/framegraph/temporal"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

const (
	countFramesShader = "/assets/shaders/fgdemo/count_frames.hlsl"
	frameCounter      = "frame counter"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "renderer TOML file")
		pipelines = flag.String("pipelines", "", "pipeline HCL file to validate")
		width     = flag.Int("width", 256, "image width")
		height    = flag.Int("height", 256, "image height")
		frames    = flag.Int("frames", 3, "frames to render")
		output    = flag.String("output", "fgdemo.png", "output file")
	)
	flag.Parse()

	extent, err := imageExtent(*width, *height, *frames)
	if err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	cfg := config.DefaultRenderer()
	if *cfgPath != "" {
		if cfg, err = config.LoadRenderer(*cfgPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	framegraph.SetLogger(framegraph.NewLogger(os.Stderr, cfg))

	if *pipelines != "" {
		p, err := config.LoadPipelines(*pipelines)
		if err != nil {
			log.Fatalf("Failed to load pipelines: %v", err)
		}
		framegraph.Logger().Info("pipelines loaded", "count", p.Len(), "names", p.Names())
	}

	dev, err := framegraph.OpenDevice(cfg)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	if sw, ok := dev.(*software.Device); ok {
		sw.RegisterKernel(passes.BlurShader, software.BlurKernel)
		sw.RegisterKernel(passes.NormalizeAccumShader, software.NormalizeAccumKernel)
		sw.RegisterKernel(countFramesShader, countFramesKernel)
	}
	if nd, ok := dev.(*native.Device); ok {
		defer func() { _ = nd.Close() }()
	}

	d, err := newDemo(dev)
	if err != nil {
		log.Fatalf("Failed to set up demo: %v", err)
	}
	defer func() { _ = d.Close() }()

	var img *image.NRGBA
	for frame := 1; frame <= *frames; frame++ {
		if img, err = d.render(extent, frame); err != nil {
			log.Fatalf("Frame %d: %v", frame, err)
		}
	}
	counted, err := d.frameCount()
	if err != nil {
		log.Fatalf("Failed to read frame counter: %v", err)
	}

	if err := savePNG(*output, img); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Demo saved to %s (%dx%d, %s backend, %d frames counted)\n", *output, *width, *height, dev.Name(), counted)
}

// imageExtent validates the size flags.
func imageExtent(width, height, frames int) ([2]uint32, error) {
	var errs []error
	if width <= 0 || height <= 0 {
		errs = append(errs, fmt.Errorf("image size %dx%d must be positive", width, height))
	}
	if frames <= 0 {
		errs = append(errs, fmt.Errorf("frame count %d must be positive", frames))
	}
	if err := errors.Join(errs...); err != nil {
		return [2]uint32{}, err
	}
	return [2]uint32{uint32(width), uint32(height)}, nil
}

// demo owns the state that outlives a single frame graph.
type demo struct {
	dev     rg.Device
	cache   *rg.PipelineCache
	history *temporal.Registry
	counter *temporal.Temporal[rg.BufferDesc]
}

func newDemo(dev rg.Device) (*demo, error) {
	counter, err := temporal.NewBuffer(dev, rg.NewBufferDesc(4, gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc), frameCounter)
	if err != nil {
		return nil, err
	}
	history := temporal.NewRegistry()
	if err := history.Add(frameCounter, counter); err != nil {
		_ = counter.Close()
		return nil, err
	}
	return &demo{dev: dev, cache: rg.NewPipelineCache(), history: history, counter: counter}, nil
}

// Close destroys the temporal resources and cached pipelines.
func (d *demo) Close() error {
	d.cache.DestroyAll()
	return d.history.Close()
}

// render records one frame: an accumulation image cleared to a frame
// dependent color, blurred and normalized to RGBA8. The frame also bumps the
// temporal frame counter.
func (d *demo) render(extent [2]uint32, frame int) (*image.NRGBA, error) {
	g := rg.NewGraph(rg.WithPipelineCache(d.cache), rg.WithLabel(fmt.Sprintf("frame %d", frame)))
	f := d.history.Begin(g)
	countFrame(g, temporal.MustLookup[rg.BufferDesc](f, frameCounter))

	accum := passes.CreateImage(g, rg.NewImageDesc2D(gputypes.TextureFormatRGBA32Float, extent))
	w := float32(frame)
	passes.ClearColor(g, &accum, f32.Vec4{0.8 * w, 0.4 * w, 0.2 * w, w})
	out := passes.NormalizeAccum(g, passes.Blur(g, accum), gputypes.TextureFormatRGBA8Unorm)
	exported := rg.Export(g, out, rg.AccessNothing)
	d.history.End(g, f)

	retired, err := g.Execute(context.Background(), d.dev)
	d.history.Retire(retired)
	defer retired.Release()
	if err != nil {
		return nil, err
	}
	res, _ := rg.ExportedResource(retired, exported)
	return readImage(d.dev, res.(*rg.Image))
}

// countFrame increments the little-endian uint32 in counter.
func countFrame(g *rg.Graph, counter *rg.Handle[rg.BufferDesc]) {
	p := g.AddPass("count frame")
	_ = compose.New(p, countFramesShader).
		Write(counter).
		Dispatch([3]uint32{1, 1, 1})
}

func countFramesKernel(inv *software.Invocation) error {
	b, err := inv.Buffer(0)
	if err != nil {
		return err
	}
	if len(b) < 4 {
		return fmt.Errorf("%w: counter of %d bytes", software.ErrOutOfRange, len(b))
	}
	binary.LittleEndian.PutUint32(b, binary.LittleEndian.Uint32(b)+1)
	return nil
}

// frameCount reads the frame counter back from the device.
func (d *demo) frameCount() (uint32, error) {
	var (
		data []byte
		err  error
	)
	switch dev := d.dev.(type) {
	case *software.Device:
		data, err = software.ReadBuffer(d.counter.Resource().(*rg.Buffer))
	case *native.Device:
		data, err = dev.Read(d.counter.Resource())
	default:
		return 0, fmt.Errorf("no readback for %s backend", d.dev.Name())
	}
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// readImage copies an RGBA8 image back to host memory.
func readImage(dev rg.Device, res *rg.Image) (*image.NRGBA, error) {
	w, h := int(res.Desc.Extent[0]), int(res.Desc.Extent[1])
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	switch d := dev.(type) {
	case *software.Device:
		view, err := software.View(res)
		if err != nil {
			return nil, err
		}
		for y := range h {
			for x := range w {
				c := view.At(x, y, 0)
				i := img.PixOffset(x, y)
				for k := range 4 {
					img.Pix[i+k] = uint8(min(max(c[k], 0), 1)*255 + 0.5)
				}
			}
		}
	case *native.Device:
		data, err := d.Read(res)
		if err != nil {
			return nil, err
		}
		copy(img.Pix, data)
	default:
		return nil, fmt.Errorf("no readback for %s backend", dev.Name())
	}
	return img, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
