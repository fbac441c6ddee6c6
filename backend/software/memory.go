// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// bufferMemory backs an rg.Buffer created by the software device.
type bufferMemory struct {
	data []byte
}

// imageMemory backs an rg.Image created by the software device.
// Only mip level 0 is stored.
type imageMemory struct {
	desc  rg.ImageDesc
	codec texelCodec
	data  []byte
}

// texelCodec converts one texel between its byte encoding and f32.Vec4.
type texelCodec struct {
	size   int
	decode func(b []byte) f32.Vec4
	encode func(b []byte, v f32.Vec4)
}

func codecFor(format gputypes.TextureFormat) (texelCodec, error) {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm:
		return texelCodec{4, decodeUnorm8(0, 1, 2, 3), encodeUnorm8(0, 1, 2, 3)}, nil
	case gputypes.TextureFormatBGRA8Unorm:
		return texelCodec{4, decodeUnorm8(2, 1, 0, 3), encodeUnorm8(2, 1, 0, 3)}, nil
	case gputypes.TextureFormatR8Unorm:
		return texelCodec{1, decodeR8, encodeR8}, nil
	case gputypes.TextureFormatR32Float, gputypes.TextureFormatDepth32Float:
		return texelCodec{4, decodeFloats(1), encodeFloats(1)}, nil
	case gputypes.TextureFormatRG32Float:
		return texelCodec{8, decodeFloats(2), encodeFloats(2)}, nil
	case gputypes.TextureFormatRGBA32Float:
		return texelCodec{16, decodeFloats(4), encodeFloats(4)}, nil
	case gputypes.TextureFormatDepth24PlusStencil8:
		// Depth as float32 followed by the stencil byte and padding.
		return texelCodec{8, decodeFloats(1), encodeFloats(1)}, nil
	default:
		return texelCodec{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
}

func decodeUnorm8(r, g, b, a int) func([]byte) f32.Vec4 {
	return func(p []byte) f32.Vec4 {
		return f32.Vec4{float32(p[r]) / 255, float32(p[g]) / 255, float32(p[b]) / 255, float32(p[a]) / 255}
	}
}

func encodeUnorm8(r, g, b, a int) func([]byte, f32.Vec4) {
	return func(p []byte, v f32.Vec4) {
		p[r], p[g], p[b], p[a] = unorm8(v[0]), unorm8(v[1]), unorm8(v[2]), unorm8(v[3])
	}
}

func decodeR8(p []byte) f32.Vec4 { return f32.Vec4{float32(p[0]) / 255, 0, 0, 1} }

func encodeR8(p []byte, v f32.Vec4) { p[0] = unorm8(v[0]) }

func unorm8(v float32) uint8 {
	v = min(max(v, 0), 1)
	return uint8(v*255 + 0.5)
}

func decodeFloats(n int) func([]byte) f32.Vec4 {
	return func(p []byte) f32.Vec4 {
		v := f32.Vec4{0, 0, 0, 1}
		for i := range n {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		}
		return v
	}
}

func encodeFloats(n int) func([]byte, f32.Vec4) {
	return func(p []byte, v f32.Vec4) {
		for i := range n {
			binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v[i]))
		}
	}
}

func newImageMemory(desc rg.ImageDesc) (*imageMemory, error) {
	codec, err := codecFor(desc.Format)
	if err != nil {
		return nil, err
	}
	layers := uint64(max(desc.ArrayElements, 1))
	return &imageMemory{
		desc:  desc,
		codec: codec,
		data:  make([]byte, desc.TexelCount()*layers*uint64(codec.size)),
	}, nil
}

// ImageView gives a kernel texel access to one image.
type ImageView struct {
	mem *imageMemory
}

// Desc returns the image description.
func (v ImageView) Desc() rg.ImageDesc { return v.mem.desc }

// Width returns the image width.
func (v ImageView) Width() int { return int(v.mem.desc.Extent[0]) }

// Height returns the image height.
func (v ImageView) Height() int { return int(v.mem.desc.Extent[1]) }

// Depth returns the image depth, 1 for 2D images.
func (v ImageView) Depth() int { return int(max(v.mem.desc.Extent[2], 1)) }

// offset returns the byte offset of texel (x, y, z) with coordinates clamped
// to the image bounds, matching clamp-to-edge sampling.
func (v ImageView) offset(x, y, z int) int {
	x = min(max(x, 0), v.Width()-1)
	y = min(max(y, 0), v.Height()-1)
	z = min(max(z, 0), v.Depth()-1)
	return ((z*v.Height()+y)*v.Width() + x) * v.mem.codec.size
}

// At returns texel (x, y, z). Out-of-range coordinates are clamped.
func (v ImageView) At(x, y, z int) f32.Vec4 {
	off := v.offset(x, y, z)
	return v.mem.codec.decode(v.mem.data[off : off+v.mem.codec.size])
}

// Set stores texel (x, y, z). Out-of-range coordinates are clamped.
func (v ImageView) Set(x, y, z int, c f32.Vec4) {
	off := v.offset(x, y, z)
	v.mem.codec.encode(v.mem.data[off:off+v.mem.codec.size], c)
}

// Fill stores c into every texel.
func (v ImageView) Fill(c f32.Vec4) {
	size := v.mem.codec.size
	if len(v.mem.data) == 0 {
		return
	}
	v.mem.codec.encode(v.mem.data[:size], c)
	for off := size; off < len(v.mem.data); off *= 2 {
		copy(v.mem.data[off:], v.mem.data[:off])
	}
}

// fillStencil writes the stencil byte of every depth-stencil texel.
func (v ImageView) fillStencil(s uint8) {
	if v.mem.desc.Format != gputypes.TextureFormatDepth24PlusStencil8 {
		return
	}
	for off := 4; off < len(v.mem.data); off += v.mem.codec.size {
		v.mem.data[off] = s
	}
}
