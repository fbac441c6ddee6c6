// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// texelSize returns the bytes one texel of format occupies in image storage.
func texelSize(format gputypes.TextureFormat) (uint64, error) {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1, nil
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatR32Float, gputypes.TextureFormatDepth32Float:
		return 4, nil
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatDepth24PlusStencil8:
		return 8, nil
	case gputypes.TextureFormatRGBA32Float:
		return 16, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
}

// encodeTexel returns the storage encoding of v in format. Depth formats
// store depth as float32; Depth24PlusStencil8 follows it with the stencil
// byte.
func encodeTexel(format gputypes.TextureFormat, v f32.Vec4, stencil uint8) ([]byte, error) {
	size, err := texelSize(format)
	if err != nil {
		return nil, err
	}
	p := make([]byte, size)
	switch format {
	case gputypes.TextureFormatR8Unorm:
		p[0] = unorm8(v[0])
	case gputypes.TextureFormatRGBA8Unorm:
		p[0], p[1], p[2], p[3] = unorm8(v[0]), unorm8(v[1]), unorm8(v[2]), unorm8(v[3])
	case gputypes.TextureFormatBGRA8Unorm:
		p[0], p[1], p[2], p[3] = unorm8(v[2]), unorm8(v[1]), unorm8(v[0]), unorm8(v[3])
	case gputypes.TextureFormatDepth24PlusStencil8:
		binary.LittleEndian.PutUint32(p, math.Float32bits(v[0]))
		p[4] = stencil
	default:
		for i := 0; i*4 < len(p); i++ {
			binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v[i]))
		}
	}
	return p, nil
}

func unorm8(v float32) uint8 {
	v = min(max(v, 0), 1)
	return uint8(v*255 + 0.5)
}

// alignSize rounds n up to the 4-byte granularity of storage buffers.
func alignSize(n uint64) uint64 {
	const minSize = 4
	n = (n + 3) &^ 3
	return max(n, minSize)
}
