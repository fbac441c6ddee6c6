// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"

	"golang.org/x/image/math/f32"
)

// BlurKernel is a 3x3 box blur reading binding 0 and writing binding 1.
// Edge texels are clamped.
func BlurKernel(inv *Invocation) error {
	src, dst, err := srcDst(inv)
	if err != nil {
		return err
	}
	z := int(inv.Z)
	for y := range int(inv.Extent[1]) {
		for x := range int(inv.Extent[0]) {
			var sum f32.Vec4
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					t := src.At(x+dx, y+dy, z)
					for i := range sum {
						sum[i] += t[i]
					}
				}
			}
			for i := range sum {
				sum[i] /= 9
			}
			dst.Set(x, y, z, sum)
		}
	}
	return nil
}

// NormalizeAccumKernel divides the color of an accumulation image (binding 0)
// by its sample count stored in alpha, writing binding 1 with alpha 1.
// Texels with no samples are written as transparent black.
func NormalizeAccumKernel(inv *Invocation) error {
	src, dst, err := srcDst(inv)
	if err != nil {
		return err
	}
	z := int(inv.Z)
	for y := range int(inv.Extent[1]) {
		for x := range int(inv.Extent[0]) {
			t := src.At(x, y, z)
			if t[3] <= 0 {
				dst.Set(x, y, z, f32.Vec4{})
				continue
			}
			dst.Set(x, y, z, f32.Vec4{t[0] / t[3], t[1] / t[3], t[2] / t[3], 1})
		}
	}
	return nil
}

func srcDst(inv *Invocation) (src, dst ImageView, err error) {
	if inv.NumBindings() < 2 {
		return src, dst, fmt.Errorf("%w: need input and output images, got %d bindings", ErrOutOfRange, inv.NumBindings())
	}
	if src, err = inv.Image(0); err != nil {
		return src, dst, err
	}
	if dst, err = inv.Image(1); err != nil {
		return src, dst, err
	}
	return src, dst, nil
}
