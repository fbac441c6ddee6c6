// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/framegraph/rg"
	"golang.org/x/image/math/f32"
)

// CreateImage declares a new transient image in its own pass.
func CreateImage(g *rg.Graph, desc rg.ImageDesc) rg.Handle[rg.ImageDesc] {
	p := g.AddPass("create image")
	return rg.Create(p, desc)
}

// ClearColor fills the color plane of img with color.
func ClearColor(g *rg.Graph, img *rg.Handle[rg.ImageDesc], color f32.Vec4) {
	p := g.AddPass("clear color")
	out := rg.Write(p, img, rg.AccessTransferWrite)
	p.Record(rg.ClearColor{
		Image: rg.BindImageView(out, rg.ImageViewDesc{Aspect: rg.AspectColor, LevelCount: 1}),
		Value: color,
	})
}

// ClearDepth resets the depth and stencil planes of img to zero, the far
// plane of a reverse-Z depth buffer.
func ClearDepth(g *rg.Graph, img *rg.Handle[rg.ImageDesc]) {
	p := g.AddPass("clear depth")
	out := rg.Write(p, img, rg.AccessTransferWrite)
	p.Record(rg.ClearDepthStencil{
		Image: rg.BindImageView(out, rg.ImageViewDesc{Aspect: rg.AspectDepth | rg.AspectStencil, LevelCount: 1}),
	})
}
