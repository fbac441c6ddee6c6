// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"github.com/gogpu/framegraph/compose"
	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gputypes"
)

// Blur returns a blurred copy of input with the same description.
func Blur(g *rg.Graph, input rg.Handle[rg.ImageDesc]) rg.Handle[rg.ImageDesc] {
	p := g.AddPass("blur")
	output := rg.Create(p, input.Desc())
	// Binding errors are kept on the pass and returned by Execute.
	_ = compose.New(p, BlurShader).
		Read(input).
		Write(&output).
		Dispatch(input.Desc().Extent)
	return output
}

// NormalizeAccum divides an accumulation image by its sample count and
// returns the result in format. The output has the extent of input.
func NormalizeAccum(g *rg.Graph, input rg.Handle[rg.ImageDesc], format gputypes.TextureFormat) rg.Handle[rg.ImageDesc] {
	p := g.AddPass("normalize accum")
	output := rg.Create(p, input.Desc().WithFormat(format))
	_ = compose.New(p, NormalizeAccumShader).
		Read(input).
		Write(&output).
		Dispatch(input.Desc().Extent)
	return output
}

// LightGbuffer shades gbuffer into output, which is read and written in
// place. depth is bound through its depth aspect only; materials come from
// the bindless set, bound at set 1.
func LightGbuffer(
	g *rg.Graph,
	gbuffer rg.Handle[rg.ImageDesc],
	depth rg.Handle[rg.ImageDesc],
	sunShadowMask rg.Handle[rg.ImageDesc],
	output *rg.Handle[rg.ImageDesc],
	bindless rg.RawDescriptorSet,
) {
	p := g.AddPass("light gbuffer")
	_ = compose.New(p, LightGbufferShader).
		Read(gbuffer).
		ReadAspect(depth, rg.AspectDepth).
		Read(sunShadowMask).
		WriteWith(output, rg.AccessGeneral).
		RawDescriptorSet(1, bindless).
		Dispatch(gbuffer.Desc().Extent)
}
