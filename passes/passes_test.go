// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"fmt"
	"testing"

	"github.com/gogpu/framegraph/rg"
	"github.com/gogpu/gputypes"
)

func importImage(g *rg.Graph, label string, desc rg.ImageDesc) rg.Handle[rg.ImageDesc] {
	return rg.Import[rg.ImageDesc](g, &rg.Image{Desc: desc, Label: label}, rg.AccessNothing)
}

func importBuffer(g *rg.Graph, label string, size uint64) rg.Handle[rg.BufferDesc] {
	return rg.Import[rg.BufferDesc](g, &rg.Buffer{Desc: rg.NewBufferDesc(size, gputypes.BufferUsageStorage), Label: label}, rg.AccessNothing)
}

func importTLAS(g *rg.Graph) rg.Handle[rg.RayTracingAccelerationDesc] {
	return rg.Import[rg.RayTracingAccelerationDesc](g, &rg.RayTracingAcceleration{Label: "tlas"}, rg.AccessNothing)
}

// only returns the single command recorded by the last pass of g.
func only[C rg.Command](t *testing.T, g *rg.Graph) C {
	t.Helper()
	passes := g.Passes()
	cmds := passes[len(passes)-1].Commands()
	if len(cmds) != 1 {
		t.Fatalf("pass recorded %d commands, want 1", len(cmds))
	}
	c, ok := cmds[0].(C)
	if !ok {
		t.Fatalf("command = %T", cmds[0])
	}
	return c
}

func shaderOf(t *testing.T, g *rg.Graph, id rg.PipelineID) string {
	t.Helper()
	desc, ok := g.PipelineCache().Desc(id)
	if !ok {
		t.Fatalf("pipeline %v not registered", id)
	}
	cd, ok := desc.(*rg.ComputePipelineDesc)
	if !ok {
		t.Fatalf("pipeline %v is %T", id, desc)
	}
	return cd.Shader
}

func TestDerivedSizing(t *testing.T) {
	formats := []gputypes.TextureFormat{
		gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA32Float,
		gputypes.TextureFormatDepth24PlusStencil8,
	}
	extents := [][2]uint32{{1, 1}, {1920, 1080}, {7, 3}}

	for _, f1 := range formats {
		for _, ext := range extents {
			t.Run(fmt.Sprintf("%v/%dx%d", f1, ext[0], ext[1]), func(t *testing.T) {
				g := rg.NewGraph()
				in := importImage(g, "in", rg.NewImageDesc2D(f1, ext))
				want := [3]uint32{ext[0], ext[1], 1}

				norm := NormalizeAccum(g, in, gputypes.TextureFormatRGBA8Unorm)
				if d := norm.Desc(); d.Extent != want || d.Format != gputypes.TextureFormatRGBA8Unorm {
					t.Errorf("NormalizeAccum output = %v %v", d.Extent, d.Format)
				}
				mask := TraceSunShadowMask(g, in, importTLAS(g))
				if d := mask.Desc(); d.Extent != want || d.Format != gputypes.TextureFormatR8Unorm {
					t.Errorf("TraceSunShadowMask output = %v %v", d.Extent, d.Format)
				}
				blurred := Blur(g, in)
				if blurred.Desc() != in.Desc() {
					t.Errorf("Blur output = %+v, want %+v", blurred.Desc(), in.Desc())
				}
				if err := g.Err(); err != nil {
					t.Errorf("Err() = %v", err)
				}
			})
		}
	}
}

func TestBlurAndNormalizeCommands(t *testing.T) {
	g := rg.NewGraph()
	in := importImage(g, "in", rg.NewImageDesc2D(gputypes.TextureFormatRGBA32Float, [2]uint32{16, 8}))

	out := Blur(g, in)
	d := only[rg.Dispatch](t, g)
	if shaderOf(t, g, d.Pipeline.ID()) != BlurShader || d.Extent != [3]uint32{16, 8, 1} {
		t.Errorf("blur dispatch = %+v", d)
	}
	b := d.Bindings()
	if len(b) != 2 || b[0].Handle != in.Raw() || b[1].Handle != out.Raw() || !b[1].IsWrite() {
		t.Errorf("blur bindings = %v", b)
	}

	NormalizeAccum(g, out, gputypes.TextureFormatRGBA8Unorm)
	d = only[rg.Dispatch](t, g)
	if shaderOf(t, g, d.Pipeline.ID()) != NormalizeAccumShader {
		t.Errorf("normalize shader = %s", shaderOf(t, g, d.Pipeline.ID()))
	}
	if deps := g.Passes()[1].Dependencies(); fmt.Sprint(deps) != "[0]" {
		t.Errorf("normalize depends on %v, want the blur pass", deps)
	}
}

func TestLightGbuffer(t *testing.T) {
	g := rg.NewGraph()
	gbuffer := importImage(g, "gbuffer", rg.NewImageDesc2D(gputypes.TextureFormatRGBA32Float, [2]uint32{64, 32}))
	depth := importImage(g, "depth", rg.NewImageDesc2D(gputypes.TextureFormatDepth24PlusStencil8, [2]uint32{64, 32}))
	shadow := importImage(g, "shadow", rg.NewImageDesc2D(gputypes.TextureFormatR8Unorm, [2]uint32{64, 32}))
	output := importImage(g, "output", rg.NewImageDesc2D(gputypes.TextureFormatRGBA32Float, [2]uint32{64, 32}))
	before := output.Raw()

	LightGbuffer(g, gbuffer, depth, shadow, &output, 0xB1)

	if output.Raw().Version() != before.Version()+1 {
		t.Errorf("output version = %d, want advanced by one", output.Raw().Version())
	}
	d := only[rg.Dispatch](t, g)
	if d.Extent != [3]uint32{64, 32, 1} {
		t.Errorf("extent = %v", d.Extent)
	}
	if len(d.Sets) != 2 || d.Sets[1].Index != 1 || d.Sets[1].Raw != 0xB1 {
		t.Fatalf("sets = %+v", d.Sets)
	}
	b := d.Sets[0].Bindings
	want := []struct {
		handle rg.RawHandle
		access rg.AccessType
		aspect rg.ImageAspect
	}{
		{gbuffer.Raw(), rg.AccessComputeShaderReadSampledImageOrUniformTexelBuffer, 0},
		{depth.Raw(), rg.AccessComputeShaderReadSampledImageOrUniformTexelBuffer, rg.AspectDepth},
		{shadow.Raw(), rg.AccessComputeShaderReadSampledImageOrUniformTexelBuffer, 0},
		{output.Raw(), rg.AccessGeneral, 0},
	}
	if len(b) != len(want) {
		t.Fatalf("set 0 = %v", b)
	}
	for i, w := range want {
		if b[i].Handle != w.handle || b[i].Access != w.access || b[i].View.Aspect != w.aspect {
			t.Errorf("slot %d = %s (view %v), want %s %s %v", i, b[i], b[i].View.Aspect, w.handle, w.access, w.aspect)
		}
	}
}

func TestClearRecipes(t *testing.T) {
	g := rg.NewGraph()
	color := CreateImage(g, rg.NewImageDesc2D(gputypes.TextureFormatRGBA8Unorm, [2]uint32{4, 4}))
	depth := CreateImage(g, rg.NewImageDesc2D(gputypes.TextureFormatDepth24PlusStencil8, [2]uint32{4, 4}))

	ClearColor(g, &color, [4]float32{1, 0, 0, 1})
	cc := only[rg.ClearColor](t, g)
	if cc.Image.Handle != color.Raw() || cc.Image.Access != rg.AccessTransferWrite || cc.Value != [4]float32{1, 0, 0, 1} {
		t.Errorf("ClearColor = %+v", cc)
	}

	ClearDepth(g, &depth)
	cd := only[rg.ClearDepthStencil](t, g)
	if cd.Depth != 0 || cd.Stencil != 0 || cd.Image.View.Aspect != rg.AspectDepth|rg.AspectStencil {
		t.Errorf("ClearDepthStencil = %+v", cd)
	}
}

func TestRayTracingRecipes(t *testing.T) {
	tests := []struct {
		name   string
		raygen string
		run    func(*rg.Graph, *rg.Handle[rg.ImageDesc], rg.RawDescriptorSet, rg.Handle[rg.RayTracingAccelerationDesc])
	}{
		{"ray trace test", TriangleRayGenShader, RayTraceTest},
		{"reference path trace", ReferencePathTraceShader, ReferencePathTrace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := rg.NewGraph()
			out := importImage(g, "out", rg.NewImageDesc2D(gputypes.TextureFormatRGBA32Float, [2]uint32{32, 16}))
			tlas := importTLAS(g)
			tt.run(g, &out, 7, tlas)
			if err := g.Err(); err != nil {
				t.Fatalf("Err() = %v", err)
			}

			tr := only[rg.TraceRays](t, g)
			if tr.Extent != [3]uint32{32, 16, 1} {
				t.Errorf("extent = %v", tr.Extent)
			}
			if len(tr.Sets) != 3 ||
				tr.Sets[0].Index != 0 || tr.Sets[0].Bindings[0].Handle != out.Raw() ||
				tr.Sets[1].Index != 1 || tr.Sets[1].Raw != 7 ||
				tr.Sets[2].Index != 3 || tr.Sets[2].Bindings[0].Handle != tlas.Raw() {
				t.Errorf("sets = %+v", tr.Sets)
			}
			desc, _ := g.PipelineCache().Desc(tr.Pipeline.ID())
			rt := desc.(*rg.RayTracingPipelineDesc)
			if rt.MaxPipelineRayRecursionDepth != 2 || len(rt.Stages) != 4 || rt.Stages[0].Path != tt.raygen {
				t.Errorf("pipeline = %+v", rt)
			}
		})
	}
}

func TestRayTracingRecipesSharePipelineStages(t *testing.T) {
	g := rg.NewGraph()
	a := importImage(g, "a", rg.NewImageDesc2D(gputypes.TextureFormatRGBA32Float, [2]uint32{2, 2}))
	b := importImage(g, "b", rg.NewImageDesc2D(gputypes.TextureFormatRGBA32Float, [2]uint32{2, 2}))
	tlas := importTLAS(g)
	RayTraceTest(g, &a, 1, tlas)
	RayTraceTest(g, &b, 1, tlas)
	ReferencePathTrace(g, &a, 1, tlas)

	ids := make([]rg.PipelineID, 0, 3)
	for _, p := range g.Passes() {
		ids = append(ids, p.Commands()[0].(rg.TraceRays).Pipeline.ID())
	}
	if ids[0] != ids[1] {
		t.Error("identical ray tracing registrations did not deduplicate")
	}
	if ids[0] == ids[2] {
		t.Error("different raygen shaders share a pipeline")
	}
	if got := g.PipelineCache().Registered(); got != 2 {
		t.Errorf("Registered() = %d, want 2", got)
	}
}

func TestRasterMeshes(t *testing.T) {
	g := rg.NewGraph()
	color := importImage(g, "color", rg.NewImageDesc2D(gputypes.TextureFormatRGBA8Unorm, [2]uint32{1280, 720}))
	depth := importImage(g, "depth", rg.NewImageDesc2D(gputypes.TextureFormatDepth24PlusStencil8, [2]uint32{1280, 720}))
	rp := &rg.RenderPassDesc{
		Label: "main",
		Color: []rg.AttachmentDesc{{Format: gputypes.TextureFormatRGBA8Unorm, Load: gputypes.LoadOpClear, Store: gputypes.StoreOpStore}},
		Depth: &rg.AttachmentDesc{Format: gputypes.TextureFormatDepth24PlusStencil8, Load: gputypes.LoadOpClear, Store: gputypes.StoreOpStore},
	}
	vertices := &rg.Buffer{Desc: rg.NewBufferDesc(1<<20, gputypes.BufferUsageIndex), Label: "scene"}
	meshes := []UploadedTriMesh{{IndexBufferOffset: 0, IndexCount: 36}, {IndexBufferOffset: 144, IndexCount: 6}}

	RasterMeshes(g, rp, &depth, &color, RasterMeshesData{Meshes: meshes, VertexBuffer: vertices, Bindless: 9})
	if err := g.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	dp := only[rg.DrawPass](t, g)
	if dp.Extent != [2]uint32{1280, 720} || dp.Viewport() != [4]float32{0, 0, 1280, 720} || dp.Scissor() != [4]uint32{0, 0, 1280, 720} {
		t.Errorf("extent = %v, viewport = %v, scissor = %v", dp.Extent, dp.Viewport(), dp.Scissor())
	}
	if dp.Color[0].Access != rg.AccessColorAttachmentWrite || dp.Depth.Access != rg.AccessDepthStencilAttachmentWrite {
		t.Errorf("attachments = %s, %s", dp.Color[0], dp.Depth)
	}
	if dp.Depth.View.Aspect != rg.AspectDepth|rg.AspectStencil {
		t.Errorf("depth aspect = %v", dp.Depth.View.Aspect)
	}
	if len(dp.Sets) != 2 || len(dp.Sets[0].Bindings) != 0 || dp.Sets[1].Raw != 9 {
		t.Errorf("sets = %+v", dp.Sets)
	}
	if len(dp.Draws) != 2 {
		t.Fatalf("draws = %d", len(dp.Draws))
	}
	second := dp.Draws[1].(rg.DrawIndexed)
	if second.ExternalIndex != vertices || second.IndexOffset != 144 || second.IndexCount != 6 {
		t.Errorf("second draw = %+v", second)
	}
	desc, _ := g.PipelineCache().Desc(dp.Pipeline.ID())
	if rd := desc.(*rg.RasterPipelineDesc); !rd.FaceCull || rd.Stages[1].Path != RasterSimplePixelShader {
		t.Errorf("raster pipeline = %+v", rd)
	}
}

func TestSdfRecipes(t *testing.T) {
	const dim = 64
	g := rg.NewGraph()
	sdf := importImage(g, "sdf", rg.NewImageDesc3D(gputypes.TextureFormatR32Float, [3]uint32{dim, dim, dim}))

	EditSdf(g, &sdf, true)
	if d := only[rg.Dispatch](t, g); shaderOf(t, g, d.Pipeline.ID()) != GenEmptySdfShader || d.Extent != [3]uint32{dim, dim, dim} {
		t.Errorf("clear edit = %s %v", shaderOf(t, g, d.Pipeline.ID()), d.Extent)
	}
	EditSdf(g, &sdf, false)
	if d := only[rg.Dispatch](t, g); shaderOf(t, g, d.Pipeline.ID()) != EditSdfShader {
		t.Errorf("edit shader = %s", shaderOf(t, g, d.Pipeline.ID()))
	}

	bricks := CalculateSdfBricksMeta(g, sdf)
	if got := bricks.BrickMetaBuffer.Desc().Size; got != 20 {
		t.Errorf("brick meta size = %d, want one indexed indirect record", got)
	}
	if got := bricks.BrickInstBuffer.Desc().Size; got != dim*dim*dim*16 {
		t.Errorf("brick inst size = %d", got)
	}
	if d := only[rg.Dispatch](t, g); d.Extent != [3]uint32{dim / 2, dim / 2, dim / 2} {
		t.Errorf("find bricks extent = %v", d.Extent)
	}

	gbufferDesc := rg.NewImageDesc2D(gputypes.TextureFormatRGBA32Float, [2]uint32{320, 240})
	gbuffer := RaymarchSdf(g, sdf, gbufferDesc)
	if gbuffer.Desc() != gbufferDesc {
		t.Errorf("raymarch output = %+v", gbuffer.Desc())
	}
	rm := only[rg.Dispatch](t, g)
	if b := rm.Bindings(); b[0].Handle != gbuffer.Raw() || b[1].Handle != sdf.Raw() {
		t.Errorf("raymarch bindings = %v, want output then sdf", b)
	}

	color := importImage(g, "color", rg.NewImageDesc2D(gputypes.TextureFormatRGBA8Unorm, [2]uint32{320, 240}))
	depth := importImage(g, "depth", rg.NewImageDesc2D(gputypes.TextureFormatDepth24PlusStencil8, [2]uint32{320, 240}))
	cube := importBuffer(g, "cube indices", 36*4)
	RasterSdf(g, &rg.RenderPassDesc{}, &depth, &color, RasterSdfData{
		Sdf:             sdf,
		BrickInstBuffer: bricks.BrickInstBuffer,
		BrickMetaBuffer: bricks.BrickMetaBuffer,
		CubeIndexBuffer: cube,
	})
	dp := only[rg.DrawPass](t, g)
	ind, ok := dp.Draws[0].(rg.DrawIndexedIndirect)
	if !ok || ind.Args.Access != rg.AccessIndirectBuffer || ind.IndexBuffer.Access != rg.AccessIndexBuffer || ind.Stride != 20 || ind.DrawCount != 1 {
		t.Errorf("indirect draw = %+v", dp.Draws[0])
	}
	if err := g.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}

	passes := g.Passes()
	raster := passes[len(passes)-1]
	findBricks := passes[len(passes)-3]
	found := false
	for _, dep := range raster.Dependencies() {
		found = found || dep == findBricks.Index()
	}
	if !found {
		t.Errorf("raster sdf depends on %v, want pass %d", raster.Dependencies(), findBricks.Index())
	}
}
