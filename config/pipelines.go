// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"fmt"
	"slices"

	"github.com/gogpu/framegraph/rg"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Pipelines is a decoded pipeline manifest.
type Pipelines struct {
	names []string
	descs map[string]rg.ComputePipelineDesc
}

// Names returns the pipeline names in declaration order.
func (p *Pipelines) Names() []string { return slices.Clone(p.names) }

// Len returns the number of pipelines.
func (p *Pipelines) Len() int { return len(p.names) }

// Get returns the named pipeline. The layout is shared; do not modify it.
func (p *Pipelines) Get(name string) (rg.ComputePipelineDesc, bool) {
	d, ok := p.descs[name]
	return d, ok
}

// hclPipelinesFile represents the top-level structure of a manifest.
type hclPipelinesFile struct {
	Pipelines []*hclPipeline `hcl:"pipeline,block"`
}

type hclPipeline struct {
	Name       string     `hcl:"name,label"`
	Shader     string     `hcl:"shader"`
	EntryPoint string     `hcl:"entry_point,optional"`
	Slots      []*hclSlot `hcl:"slot,block"`
}

type hclSlot struct {
	Name  string `hcl:"name,label"`
	Kind  string `hcl:"kind"`
	Write bool   `hcl:"write,optional"`
}

var slotKinds = map[string]rg.ResourceKind{
	"buffer":       rg.KindBuffer,
	"image":        rg.KindImage,
	"acceleration": rg.KindRayTracingAcceleration,
}

// LoadPipelines reads an HCL pipeline manifest from path.
func LoadPipelines(path string) (*Pipelines, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse pipelines %s: %w", path, diags)
	}
	return decodePipelines(file, path)
}

// ParsePipelines parses an HCL pipeline manifest. filename is used in
// diagnostics only.
func ParsePipelines(src []byte, filename string) (*Pipelines, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse pipelines %s: %w", filename, diags)
	}
	return decodePipelines(file, filename)
}

func decodePipelines(file *hcl.File, filename string) (*Pipelines, error) {
	var parsed hclPipelinesFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("config: decode pipelines %s: %w", filename, diags)
	}

	p := &Pipelines{descs: make(map[string]rg.ComputePipelineDesc, len(parsed.Pipelines))}
	for _, hp := range parsed.Pipelines {
		if _, dup := p.descs[hp.Name]; dup {
			return nil, fmt.Errorf("%w: %s: pipeline %q declared twice", ErrInvalid, filename, hp.Name)
		}
		desc, err := hp.desc()
		if err != nil {
			return nil, fmt.Errorf("%s: pipeline %q: %w", filename, hp.Name, err)
		}
		p.names = append(p.names, hp.Name)
		p.descs[hp.Name] = desc
	}
	return p, nil
}

func (hp *hclPipeline) desc() (rg.ComputePipelineDesc, error) {
	desc := rg.ComputePipelineDesc{Shader: hp.Shader, EntryPoint: hp.EntryPoint}
	if len(hp.Slots) > 0 {
		layout := &rg.BindingLayout{Slots: make([]rg.BindingSlot, 0, len(hp.Slots))}
		for _, s := range hp.Slots {
			kind, ok := slotKinds[s.Kind]
			if !ok {
				return rg.ComputePipelineDesc{}, fmt.Errorf("%w: slot %q has kind %q", ErrInvalid, s.Name, s.Kind)
			}
			layout.Slots = append(layout.Slots, rg.BindingSlot{Name: s.Name, Kind: kind, Write: s.Write})
		}
		desc.Layout = layout
	}
	if err := desc.Validate(); err != nil {
		return rg.ComputePipelineDesc{}, err
	}
	return desc, nil
}
