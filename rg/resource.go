// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// ResourceKind identifies the kind of GPU resource behind a handle or binding.
type ResourceKind uint8

const (
	// KindBuffer is a linear GPU buffer.
	KindBuffer ResourceKind = iota + 1

	// KindImage is a 1D/2D/3D GPU image.
	KindImage

	// KindRayTracingAcceleration is a top-level acceleration structure (TLAS).
	KindRayTracingAcceleration
)

// String returns the string representation of ResourceKind.
func (k ResourceKind) String() string {
	switch k {
	case KindBuffer:
		return "Buffer"
	case KindImage:
		return "Image"
	case KindRayTracingAcceleration:
		return "RayTracingAcceleration"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// BufferDesc describes a GPU buffer.
type BufferDesc struct {
	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage gputypes.BufferUsage
}

// NewBufferDesc returns a BufferDesc of size bytes with the given usage.
func NewBufferDesc(size uint64, usage gputypes.BufferUsage) BufferDesc {
	return BufferDesc{Size: size, Usage: usage}
}

// ImageType is the dimensionality of an image.
type ImageType uint8

const (
	// Image1D is a one-dimensional image.
	Image1D ImageType = iota + 1

	// Image2D is a two-dimensional image.
	Image2D

	// Image3D is a volume image.
	Image3D
)

// String returns the string representation of ImageType.
func (t ImageType) String() string {
	switch t {
	case Image1D:
		return "1D"
	case Image2D:
		return "2D"
	case Image3D:
		return "3D"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// ImageDesc describes a GPU image.
//
// The With* methods return modified copies, which is how derived outputs are
// described: an output of "same extent, different format" is
// input.Desc().WithFormat(f).
type ImageDesc struct {
	Type          ImageType
	Format        gputypes.TextureFormat
	Extent        [3]uint32
	Usage         gputypes.TextureUsage
	MipLevels     uint16
	ArrayElements uint32
}

// NewImageDesc2D returns a single-mip 2D image description.
func NewImageDesc2D(format gputypes.TextureFormat, extent [2]uint32) ImageDesc {
	return ImageDesc{
		Type:          Image2D,
		Format:        format,
		Extent:        [3]uint32{extent[0], extent[1], 1},
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding,
		MipLevels:     1,
		ArrayElements: 1,
	}
}

// NewImageDesc3D returns a single-mip volume image description.
func NewImageDesc3D(format gputypes.TextureFormat, extent [3]uint32) ImageDesc {
	return ImageDesc{
		Type:          Image3D,
		Format:        format,
		Extent:        extent,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding,
		MipLevels:     1,
		ArrayElements: 1,
	}
}

// WithFormat returns a copy of d with a different pixel format.
func (d ImageDesc) WithFormat(format gputypes.TextureFormat) ImageDesc {
	d.Format = format
	return d
}

// WithExtent returns a copy of d with a different extent.
func (d ImageDesc) WithExtent(extent [3]uint32) ImageDesc {
	d.Extent = extent
	return d
}

// WithUsage returns a copy of d with different usage flags.
func (d ImageDesc) WithUsage(usage gputypes.TextureUsage) ImageDesc {
	d.Usage = usage
	return d
}

// WithMipLevels returns a copy of d with a different mip count.
func (d ImageDesc) WithMipLevels(levels uint16) ImageDesc {
	d.MipLevels = levels
	return d
}

// Extent2D returns the width and height of the image.
func (d ImageDesc) Extent2D() [2]uint32 {
	return [2]uint32{d.Extent[0], d.Extent[1]}
}

// TexelCount returns the number of texels in the top mip level.
func (d ImageDesc) TexelCount() uint64 {
	return uint64(d.Extent[0]) * uint64(d.Extent[1]) * uint64(max(d.Extent[2], 1))
}

// RayTracingAccelerationDesc describes a top-level acceleration structure.
type RayTracingAccelerationDesc struct {
	// MaxInstances is the instance capacity of the structure.
	MaxInstances uint32
}

// Desc is the set of resource descriptions a Handle can carry.
type Desc interface {
	BufferDesc | ImageDesc | RayTracingAccelerationDesc
}

// kindOf returns the ResourceKind described by D.
func kindOf[D Desc]() ResourceKind {
	var d D
	switch any(d).(type) {
	case BufferDesc:
		return KindBuffer
	case ImageDesc:
		return KindImage
	default:
		return KindRayTracingAcceleration
	}
}

// Resource is a device-owned GPU object that the graph can import.
// Backends populate Native with their own representation.
type Resource interface {
	Kind() ResourceKind
	ResourceLabel() string
}

// Buffer is a device-owned GPU buffer.
type Buffer struct {
	Desc   BufferDesc
	Label  string
	Native any
}

// Kind implements Resource.
func (b *Buffer) Kind() ResourceKind { return KindBuffer }

// ResourceLabel implements Resource.
func (b *Buffer) ResourceLabel() string { return b.Label }

// Image is a device-owned GPU image.
type Image struct {
	Desc   ImageDesc
	Label  string
	Native any
}

// Kind implements Resource.
func (img *Image) Kind() ResourceKind { return KindImage }

// ResourceLabel implements Resource.
func (img *Image) ResourceLabel() string { return img.Label }

// RayTracingAcceleration is a device-owned acceleration structure.
type RayTracingAcceleration struct {
	Desc   RayTracingAccelerationDesc
	Label  string
	Native any
}

// Kind implements Resource.
func (a *RayTracingAcceleration) Kind() ResourceKind { return KindRayTracingAcceleration }

// ResourceLabel implements Resource.
func (a *RayTracingAcceleration) ResourceLabel() string { return a.Label }

// descOf extracts the description of type D from a device resource.
func descOf[D Desc](res Resource) (D, bool) {
	var desc any
	switch r := res.(type) {
	case *Buffer:
		desc = r.Desc
	case *Image:
		desc = r.Desc
	case *RayTracingAcceleration:
		desc = r.Desc
	}
	d, ok := desc.(D)
	return d, ok
}
