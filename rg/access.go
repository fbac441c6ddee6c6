// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rg

import "fmt"

// AccessType describes how a pass touches a resource. The graph engine uses it
// to order and synchronize passes; this package only records it.
type AccessType uint8

const (
	// AccessNothing means no access. Used as the initial state of fresh
	// resources and by exports that keep the last declared access.
	AccessNothing AccessType = iota

	// AccessIndirectBuffer reads indirect draw/dispatch arguments.
	AccessIndirectBuffer

	// AccessIndexBuffer reads an index buffer.
	AccessIndexBuffer

	// AccessVertexBuffer reads a vertex buffer.
	AccessVertexBuffer

	// AccessVertexShaderReadSampledImageOrUniformTexelBuffer reads from a vertex shader.
	AccessVertexShaderReadSampledImageOrUniformTexelBuffer

	// AccessFragmentShaderReadSampledImageOrUniformTexelBuffer reads from a pixel shader.
	AccessFragmentShaderReadSampledImageOrUniformTexelBuffer

	// AccessComputeShaderReadSampledImageOrUniformTexelBuffer reads from a compute shader.
	AccessComputeShaderReadSampledImageOrUniformTexelBuffer

	// AccessComputeShaderReadOther reads storage data from a compute shader.
	AccessComputeShaderReadOther

	// AccessAnyShaderReadSampledImageOrUniformTexelBuffer reads from any shader stage.
	AccessAnyShaderReadSampledImageOrUniformTexelBuffer

	// AccessAnyShaderReadOther reads other data (e.g. a TLAS) from any stage.
	AccessAnyShaderReadOther

	// AccessDepthStencilAttachmentRead reads a depth/stencil attachment.
	AccessDepthStencilAttachmentRead

	// AccessTransferRead is the source of a copy.
	AccessTransferRead

	// AccessComputeShaderWrite writes from a compute shader.
	AccessComputeShaderWrite

	// AccessAnyShaderWrite writes from any shader stage.
	AccessAnyShaderWrite

	// AccessColorAttachmentWrite writes a color attachment.
	AccessColorAttachmentWrite

	// AccessDepthStencilAttachmentWrite writes a depth/stencil attachment.
	AccessDepthStencilAttachmentWrite

	// AccessTransferWrite is the destination of a copy or clear.
	AccessTransferWrite

	// AccessGeneral is read-modify-write in place.
	AccessGeneral
)

var accessNames = [...]string{
	AccessNothing:        "Nothing",
	AccessIndirectBuffer: "IndirectBuffer",
	AccessIndexBuffer:    "IndexBuffer",
	AccessVertexBuffer:   "VertexBuffer",
	AccessVertexShaderReadSampledImageOrUniformTexelBuffer:   "VertexShaderReadSampledImageOrUniformTexelBuffer",
	AccessFragmentShaderReadSampledImageOrUniformTexelBuffer: "FragmentShaderReadSampledImageOrUniformTexelBuffer",
	AccessComputeShaderReadSampledImageOrUniformTexelBuffer:  "ComputeShaderReadSampledImageOrUniformTexelBuffer",
	AccessComputeShaderReadOther:                             "ComputeShaderReadOther",
	AccessAnyShaderReadSampledImageOrUniformTexelBuffer:      "AnyShaderReadSampledImageOrUniformTexelBuffer",
	AccessAnyShaderReadOther:                                 "AnyShaderReadOther",
	AccessDepthStencilAttachmentRead:                         "DepthStencilAttachmentRead",
	AccessTransferRead:                                       "TransferRead",
	AccessComputeShaderWrite:                                 "ComputeShaderWrite",
	AccessAnyShaderWrite:                                     "AnyShaderWrite",
	AccessColorAttachmentWrite:                               "ColorAttachmentWrite",
	AccessDepthStencilAttachmentWrite:                        "DepthStencilAttachmentWrite",
	AccessTransferWrite:                                      "TransferWrite",
	AccessGeneral:                                            "General",
}

// String returns the string representation of AccessType.
func (a AccessType) String() string {
	if int(a) < len(accessNames) {
		return accessNames[a]
	}
	return fmt.Sprintf("Unknown(%d)", int(a))
}

// IsWrite reports whether the access may modify the resource.
func (a AccessType) IsWrite() bool {
	switch a {
	case AccessComputeShaderWrite, AccessAnyShaderWrite, AccessColorAttachmentWrite,
		AccessDepthStencilAttachmentWrite, AccessTransferWrite, AccessGeneral:
		return true
	default:
		return false
	}
}

// IsRead reports whether the access is a pure read.
func (a AccessType) IsRead() bool {
	return a != AccessNothing && !a.IsWrite()
}

// IsAttachment reports whether the access binds the image as a render target.
func (a AccessType) IsAttachment() bool {
	switch a {
	case AccessColorAttachmentWrite, AccessDepthStencilAttachmentWrite, AccessDepthStencilAttachmentRead:
		return true
	default:
		return false
	}
}
