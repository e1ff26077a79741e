// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "github.com/gogpu/gputypes"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each Device implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are compared by value, so a recycled backend handle never aliases
// a stale cache entry.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// SamplerID is an opaque handle to a texture sampler.
type SamplerID uint64

// DescriptorSetLayoutID is an opaque handle to a descriptor set layout.
type DescriptorSetLayoutID uint64

// DescriptorSetID is an opaque handle to a descriptor set.
type DescriptorSetID uint64

// InputAssemblerID is an opaque handle to an input assembler: a vertex
// buffer, an index buffer and the attribute layout reading them.
type InputAssemblerID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BindingType specifies the type of a descriptor binding.
type BindingType uint32

// Binding types.
const (
	// BindingTypeUniformBuffer is a uniform buffer binding.
	BindingTypeUniformBuffer BindingType = iota

	// BindingTypeTexture is a sampled 2D texture binding.
	BindingTypeTexture

	// BindingTypeSampler is a filtering sampler binding.
	BindingTypeSampler
)

// BufferDesc describes a GPU buffer.
type BufferDesc struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Label  string
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// SamplerDesc describes a texture sampler.
type SamplerDesc struct {
	Label       string
	MagFilter   gputypes.FilterMode
	MinFilter   gputypes.FilterMode
	AddressMode gputypes.AddressMode
}

// LayoutEntry describes a single binding in a descriptor set layout.
type LayoutEntry struct {
	Binding uint32
	Type    BindingType
}

// DescriptorSetLayoutDesc describes a descriptor set layout.
type DescriptorSetLayoutDesc struct {
	Label   string
	Entries []LayoutEntry
}

// Attribute is a named vertex attribute.
type Attribute struct {
	Name   string
	Format gputypes.VertexFormat
}

// Stride returns the byte size of one vertex laid out with attrs.
func Stride(attrs []Attribute) uint32 {
	var size uint64
	for _, a := range attrs {
		size += a.Format.Size()
	}
	// #nosec G115 -- vertex layouts are a handful of attributes
	return uint32(size)
}

// InputAssemblerDesc describes an input assembler.
type InputAssemblerDesc struct {
	Attributes   []Attribute
	VertexBuffer BufferID
	IndexBuffer  BufferID
	IndexFormat  gputypes.IndexFormat
	Topology     gputypes.PrimitiveTopology
}
