// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

// Device abstracts GPU resource creation for the batcher.
//
// Implementations translate these calls to specific backend APIs.
// The batcher only creates, binds and uploads resources; it never
// records or submits commands.
//
// Thread Safety: implementations should be safe for concurrent use,
// although the batcher itself drives a Device from a single goroutine.
type Device interface {
	// === Buffer Management ===

	// CreateBuffer creates a GPU buffer.
	CreateBuffer(desc *BufferDesc) (BufferID, error)

	// WriteBuffer uploads data to a buffer at the given byte offset.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// === Texture Management ===

	// CreateTexture creates a 2D texture.
	CreateTexture(desc *TextureDesc) (TextureID, error)

	// WriteTexture uploads tightly packed texel data covering the
	// whole texture.
	WriteTexture(id TextureID, data []byte) error

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// CreateSampler creates a texture sampler.
	CreateSampler(desc *SamplerDesc) (SamplerID, error)

	// DestroySampler releases a sampler.
	DestroySampler(id SamplerID)

	// === Descriptor Sets ===

	// CreateDescriptorSetLayout creates a descriptor set layout.
	CreateDescriptorSetLayout(desc *DescriptorSetLayoutDesc) (DescriptorSetLayoutID, error)

	// DestroyDescriptorSetLayout releases a descriptor set layout.
	DestroyDescriptorSetLayout(id DescriptorSetLayoutID)

	// CreateDescriptorSet creates an empty descriptor set for layout.
	// Resources are attached with the Bind methods and become visible
	// to the GPU on UpdateDescriptorSet.
	CreateDescriptorSet(layout DescriptorSetLayoutID) (DescriptorSetID, error)

	// BindBuffer stages a uniform buffer range at binding.
	BindBuffer(set DescriptorSetID, binding uint32, buf BufferID, offset, size uint64)

	// BindTexture stages a texture at binding.
	BindTexture(set DescriptorSetID, binding uint32, tex TextureID)

	// BindSampler stages a sampler at binding.
	BindSampler(set DescriptorSetID, binding uint32, sampler SamplerID)

	// UpdateDescriptorSet realizes the staged bindings.
	UpdateDescriptorSet(set DescriptorSetID) error

	// DestroyDescriptorSet releases a descriptor set.
	DestroyDescriptorSet(id DescriptorSetID)

	// === Input Assemblers ===

	// CreateInputAssembler creates an input assembler.
	CreateInputAssembler(desc *InputAssemblerDesc) (InputAssemblerID, error)

	// DestroyInputAssembler releases an input assembler.
	DestroyInputAssembler(id InputAssemblerID)
}
