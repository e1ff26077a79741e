// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/batch2d/stencil"
)

// BatchPass is one material pass of a batch together with the
// depth-stencil state it is drawn with.
type BatchPass struct {
	Pass         *material.Pass
	DepthStencil *stencil.DepthStencil
	StencilHash  uint32
}

// DrawBatch is one GPU draw submission: a contiguous index range of an
// input assembler, drawn once per material pass.
//
// Batches are owned by a BatchPool and are valid until the frame that
// produced them is reset.
type DrawBatch struct {
	// VisFlags is the layer mask of the nodes the batch covers.
	VisFlags uint32

	InputAssembler gpucore.InputAssemblerID
	FirstIndex     uint32
	IndexCount     uint32
	DescriptorSet  gpucore.DescriptorSetID

	// Model is set for batches that draw a model's submesh.
	Model *Model

	// Material is the material the passes were taken from.
	Material *material.Material

	Passes []BatchPass

	live bool
}

// FillPass copies the passes of mat into the batch, each paired with ds.
// A nil material leaves the batch without passes.
func (b *DrawBatch) FillPass(mat *material.Material, ds *stencil.DepthStencil, dsHash uint32) {
	b.Material = mat
	b.Passes = b.Passes[:0]
	if mat == nil {
		return
	}
	for _, p := range mat.Passes() {
		b.Passes = append(b.Passes, BatchPass{Pass: p, DepthStencil: ds, StencilHash: dsHash})
	}
}

// Clear drops every reference held by the batch.
func (b *DrawBatch) Clear() {
	passes := b.Passes[:0]
	for i := range b.Passes {
		b.Passes[i] = BatchPass{}
	}
	*b = DrawBatch{Passes: passes, live: b.live}
}
