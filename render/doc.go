// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render holds the renderer-side output of 2D batching.
//
// A frame produces DrawBatch values, each drawing an index range of an
// input assembler once per material pass. Batches come from a BatchPool
// and are appended to the Scene of the root node they were built for.
// Model carries self-contained geometry that is drawn outside the shared
// mesh buffers.
//
// # Lifetime
//
// Batches are valid from the frame that allocates them until the batcher
// resets. The host renderer must finish submitting a Scene before that.
package render
