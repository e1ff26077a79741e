// Package batch2d merges the draws of a 2D scene graph into as few GPU
// draw batches as possible.
//
// # Overview
//
// Each frame, a Batcher walks a tree of scene.Node values depth-first.
// Nodes carry a scene.RenderEntity holding one or more scene.DrawInfo
// values: sprite quads in a shared mesh buffer, self-contained meshes,
// models, middleware index runs, or links to detached subtrees. Draws
// that share material, texture, sampler, stencil stage and mesh buffer
// are merged into one render.DrawBatch covering a contiguous index range.
//
// # Quick Start
//
//	dev, _ := native.NewHeadless()
//	b, _ := batch2d.New(dev)
//	defer b.Close()
//
//	root := scene.NewNode("canvas")
//	root.RenderScene = render.NewScene()
//	_ = b.SyncRootNodes(root)
//	b.SyncMeshBuffers(0, []*scene.MeshBuffer{mb})
//
//	for frame := range frames {
//	    b.Update()
//	    _ = b.UploadBuffers()
//	    draw(root.RenderScene.Batches())
//	    b.Reset()
//	}
//
// # Opacity
//
// Opacity is multiplied down the tree. A node whose final opacity is zero
// is skipped together with its subtree; vertex colors are rewritten only
// for entities whose color or ancestor opacity changed.
//
// # Masks
//
// Mask entities open a stencil level: the batcher emits a stencil-clear
// quad, draws the mask shape into the stencil, draws the subtree with
// stencil testing and closes the level on the way back up. Nested masks
// use one stencil bit per level. See package stencil.
//
// # Texture Multiplexing
//
// Materials whose effect name contains material.MultiplexMarker sample up
// to eight textures in one draw. The batcher assigns each texture a slot
// and encodes the slot into the vertex color. See package multiplex.
//
// # Sorting
//
// With a nonzero sorting count (SetSortingCount), entities are queued and
// drawn in stable priority order between flush points: the end of every
// root and each mask boundary.
//
// # Logging
//
// batch2d logs through log/slog and is silent by default. See SetLogger.
package batch2d
