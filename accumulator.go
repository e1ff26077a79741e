package batch2d

import (
	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/batch2d/multiplex"
	"github.com/gogpu/batch2d/render"
	"github.com/gogpu/batch2d/scene"
	"github.com/gogpu/batch2d/stencil"
)

// accumulator is the render state of the batch being built. Draws that
// match it extend the batch; any other draw closes it.
type accumulator struct {
	entity   *scene.RenderEntity
	drawInfo *scene.DrawInfo

	meshBuffer *scene.MeshBuffer
	indexStart uint32

	// middlewareIBCount is the index count of a run of middleware draws.
	middlewareIBCount uint32

	hash     uint64
	layer    uint32
	stage    stencil.Stage
	material *material.Material
	texture  gpucore.TextureID
	sampler  gpucore.SamplerID
}

// resetFrame clears the state that must not leak into the next frame.
func (a *accumulator) resetFrame() {
	a.meshBuffer = nil
	a.indexStart = 0
	a.hash = 0
	a.layer = 0
	a.material = nil
	a.texture = gpucore.InvalidID
	a.sampler = gpucore.InvalidID
}

// resetRenderStates forgets the batch being built without emitting it.
// The hash, stage and mesh buffer position survive.
func (b *Batcher) resetRenderStates() {
	b.acc.material = nil
	b.acc.texture = gpucore.InvalidID
	b.acc.sampler = gpucore.InvalidID
	b.acc.layer = 0
	b.acc.entity = nil
	b.acc.drawInfo = nil
	b.acc.middlewareIBCount = 0
	b.mux.Next()
}

// handleDrawInfo dispatches one draw of entity.
func (b *Batcher) handleDrawInfo(entity *scene.RenderEntity, d *scene.DrawInfo, node *scene.Node) {
	switch d.Type() {
	case scene.DrawComponent:
		b.handleComponentDraw(entity, d, node)
	case scene.DrawModel:
		b.handleModelDraw(entity, d)
	case scene.DrawMiddleware:
		b.handleMiddlewareDraw(entity, d)
	case scene.DrawSubNode:
		b.handleSubNode(entity, d)
	}
}

// applyStencil opens a mask for mask entities and stamps every other
// entity with the current stencil stage. It reports whether entity is a
// mask.
func (b *Batcher) applyStencil(entity *scene.RenderEntity) bool {
	if entity.IsMask() {
		b.insertMaskBatch(entity)
		return true
	}
	entity.SetStencilStage(b.stencil.Stage())
	return false
}

func (b *Batcher) handleComponentDraw(entity *scene.RenderEntity, d *scene.DrawInfo, node *scene.Node) {
	hash := d.DataHash()
	if d.SelfContained() {
		hash = 0
	}

	isMask := b.applyStencil(entity)
	stage := entity.StencilStage()

	tex := d.Texture()
	mat := d.Material()

	isMult, isFlush := false, false
	slot := -1
	if multiplex.Eligible(tex, mat) && !entity.UseLocal() {
		isMult = true
		if s, ok := b.mux.Lookup(tex); ok {
			slot = s
		} else if b.mux.Full() {
			isFlush = true
		}
		if b.mux.Active() {
			mat = b.acc.material
		}
	}

	if isFlush ||
		b.acc.hash != hash || hash == 0 ||
		b.acc.material != mat ||
		b.acc.stage != stage ||
		(!d.SelfContained() && b.acc.meshBuffer != d.MeshBuffer()) {
		b.generateBatch(b.acc.entity, b.acc.drawInfo)

		if !d.SelfContained() {
			if mb := d.MeshBuffer(); b.acc.meshBuffer != mb {
				b.acc.meshBuffer = mb
				b.acc.indexStart = mb.IndexOffset()
			}
		}

		if isMult {
			// The cut ended the previous cycle; slots start over.
			b.acc.material = b.mux.Begin(d.Material())
			slot = -1
		} else {
			b.acc.material = d.Material()
		}
		b.acc.hash = hash
		b.acc.stage = stage
		b.acc.layer = node.Layer()
		b.acc.entity = entity
		b.acc.drawInfo = d
		b.acc.texture = tex
		b.acc.sampler = d.Sampler()
	}

	if !d.SelfContained() {
		if !d.VertexPositionInWorld() &&
			(node.ChangedFlags() != 0 || node.TransformDirty() || d.VertDirty()) {
			fillVertexBuffers(node.WorldMatrix(), d)
			d.SetVertDirty(false)
		}
		if entity.VBColorDirty() && entity.FillColorType() == scene.FillColor {
			fillColor(entity, d)
		}
		if err := fillIndexBuffers(d); err != nil {
			b.logger().Warn("batch2d: index append failed", "node", node.Name, "err", err)
		}
		if isMult {
			if slot < 0 {
				slot = b.mux.Assign(tex, d.Sampler())
			}
			stampSlot(entity, d, slot)
		}
	}

	if isMask {
		b.stencil.EnableMask()
	}
}

func (b *Batcher) handleModelDraw(entity *scene.RenderEntity, d *scene.DrawInfo) {
	b.generateBatch(b.acc.entity, b.acc.drawInfo)
	b.resetRenderStates()

	isMask := b.applyStencil(entity)
	stage := entity.StencilStage()
	mat := d.Material()
	ds := b.stencil.DepthStencilState(stage, mat)
	dsHash := b.stencil.StencilHash(stage)

	model := d.Model()
	if model == nil {
		return
	}

	node := entity.Node()
	if node != nil {
		model.SetTransform(node.WorldMatrix())
	}
	stamp := b.stamp()
	model.UpdateTransform(stamp)
	if err := model.UpdateUBOs(stamp); err != nil {
		b.logger().Warn("batch2d: model uniform update failed", "err", err)
	}

	var layer uint32
	if node != nil {
		layer = node.Layer()
	}
	for _, sub := range model.SubModels() {
		subMat := mat
		if subMat == nil {
			subMat = sub.Material()
		}
		batch := b.pool.Alloc()
		batch.VisFlags = layer
		batch.Model = model
		batch.InputAssembler = sub.InputAssembler()
		batch.IndexCount = sub.IndexCount()
		batch.DescriptorSet = sub.DescriptorSet()
		batch.FillPass(subMat, ds, dsHash)
		b.appendBatch(batch)
	}

	if isMask {
		b.stencil.EnableMask()
	}
}

func (b *Batcher) handleMiddlewareDraw(entity *scene.RenderEntity, d *scene.DrawInfo) {
	var layer uint32
	if node := entity.Node(); node != nil {
		layer = node.Layer()
	}
	mat := d.Material()

	if b.canMergeMiddleware(entity, d, mat, layer) {
		b.acc.middlewareIBCount += d.IBCount()
		return
	}

	b.generateBatch(b.acc.entity, b.acc.drawInfo)
	b.acc.middlewareIBCount = d.IBCount()
	b.acc.layer = layer
	b.acc.material = mat
	b.acc.texture = d.Texture()
	b.acc.sampler = d.Sampler()
	b.acc.meshBuffer = d.MeshBuffer()
	b.acc.entity = entity
	b.acc.drawInfo = d
	b.acc.hash = 0
}

// canMergeMiddleware reports whether d continues the current middleware
// run: same state, and its indices start right where the run ends.
func (b *Batcher) canMergeMiddleware(entity *scene.RenderEntity, d *scene.DrawInfo, mat *material.Material, layer uint32) bool {
	curr := b.acc.drawInfo
	switch {
	case entity.UseLocal(), b.acc.entity == nil, b.acc.entity.UseLocal():
		return false
	case curr == nil || curr.Type() != scene.DrawMiddleware:
		return false
	case mat == nil || b.acc.material == nil || mat.Hash() != b.acc.material.Hash():
		return false
	}
	return b.acc.texture == d.Texture() &&
		b.acc.meshBuffer == d.MeshBuffer() &&
		d.IndexOffset() == curr.IndexOffset()+b.acc.middlewareIBCount &&
		layer == b.acc.layer
}

func (b *Batcher) handleSubNode(entity *scene.RenderEntity, d *scene.DrawInfo) {
	if sub := d.SubNode(); sub != nil {
		b.walk(sub, entity.Opacity(), false)
	}
}

// appendBatch adds batch to the frame. Batches without passes draw
// nothing and go straight back to the pool.
func (b *Batcher) appendBatch(batch *render.DrawBatch) {
	if len(batch.Passes) == 0 {
		b.pool.Free(batch)
		return
	}
	b.batches = append(b.batches, batch)
}
