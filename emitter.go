package batch2d

import (
	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/scene"
)

// generateBatch closes the batch being built, described by entity and d,
// and appends it to the frame.
func (b *Batcher) generateBatch(entity *scene.RenderEntity, d *scene.DrawInfo) {
	b.mux.Next()
	if d == nil || entity == nil {
		return
	}
	if d.Type() == scene.DrawMiddleware {
		b.generateBatchForMiddleware(entity, d)
		return
	}
	if b.acc.material == nil {
		return
	}

	var (
		ia           gpucore.InputAssemblerID
		first, count uint32
		err          error
	)
	if d.SelfContained() {
		ia, err = d.RequestIA(b.dev)
		if err != nil {
			b.logger().Warn("batch2d: input assembler unavailable", "err", err)
			return
		}
		first, count = d.IndexOffset(), d.IBCount()
		b.meshDrawInfos = append(b.meshDrawInfos, d)
	} else {
		mb := d.MeshBuffer()
		if mb == nil {
			return
		}
		count = mb.IndexOffset() - b.acc.indexStart
		if count == 0 {
			b.acc.meshBuffer = nil
			return
		}
		mb.SetDirty(true)
		ia, err = mb.RequireFreeIA()
		if err != nil {
			b.logger().Warn("batch2d: input assembler unavailable", "err", err)
			return
		}
		first = b.acc.indexStart
		b.acc.indexStart = mb.IndexOffset()
	}
	b.acc.meshBuffer = nil

	stage := entity.StencilStage()
	ds := b.stencil.DepthStencilState(stage, b.acc.material)
	dsHash := b.stencil.StencilHash(stage)

	batch := b.pool.Alloc()
	batch.VisFlags = b.acc.layer
	batch.InputAssembler = ia
	batch.FirstIndex = first
	batch.IndexCount = count
	batch.FillPass(b.acc.material, ds, dsHash)
	if len(batch.Passes) == 0 {
		b.pool.Free(batch)
		return
	}

	pass := batch.Passes[0].Pass
	if entity.UseLocal() {
		batch.DescriptorSet, err = d.UpdateLocalDescriptorSet(b.dev, entity.RenderTransform(), pass.LocalLayout())
	} else {
		batch.DescriptorSet, err = b.dsCache.get(b.acc.texture, b.acc.sampler, pass.Layout())
	}
	if err != nil {
		b.logger().Warn("batch2d: descriptor set unavailable", "err", err)
		b.pool.Free(batch)
		return
	}
	b.appendBatch(batch)
}

// generateBatchForMiddleware emits the current middleware run. The run's
// indices are already in the mesh buffer; only its high-water mark moves.
func (b *Batcher) generateBatchForMiddleware(entity *scene.RenderEntity, d *scene.DrawInfo) {
	defer func() {
		b.resetRenderStates()
		b.acc.meshBuffer = nil
	}()

	mb := d.MeshBuffer()
	mat := d.Material()
	if mb == nil || mat == nil {
		return
	}

	count := b.acc.middlewareIBCount
	if end := d.IndexOffset() + count; mb.IndexOffset() < end {
		mb.SetIndexOffset(end)
	}
	mb.SetDirty(true)

	ia, err := mb.RequireFreeIA()
	if err != nil {
		b.logger().Warn("batch2d: input assembler unavailable", "err", err)
		return
	}

	stage := b.stencil.Stage()
	ds := b.stencil.DepthStencilState(stage, mat)
	dsHash := b.stencil.StencilHash(stage)

	batch := b.pool.Alloc()
	batch.VisFlags = b.acc.layer
	batch.InputAssembler = ia
	batch.FirstIndex = d.IndexOffset()
	batch.IndexCount = count
	batch.FillPass(mat, ds, dsHash)
	if len(batch.Passes) == 0 {
		b.pool.Free(batch)
		return
	}

	pass := batch.Passes[0].Pass
	if entity.UseLocal() {
		batch.DescriptorSet, err = d.UpdateLocalDescriptorSet(b.dev, entity.RenderTransform(), pass.LocalLayout())
	} else {
		batch.DescriptorSet, err = b.dsCache.get(d.Texture(), d.Sampler(), pass.Layout())
	}
	if err != nil {
		b.logger().Warn("batch2d: descriptor set unavailable", "err", err)
		b.pool.Free(batch)
		return
	}
	b.appendBatch(batch)
}
