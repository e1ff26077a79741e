package batch2d

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/render"
	"github.com/gogpu/batch2d/scene"
)

// clearQuad is a unit quad covering the mask in its node's space.
var (
	clearQuadVertices = [...]float32{
		-1, -1, 0,
		1, -1, 0,
		-1, 1, 0,
		1, 1, 0,
	}
	clearQuadIndices = [...]uint16{0, 2, 1, 2, 1, 3}
)

// insertMaskBatch closes the current batch and emits the stencil-clear
// draw that opens a new mask level for entity.
func (b *Batcher) insertMaskBatch(entity *scene.RenderEntity) {
	b.generateBatch(b.acc.entity, b.acc.drawInfo)
	b.resetRenderStates()
	if err := b.createClearModel(); err != nil {
		b.logger().Warn("batch2d: stencil clear model unavailable", "err", err)
	}

	b.stencil.PushMask()
	stage := b.stencil.Clear(entity)
	ds := b.stencil.DepthStencilState(stage, b.clearMaterial)
	dsHash := b.stencil.StencilHash(stage)

	if b.clearModel == nil {
		return
	}

	var layer uint32
	if node := entity.Node(); node != nil {
		b.clearModel.SetTransform(node.WorldMatrix())
		layer = node.Layer()
	}
	stamp := b.stamp()
	b.clearModel.UpdateTransform(stamp)
	if err := b.clearModel.UpdateUBOs(stamp); err != nil {
		b.logger().Warn("batch2d: stencil clear uniform update failed", "err", err)
	}

	for _, sub := range b.clearModel.SubModels() {
		batch := b.pool.Alloc()
		batch.VisFlags = layer
		batch.Model = b.clearModel
		batch.InputAssembler = sub.InputAssembler()
		batch.IndexCount = sub.IndexCount()
		batch.DescriptorSet = sub.DescriptorSet()
		batch.FillPass(b.clearMaterial, ds, dsHash)
		b.appendBatch(batch)
	}

	b.stencil.EnterLevel(entity)
}

// createClearModel builds the stencil-clear quad on first use.
func (b *Batcher) createClearModel() error {
	if b.clearModel != nil {
		return nil
	}
	if b.clearMaterial == nil {
		return fmt.Errorf("batch2d: no stencil clear material")
	}

	vdata := make([]byte, 4*len(clearQuadVertices))
	for i, v := range clearQuadVertices {
		binary.LittleEndian.PutUint32(vdata[4*i:], math.Float32bits(v))
	}
	idata := make([]byte, 2*len(clearQuadIndices))
	for i, v := range clearQuadIndices {
		binary.LittleEndian.PutUint16(idata[2*i:], v)
	}

	vb, err := b.dev.CreateBuffer(&gpucore.BufferDesc{
		Label: "batch2d-clear-stencil-vb",
		Size:  uint64(len(vdata)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("batch2d: clear vertices: %w", err)
	}
	ib, err := b.dev.CreateBuffer(&gpucore.BufferDesc{
		Label: "batch2d-clear-stencil-ib",
		Size:  uint64(len(idata)),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		b.dev.DestroyBuffer(vb)
		return fmt.Errorf("batch2d: clear indices: %w", err)
	}

	release := func() {
		b.dev.DestroyBuffer(vb)
		b.dev.DestroyBuffer(ib)
	}
	if err := b.dev.WriteBuffer(vb, 0, vdata); err != nil {
		release()
		return fmt.Errorf("batch2d: clear vertices: %w", err)
	}
	if err := b.dev.WriteBuffer(ib, 0, idata); err != nil {
		release()
		return fmt.Errorf("batch2d: clear indices: %w", err)
	}

	model, err := render.NewModel(b.dev)
	if err != nil {
		release()
		return err
	}
	err = model.InitSubModel(0, render.SubMesh{
		Attributes: []gpucore.Attribute{
			{Name: "a_position", Format: gputypes.VertexFormatFloat32x3},
		},
		VertexBuffer: vb,
		IndexBuffer:  ib,
		IndexFormat:  gputypes.IndexFormatUint16,
		IndexCount:   uint32(len(clearQuadIndices)),
		Topology:     gputypes.PrimitiveTopologyTriangleList,
	}, b.clearMaterial)
	if err != nil {
		model.Destroy()
		release()
		return err
	}

	b.clearModel = model
	b.clearVB, b.clearIB = vb, ib
	return nil
}

func (b *Batcher) destroyClearModel() {
	if b.clearModel == nil {
		return
	}
	b.clearModel.Destroy()
	b.dev.DestroyBuffer(b.clearVB)
	b.dev.DestroyBuffer(b.clearIB)
	b.clearModel = nil
	b.clearVB, b.clearIB = gpucore.InvalidID, gpucore.InvalidID
}
