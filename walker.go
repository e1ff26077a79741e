package batch2d

import (
	"cmp"
	"slices"

	"github.com/gogpu/batch2d/scene"
)

// walk visits node and its subtree depth-first, propagating opacity and
// handing every visible enabled entity to the accumulator.
func (b *Batcher) walk(node *scene.Node, parentOpacity float32, parentColorDirty bool) {
	if !node.ActiveInHierarchy() {
		return
	}

	entity := node.Entity()
	dirty := node.ColorDirty() || parentColorDirty

	opacity := parentOpacity * node.LocalOpacity()
	if entity != nil {
		opacity *= entity.ColorAlpha()
	}
	node.SetFinalOpacity(opacity)
	visible := opacity != 0

	breakWalk := false
	if entity != nil {
		switch {
		case !visible:
			breakWalk = true
		case entity.Enabled():
			if dirty {
				entity.SetOpacity(opacity)
				entity.SetVBColorDirty(true)
			}
			if b.sorting() {
				if entity.IsMask() {
					b.flushRecorded()
					b.generateBatch(b.acc.entity, b.acc.drawInfo)
					b.resetRenderStates()
				}
				b.record(entity)
			} else {
				b.handleUIRenderer(entity)
			}
		}
		if entity.Type() == scene.EntityCrossed {
			breakWalk = true
		}
	}

	if !breakWalk {
		childOpacity := opacity
		if entity != nil && entity.Enabled() {
			childOpacity = entity.Opacity()
		}
		for _, child := range node.Children() {
			b.walk(child, childOpacity, dirty)
		}
	}

	if dirty {
		node.SetColorDirty(false)
	}

	if entity != nil && entity.Enabled() {
		if b.sorting() && visible && entity.IsMask() {
			b.flushRecorded()
		}
		if visible && b.stencil.MaskStackSize() > 0 {
			b.handlePostRender(entity)
		}
	}
}

// handleUIRenderer runs every draw of entity.
func (b *Batcher) handleUIRenderer(entity *scene.RenderEntity) {
	node := entity.Node()
	for _, d := range entity.DrawInfos() {
		if d != nil {
			b.handleDrawInfo(entity, d, node)
		}
	}
	entity.SetVBColorDirty(false)
}

// handlePostRender closes the mask opened by entity, if it is one.
func (b *Batcher) handlePostRender(entity *scene.RenderEntity) {
	if !entity.IsMask() {
		return
	}
	b.generateBatch(b.acc.entity, b.acc.drawInfo)
	b.resetRenderStates()
	b.stencil.ExitMask()
}

// record queues entity for priority-sorted drawing.
func (b *Batcher) record(entity *scene.RenderEntity) {
	b.queue = append(b.queue, entity)
}

// flushRecorded draws the queued entities in stable priority order until
// the queue is empty. Entities recorded while flushing, by sub-node draws,
// are sorted and drawn by the next round of the same flush.
func (b *Batcher) flushRecorded() {
	for len(b.queue) > 0 {
		pending := b.queue
		b.queue = b.queueSpare[:0]
		b.queueSpare = nil

		slices.SortStableFunc(pending, func(x, y *scene.RenderEntity) int {
			return cmp.Compare(x.Priority(), y.Priority())
		})
		for _, entity := range pending {
			b.handleUIRenderer(entity)
		}

		clear(pending)
		if b.queueSpare == nil {
			b.queueSpare = pending[:0]
		}
	}
}

// dropRecorded forgets queued entities that were never flushed.
func (b *Batcher) dropRecorded() {
	clear(b.queue)
	b.queue = b.queue[:0]
}
