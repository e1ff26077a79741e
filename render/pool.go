// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

// DefaultPoolSize is the number of batches a BatchPool preallocates.
const DefaultPoolSize = 10

// BatchPool recycles DrawBatch values across frames. It grows by the
// initial size whenever it runs dry, so after warmup a steady-state frame
// allocates nothing.
//
// BatchPool is not safe for concurrent use.
type BatchPool struct {
	free      []*DrawBatch
	step      int
	live      int
	highWater int
}

// NewBatchPool creates a pool holding size batches. Sizes below one use
// DefaultPoolSize.
func NewBatchPool(size int) *BatchPool {
	if size < 1 {
		size = DefaultPoolSize
	}
	p := &BatchPool{step: size}
	p.grow()
	return p
}

func (p *BatchPool) grow() {
	for i := 0; i < p.step; i++ {
		p.free = append(p.free, &DrawBatch{})
	}
}

// Alloc returns a cleared batch.
func (p *BatchPool) Alloc() *DrawBatch {
	if len(p.free) == 0 {
		p.grow()
	}
	b := p.free[len(p.free)-1]
	p.free[len(p.free)-1] = nil
	p.free = p.free[:len(p.free)-1]

	b.live = true
	p.live++
	if p.live > p.highWater {
		p.highWater = p.live
	}
	return b
}

// Free clears b and returns it to the pool. Freeing a batch that is not
// allocated is a no-op.
func (p *BatchPool) Free(b *DrawBatch) {
	if b == nil || !b.live {
		return
	}
	b.Clear()
	b.live = false
	p.live--
	p.free = append(p.free, b)
}

// Live returns the number of allocated batches.
func (p *BatchPool) Live() int { return p.live }

// HighWater returns the largest number of batches allocated at once.
func (p *BatchPool) HighWater() int { return p.highWater }

// Available returns the number of pooled batches ready for Alloc.
func (p *BatchPool) Available() int { return len(p.free) }

// Destroy drops the pooled batches. Allocated batches stay valid but are
// no longer tracked.
func (p *BatchPool) Destroy() {
	for i := range p.free {
		p.free[i] = nil
	}
	p.free = p.free[:0]
	p.live = 0
}
