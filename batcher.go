package batch2d

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/batch2d/multiplex"
	"github.com/gogpu/batch2d/render"
	"github.com/gogpu/batch2d/scene"
	"github.com/gogpu/batch2d/stencil"
)

// Batcher turns a tree of 2D nodes into a minimal list of draw batches
// once per frame.
//
// A frame runs in three steps:
//
//	b.FillAndMerge()  // walk the roots, write geometry, merge batches
//	b.UploadBuffers() // push dirty geometry to the GPU
//	b.Reset()         // after the host has drawn the batches
//
// Update may replace FillAndMerge; it also ends the frame's multiplex
// cycles right away. Call one or the other, never both, in a frame.
//
// Between FillAndMerge and Reset every root's render scene holds the
// batches produced for it, in draw order.
//
// Batcher is not safe for concurrent use. The node tree must not be
// modified while a frame is being built.
type Batcher struct {
	dev     gpucore.Device
	lib     *material.Library
	stencil stencil.Coordinator
	mux     *multiplex.Multiplexer
	pool    *render.BatchPool
	dsCache *descriptorCache
	opts    options

	roots       []*scene.Node
	meshBuffers map[uint16][]*scene.MeshBuffer

	batches       []*render.DrawBatch
	spans         []rootSpan
	meshDrawInfos []*scene.DrawInfo

	sortingCount int
	queue        []*scene.RenderEntity
	queueSpare   []*scene.RenderEntity

	acc accumulator

	clearMaterial *material.Material
	clearModel    *render.Model
	clearVB       gpucore.BufferID
	clearIB       gpucore.BufferID

	frame  uint64
	closed bool
}

// rootSpan records which batches were added to a root's render scene.
type rootSpan struct {
	scene    *render.Scene
	from, to int
}

// Stats reports batcher counters.
type Stats struct {
	// Frames is the number of FillAndMerge calls.
	Frames uint64

	// Batches is the number of batches of the current frame.
	Batches int

	// LiveBatches and PoolHighWater describe the batch pool.
	LiveBatches   int
	PoolHighWater int

	// DescriptorSets is the number of cached shared descriptor sets.
	DescriptorSets int

	// MultiplexCycles is the number of completed texture multiplex cycles.
	MultiplexCycles uint64
}

// New creates a batcher on dev.
func New(dev gpucore.Device, opts ...Option) (*Batcher, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	lib, err := material.NewLibrary(dev)
	if err != nil {
		return nil, fmt.Errorf("batch2d: %w", err)
	}

	mux := o.multiplexer
	if mux == nil {
		mux, err = multiplex.New(dev)
		if err != nil {
			lib.Close()
			return nil, fmt.Errorf("batch2d: %w", err)
		}
	}

	coord := o.stencil
	if coord == nil {
		coord = stencil.NewManager()
	}

	clearMat := o.clearMaterial
	if clearMat == nil {
		clearMat = lib.Get(material.DefaultClearStencil)
	}

	b := &Batcher{
		dev:           dev,
		lib:           lib,
		stencil:       coord,
		mux:           mux,
		pool:          render.NewBatchPool(o.poolSize),
		dsCache:       newDescriptorCache(dev, o.dsCacheLimit),
		opts:          o,
		meshBuffers:   make(map[uint16][]*scene.MeshBuffer),
		sortingCount:  o.sortingCount,
		queue:         make([]*scene.RenderEntity, 0, 100),
		queueSpare:    make([]*scene.RenderEntity, 0, 100),
		clearMaterial: clearMat,
	}
	b.logger().Info("batch2d: batcher created",
		"pool", o.poolSize,
		"sorting", o.sortingCount,
		"dsCacheLimit", o.dsCacheLimit)
	return b, nil
}

func (b *Batcher) logger() *slog.Logger {
	if b.opts.logger != nil {
		return b.opts.logger
	}
	return Logger()
}

// stamp returns the frame stamp for model updates.
func (b *Batcher) stamp() uint64 {
	if b.opts.frameStamp != nil {
		return b.opts.frameStamp()
	}
	return b.frame
}

// Device returns the device the batcher creates resources on.
func (b *Batcher) Device() gpucore.Device { return b.dev }

// Library returns the built-in material library.
func (b *Batcher) Library() *material.Library { return b.lib }

// Stencil returns the stencil coordinator.
func (b *Batcher) Stencil() stencil.Coordinator { return b.stencil }

// Multiplexer returns the texture multiplexer.
func (b *Batcher) Multiplexer() *multiplex.Multiplexer { return b.mux }

// DefaultAttributes returns the vertex layout of shared mesh buffers.
func (b *Batcher) DefaultAttributes() []gpucore.Attribute {
	return append([]gpucore.Attribute(nil), scene.DefaultAttributes...)
}

// SyncRootNodes replaces the roots walked each frame, in order. Roots
// without a render scene are kept and walked, but their batches only
// appear in Batches; the returned error lists them.
func (b *Batcher) SyncRootNodes(roots ...*scene.Node) error {
	b.roots = b.roots[:0]
	var errs []error
	for _, r := range roots {
		if r == nil {
			continue
		}
		if r.RenderScene == nil {
			errs = append(errs, fmt.Errorf("%w: %q", ErrNoRenderScene, r.Name))
		}
		b.roots = append(b.roots, r)
	}
	return errors.Join(errs...)
}

// Roots returns the synced root nodes.
func (b *Batcher) Roots() []*scene.Node { return b.roots }

// SyncMeshBuffers replaces the mesh buffers of an accessor. A nil or empty
// list forgets the accessor.
func (b *Batcher) SyncMeshBuffers(accID uint16, buffers []*scene.MeshBuffer) {
	if len(buffers) == 0 {
		delete(b.meshBuffers, accID)
		return
	}
	b.meshBuffers[accID] = append([]*scene.MeshBuffer(nil), buffers...)
}

// MeshBuffer returns buffer bufferID of accessor accID.
func (b *Batcher) MeshBuffer(accID, bufferID uint16) (*scene.MeshBuffer, error) {
	bufs := b.meshBuffers[accID]
	if int(bufferID) >= len(bufs) || bufs[bufferID] == nil {
		return nil, fmt.Errorf("%w: accessor %d buffer %d", ErrUnknownMeshBuffer, accID, bufferID)
	}
	return bufs[bufferID], nil
}

// SetSortingCount switches priority sorting on (n > 0) or off (n == 0).
// While sorting, entities are queued and drawn in stable priority order
// between flush points: the end of each root and every mask boundary.
func (b *Batcher) SetSortingCount(n int) {
	b.sortingCount = max(n, 0)
}

// SortingCount returns the sorting counter.
func (b *Batcher) SortingCount() int { return b.sortingCount }

func (b *Batcher) sorting() bool { return b.sortingCount > 0 }

// FillAndMerge walks every root, writes dirty geometry into the mesh
// buffers and appends the merged batches to each root's render scene.
func (b *Batcher) FillAndMerge() {
	if b.closed {
		return
	}
	b.frame++

	index := 0
	for _, root := range b.roots {
		b.walk(root, 1, false)
		if b.sorting() {
			b.flushRecorded()
		}
		b.generateBatch(b.acc.entity, b.acc.drawInfo)

		if root.RenderScene != nil && index < len(b.batches) {
			for _, batch := range b.batches[index:] {
				root.RenderScene.AddBatch(batch)
			}
			b.spans = append(b.spans, rootSpan{scene: root.RenderScene, from: index, to: len(b.batches)})
		}
		index = len(b.batches)
	}

	b.logger().Debug("batch2d: frame filled",
		"frame", b.frame,
		"roots", len(b.roots),
		"batches", len(b.batches),
		"poolLive", b.pool.Live(),
		"descriptorSets", b.dsCache.len())
}

// Update builds the frame and closes its multiplex cycles.
func (b *Batcher) Update() {
	if b.closed {
		return
	}
	b.FillAndMerge()
	b.resetRenderStates()
	b.mux.Reset()
}

// Batches returns the batches of the current frame in draw order. The
// slice is valid until Reset.
func (b *Batcher) Batches() []*render.DrawBatch { return b.batches }

// UploadBuffers pushes the frame's geometry to the GPU and rewinds the
// shared mesh buffers. It does nothing when the frame produced no
// batches. Every buffer is attempted; failures are joined.
func (b *Batcher) UploadBuffers() error {
	if b.closed {
		return ErrClosed
	}
	if len(b.batches) == 0 {
		return nil
	}

	var errs []error
	for _, d := range b.meshDrawInfos {
		if err := d.UploadBuffers(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, bufs := range b.meshBuffers {
		for _, mb := range bufs {
			if mb == nil {
				continue
			}
			if err := mb.UploadBuffers(); err != nil {
				errs = append(errs, err)
			}
			mb.Reset()
		}
	}
	if err := errors.Join(errs...); err != nil {
		b.logger().Warn("batch2d: upload failed", "err", err)
		return err
	}
	return nil
}

// Reset returns the frame's batches to the pool, removes them from the
// render scenes they were added to and rewinds the per-frame state,
// including the multiplex material pool.
func (b *Batcher) Reset() {
	for _, s := range b.spans {
		s.scene.RemoveBatches(b.batches[s.from:s.to])
	}
	clear(b.spans)
	b.spans = b.spans[:0]

	for i, batch := range b.batches {
		b.pool.Free(batch)
		b.batches[i] = nil
	}
	b.batches = b.batches[:0]

	for i, d := range b.meshDrawInfos {
		d.ResetMeshIA()
		b.meshDrawInfos[i] = nil
	}
	b.meshDrawInfos = b.meshDrawInfos[:0]

	for _, bufs := range b.meshBuffers {
		for _, mb := range bufs {
			if mb != nil {
				mb.ResetIA()
			}
		}
	}

	b.dropRecorded()
	b.resetRenderStates()
	b.mux.Reset()
	b.acc.resetFrame()

	if n := b.dsCache.trim(); n > 0 {
		b.logger().Debug("batch2d: descriptor sets trimmed", "count", n)
	}
}

// ReleaseDescriptorSetCache destroys the shared descriptor set of a
// texture and sampler pair, typically when the texture is destroyed.
func (b *Batcher) ReleaseDescriptorSetCache(tex gpucore.TextureID, sampler gpucore.SamplerID) {
	b.dsCache.release(tex, sampler)
}

// Stats returns the batcher counters.
func (b *Batcher) Stats() Stats {
	return Stats{
		Frames:          b.frame,
		Batches:         len(b.batches),
		LiveBatches:     b.pool.Live(),
		PoolHighWater:   b.pool.HighWater(),
		DescriptorSets:  b.dsCache.len(),
		MultiplexCycles: b.mux.Cycles(),
	}
}

// Close resets the batcher and releases everything it created. Further
// frames are no-ops. Close is idempotent.
func (b *Batcher) Close() {
	if b.closed {
		return
	}
	b.Reset()
	b.closed = true

	b.mux.Clear()
	b.dsCache.clear()
	b.pool.Destroy()
	b.destroyClearModel()
	b.lib.Close()
	b.roots = nil
	clear(b.meshBuffers)

	b.logger().Info("batch2d: batcher closed", "frames", b.frame)
}
