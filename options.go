package batch2d

import (
	"log/slog"

	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/batch2d/multiplex"
	"github.com/gogpu/batch2d/render"
	"github.com/gogpu/batch2d/stencil"
)

// Option configures a Batcher during creation.
//
// Example:
//
//	b, err := batch2d.New(dev,
//	    batch2d.WithSortingCount(1),
//	    batch2d.WithBatchPoolSize(64),
//	)
type Option func(*options)

// options holds optional configuration for Batcher creation.
type options struct {
	stencil       stencil.Coordinator
	multiplexer   *multiplex.Multiplexer
	poolSize      int
	sortingCount  int
	dsCacheLimit  int
	clearMaterial *material.Material
	frameStamp    func() uint64
	logger        *slog.Logger
}

// defaultOptions returns the default batcher options.
func defaultOptions() options {
	return options{
		poolSize: render.DefaultPoolSize,
	}
}

// WithStencil sets the stencil coordinator the batcher drives.
// The default is a fresh stencil.Manager.
func WithStencil(c stencil.Coordinator) Option {
	return func(o *options) {
		o.stencil = c
	}
}

// WithMultiplexer shares a texture multiplexer with the batcher.
// By default the batcher creates its own on the device.
func WithMultiplexer(m *multiplex.Multiplexer) Option {
	return func(o *options) {
		o.multiplexer = m
	}
}

// WithBatchPoolSize sets the initial size and growth step of the batch
// pool. Values below one keep the default of 10.
func WithBatchPoolSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// WithSortingCount starts the batcher in priority-sorting mode.
// See Batcher.SetSortingCount.
func WithSortingCount(n int) Option {
	return func(o *options) {
		o.sortingCount = max(n, 0)
	}
}

// WithDescriptorSetCacheLimit bounds the number of shared descriptor sets
// kept between frames. Zero, the default, keeps all of them.
//
// The limit is applied at Reset, never while a frame is being built.
func WithDescriptorSetCacheLimit(n int) Option {
	return func(o *options) {
		o.dsCacheLimit = max(n, 0)
	}
}

// WithClearMaterial replaces the material used to draw stencil-clear
// quads for masks.
func WithClearMaterial(m *material.Material) Option {
	return func(o *options) {
		o.clearMaterial = m
	}
}

// WithFrameStamp sets the function that stamps model transform and
// uniform updates. By default the batcher counts FillAndMerge calls.
func WithFrameStamp(f func() uint64) Option {
	return func(o *options) {
		o.frameStamp = f
	}
}

// WithLogger gives the batcher its own logger instead of the package
// logger set with SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
