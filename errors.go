package batch2d

import "errors"

var (
	// ErrNilDevice is returned by New when no device is given.
	ErrNilDevice = errors.New("batch2d: nil device")

	// ErrClosed is returned by operations on a closed batcher.
	ErrClosed = errors.New("batch2d: batcher closed")

	// ErrUnknownMeshBuffer is returned when a mesh buffer lookup misses.
	ErrUnknownMeshBuffer = errors.New("batch2d: unknown mesh buffer")

	// ErrNoRenderScene is returned for root nodes that have no render
	// scene to receive their batches.
	ErrNoRenderScene = errors.New("batch2d: root node has no render scene")
)
