// Package gpucore provides the GPU abstraction consumed by the batch2d
// render batcher.
//
// This package defines the [Device] interface together with opaque
// resource IDs and descriptors. The batcher builds batches against
// [Device] only, so the same batching code works with:
//   - gogpu/wgpu (Pure Go WebGPU via HAL), see backend/native
//   - hal/noop for headless tests and tooling
//   - any host engine that maps the IDs onto its own resources
//
// # Architecture
//
//	               +-----------------+
//	               |     batch2d     |
//	               |    (Batcher)    |
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               |     gpucore     |
//	               |    (Device)     |
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               | backend/native  |
//	               |  (hal.Device)   |
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               |   gogpu/wgpu    |
//	               +-----------------+
//
// # Resource IDs
//
// Every resource is addressed by a typed uint64 ID. [InvalidID] (zero)
// is never returned for a successfully created resource, so a zero ID
// can be used as "none" throughout the batcher.
package gpucore
