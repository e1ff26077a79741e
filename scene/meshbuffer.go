package scene

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/gputypes"
)

// VertexStride is the number of floats per 2D vertex: position (3),
// uv (2) and color (4).
const VertexStride = 9

// Float offsets inside a vertex.
const (
	OffsetPosition = 0
	OffsetUV       = 3
	OffsetColor    = 5
)

// DefaultAttributes is the vertex layout of the shared 2D mesh buffers.
var DefaultAttributes = []gpucore.Attribute{
	{Name: "a_position", Format: gputypes.VertexFormatFloat32x3},
	{Name: "a_texCoord", Format: gputypes.VertexFormatFloat32x2},
	{Name: "a_color", Format: gputypes.VertexFormatFloat32x4},
}

// Default mesh buffer limits.
const (
	DefaultVertexCapacity = 65535
	DefaultIndexCapacity  = DefaultVertexCapacity * 6
	DefaultMaxIA          = 64
)

// ErrMeshBufferFull is returned when an allocation exceeds the capacity of
// a mesh buffer.
var ErrMeshBufferFull = errors.New("scene: mesh buffer full")

// MeshBufferDesc configures a MeshBuffer. Zero fields use the defaults.
type MeshBufferDesc struct {
	Label          string
	VertexCapacity int
	IndexCapacity  int
	MaxIA          int
}

// MeshBuffer is a vertex/index arena shared by many component draws.
//
// Vertices are allocated once per draw and stay at a fixed location, so a
// draw keeps a stable view into the arena. Indices are rewritten every
// frame: each draw appends its indices at the running index offset, and a
// batch covers a contiguous range of that stream.
type MeshBuffer struct {
	dev   gpucore.Device
	label string

	vData       []float32
	vertexCount int

	iData       []uint16
	indexOffset uint32

	vb gpucore.BufferID
	ib gpucore.BufferID

	ias    []gpucore.InputAssemblerID
	nextIA int
	maxIA  int

	dirty bool
}

// NewMeshBuffer creates a mesh buffer and its GPU buffers on dev.
func NewMeshBuffer(dev gpucore.Device, desc MeshBufferDesc) (*MeshBuffer, error) {
	if desc.VertexCapacity <= 0 {
		desc.VertexCapacity = DefaultVertexCapacity
	}
	if desc.IndexCapacity <= 0 {
		desc.IndexCapacity = DefaultIndexCapacity
	}
	if desc.MaxIA <= 0 {
		desc.MaxIA = DefaultMaxIA
	}

	// #nosec G115 -- capacities are positive
	vb, err := dev.CreateBuffer(&gpucore.BufferDesc{
		Label: desc.Label + "-vb",
		Size:  uint64(desc.VertexCapacity * VertexStride * 4),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("scene: mesh buffer vertices: %w", err)
	}
	// Index data is uploaded in 4-byte units.
	// #nosec G115 -- capacities are positive
	ib, err := dev.CreateBuffer(&gpucore.BufferDesc{
		Label: desc.Label + "-ib",
		Size:  uint64((desc.IndexCapacity + 1) / 2 * 4),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		dev.DestroyBuffer(vb)
		return nil, fmt.Errorf("scene: mesh buffer indices: %w", err)
	}

	return &MeshBuffer{
		dev:   dev,
		label: desc.Label,
		vData: make([]float32, desc.VertexCapacity*VertexStride),
		iData: make([]uint16, desc.IndexCapacity),
		vb:    vb,
		ib:    ib,
		maxIA: desc.MaxIA,
	}, nil
}

// Allocate reserves n vertices and returns their view in the arena and
// the index of the first one.
func (m *MeshBuffer) Allocate(n int) ([]float32, uint16, error) {
	if n <= 0 {
		return nil, 0, fmt.Errorf("scene: allocate %d vertices", n)
	}
	if m.vertexCount+n > len(m.vData)/VertexStride || m.vertexCount+n > math.MaxUint16+1 {
		return nil, 0, fmt.Errorf("%w: %d + %d vertices", ErrMeshBufferFull, m.vertexCount, n)
	}
	// #nosec G115 -- bounded by MaxUint16 above
	base := uint16(m.vertexCount)
	start := m.vertexCount * VertexStride
	m.vertexCount += n
	end := m.vertexCount * VertexStride
	return m.vData[start:end:end], base, nil
}

// ResetAllocations forgets every vertex allocation. Views returned by
// Allocate must not be used afterwards.
func (m *MeshBuffer) ResetAllocations() {
	m.vertexCount = 0
	m.indexOffset = 0
}

// VertexCount returns the number of allocated vertices.
func (m *MeshBuffer) VertexCount() int { return m.vertexCount }

// Vertices returns the allocated part of the vertex arena.
func (m *MeshBuffer) Vertices() []float32 { return m.vData[:m.vertexCount*VertexStride] }

// Indices returns the indices written this frame.
func (m *MeshBuffer) Indices() []uint16 { return m.iData[:m.indexOffset] }

// IndexOffset returns the running index write offset.
func (m *MeshBuffer) IndexOffset() uint32 { return m.indexOffset }

// SetIndexOffset moves the index write offset, clamped to capacity.
func (m *MeshBuffer) SetIndexOffset(offset uint32) {
	// #nosec G115 -- capacity fits in uint32
	if c := uint32(len(m.iData)); offset > c {
		offset = c
	}
	m.indexOffset = offset
}

// AppendIndices copies ib at the index offset and advances it.
func (m *MeshBuffer) AppendIndices(ib []uint16) error {
	off := int(m.indexOffset)
	if off+len(ib) > len(m.iData) {
		return fmt.Errorf("%w: %d + %d indices", ErrMeshBufferFull, off, len(ib))
	}
	copy(m.iData[off:], ib)
	// #nosec G115 -- bounded by capacity
	m.indexOffset += uint32(len(ib))
	return nil
}

// WriteIndices copies ib at offset without moving the write offset. Hosts
// use it to place middleware geometry.
func (m *MeshBuffer) WriteIndices(offset uint32, ib []uint16) error {
	if int(offset)+len(ib) > len(m.iData) {
		return fmt.Errorf("%w: %d + %d indices", ErrMeshBufferFull, offset, len(ib))
	}
	copy(m.iData[offset:], ib)
	return nil
}

// Dirty reports whether the buffer has data pending upload.
func (m *MeshBuffer) Dirty() bool { return m.dirty }

// SetDirty marks the buffer for upload.
func (m *MeshBuffer) SetDirty(dirty bool) { m.dirty = dirty }

// RequireFreeIA returns the next unused input assembler of this frame,
// creating one if the pool allows. It returns InvalidID when the pool is
// exhausted.
func (m *MeshBuffer) RequireFreeIA() (gpucore.InputAssemblerID, error) {
	if m.nextIA < len(m.ias) {
		ia := m.ias[m.nextIA]
		m.nextIA++
		return ia, nil
	}
	if len(m.ias) >= m.maxIA {
		return gpucore.InvalidID, fmt.Errorf("scene: %s: %d input assemblers in use", m.label, len(m.ias))
	}
	ia, err := m.dev.CreateInputAssembler(&gpucore.InputAssemblerDesc{
		Attributes:   DefaultAttributes,
		VertexBuffer: m.vb,
		IndexBuffer:  m.ib,
		IndexFormat:  gputypes.IndexFormatUint16,
		Topology:     gputypes.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("scene: %s: %w", m.label, err)
	}
	m.ias = append(m.ias, ia)
	m.nextIA++
	return ia, nil
}

// InputAssemblersInUse returns the number of input assemblers handed out
// this frame.
func (m *MeshBuffer) InputAssemblersInUse() int { return m.nextIA }

// ResetIA makes every input assembler available again.
func (m *MeshBuffer) ResetIA() { m.nextIA = 0 }

// UploadBuffers writes the allocated vertices and this frame's indices to
// the GPU if the buffer is dirty.
func (m *MeshBuffer) UploadBuffers() error {
	if !m.dirty {
		return nil
	}
	if m.vertexCount > 0 {
		if err := m.dev.WriteBuffer(m.vb, 0, float32Bytes(m.Vertices())); err != nil {
			return fmt.Errorf("scene: %s: upload vertices: %w", m.label, err)
		}
	}
	if m.indexOffset > 0 {
		if err := m.dev.WriteBuffer(m.ib, 0, uint16Bytes(m.Indices())); err != nil {
			return fmt.Errorf("scene: %s: upload indices: %w", m.label, err)
		}
	}
	return nil
}

// Reset rewinds the index stream after upload.
func (m *MeshBuffer) Reset() {
	m.indexOffset = 0
	m.dirty = false
}

// Destroy releases the GPU resources.
func (m *MeshBuffer) Destroy() {
	for _, ia := range m.ias {
		m.dev.DestroyInputAssembler(ia)
	}
	m.ias = nil
	m.nextIA = 0
	m.dev.DestroyBuffer(m.vb)
	m.dev.DestroyBuffer(m.ib)
	m.vb, m.ib = gpucore.InvalidID, gpucore.InvalidID
}

func float32Bytes(src []float32) []byte {
	buf := make([]byte, len(src)*4)
	for i, v := range src {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// uint16Bytes pads odd counts to a 4-byte multiple.
func uint16Bytes(src []uint16) []byte {
	n := len(src) * 2
	if n%4 != 0 {
		n += 2
	}
	buf := make([]byte, n)
	for i, v := range src {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return buf
}
