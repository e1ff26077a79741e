package scene

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/batch2d/render"
	"github.com/gogpu/gputypes"
)

// DrawType classifies a draw record.
type DrawType uint8

const (
	// DrawComponent is sprite-style geometry. It lives in a shared mesh
	// buffer unless the draw is self-contained.
	DrawComponent DrawType = iota

	// DrawModel draws every submodel of a Model.
	DrawModel

	// DrawMiddleware is geometry written into a mesh buffer by an
	// external runtime at a fixed index offset.
	DrawMiddleware

	// DrawSubNode traverses another node in place.
	DrawSubNode
)

// String returns the draw type name.
func (t DrawType) String() string {
	switch t {
	case DrawComponent:
		return "Component"
	case DrawModel:
		return "Model"
	case DrawMiddleware:
		return "Middleware"
	case DrawSubNode:
		return "SubNode"
	default:
		return "Unknown"
	}
}

// DrawInfo is one draw record of a RenderEntity.
type DrawInfo struct {
	drawType DrawType

	material *material.Material
	texture  gpucore.TextureID
	sampler  gpucore.SamplerID
	dataHash uint64

	// Shared mesh buffer geometry.
	meshBuffer  *MeshBuffer
	local       []mgl32.Vec3
	vb          []float32
	ib          []uint16
	indexOffset uint32
	ibCount     uint32

	vertDirty             bool
	vertexPositionInWorld bool

	// Self-contained geometry.
	selfContained bool
	dev           gpucore.Device
	ownVB, ownIB  gpucore.BufferID
	ownVBSize     uint64
	ownIBSize     uint64
	ias           []gpucore.InputAssemblerID
	nextIA        int

	// Local-transform descriptor set.
	localUBO gpucore.BufferID
	localDS  gpucore.DescriptorSetID

	model   *render.Model
	subNode *Node
}

// NewDrawInfo creates an empty draw record of type t.
func NewDrawInfo(t DrawType) *DrawInfo {
	return &DrawInfo{drawType: t}
}

// NewModelDraw creates a draw of every submodel of m.
func NewModelDraw(m *render.Model, mat *material.Material) *DrawInfo {
	d := NewDrawInfo(DrawModel)
	d.model = m
	d.material = mat
	return d
}

// NewSubNodeDraw creates a draw that traverses n in place.
func NewSubNodeDraw(n *Node) *DrawInfo {
	d := NewDrawInfo(DrawSubNode)
	d.subNode = n
	return d
}

// Type returns the draw type.
func (d *DrawInfo) Type() DrawType { return d.drawType }

// Material returns the draw material.
func (d *DrawInfo) Material() *material.Material { return d.material }

// Texture returns the sprite texture.
func (d *DrawInfo) Texture() gpucore.TextureID { return d.texture }

// Sampler returns the sprite sampler.
func (d *DrawInfo) Sampler() gpucore.SamplerID { return d.sampler }

// SetRenderState sets the material and sprite bindings and recomputes the
// data hash.
func (d *DrawInfo) SetRenderState(mat *material.Material, tex gpucore.TextureID, sampler gpucore.SamplerID) {
	d.material = mat
	d.texture = tex
	d.sampler = sampler
	d.dataHash = computeDataHash(mat, tex, sampler)
}

// computeDataHash fingerprints the render state two draws must share to
// merge. It is never zero. Textures of multiplexed materials are left
// out: they are told apart by slot instead.
func computeDataHash(mat *material.Material, tex gpucore.TextureID, sampler gpucore.SamplerID) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	if mat != nil {
		binary.LittleEndian.PutUint64(buf[:], uint64(mat.Hash()))
		_, _ = h.Write(buf[:])
		if mat.Multiplexed() {
			return nonZero(h.Sum64())
		}
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(tex))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(sampler))
	_, _ = h.Write(buf[:])
	return nonZero(h.Sum64())
}

func nonZero(sum uint64) uint64 {
	if sum != 0 {
		return sum
	}
	return 1
}

// DataHash returns the merge fingerprint. Zero never merges.
func (d *DrawInfo) DataHash() uint64 { return d.dataHash }

// SetDataHash overrides the merge fingerprint.
func (d *DrawInfo) SetDataHash(h uint64) { d.dataHash = h }

// MeshBuffer returns the shared mesh buffer, or nil.
func (d *DrawInfo) MeshBuffer() *MeshBuffer { return d.meshBuffer }

// SetQuads allocates len(local) vertices in mb and records the draw's
// geometry. Indices are relative to the first vertex; uvs may be nil.
func (d *DrawInfo) SetQuads(mb *MeshBuffer, local []mgl32.Vec3, uvs []mgl32.Vec2, indices []uint16) error {
	if uvs != nil && len(uvs) != len(local) {
		return fmt.Errorf("scene: %d uvs for %d vertices", len(uvs), len(local))
	}
	for _, idx := range indices {
		if int(idx) >= len(local) {
			return fmt.Errorf("scene: index %d out of %d vertices", idx, len(local))
		}
	}
	vb, base, err := mb.Allocate(len(local))
	if err != nil {
		return err
	}
	for i := range uvs {
		vb[i*VertexStride+OffsetUV] = uvs[i][0]
		vb[i*VertexStride+OffsetUV+1] = uvs[i][1]
	}
	ib := make([]uint16, len(indices))
	for i, idx := range indices {
		ib[i] = base + idx
	}

	d.meshBuffer = mb
	d.local = append(d.local[:0], local...)
	d.vb = vb
	d.ib = ib
	// #nosec G115 -- bounded by mesh buffer capacity
	d.ibCount = uint32(len(ib))
	d.selfContained = false
	d.vertDirty = true
	return nil
}

// SetLocalPositions replaces the local vertex positions and marks the
// vertices dirty.
func (d *DrawInfo) SetLocalPositions(local []mgl32.Vec3) {
	copy(d.local, local)
	d.vertDirty = true
}

// LocalPositions returns the local vertex positions.
func (d *DrawInfo) LocalPositions() []mgl32.Vec3 { return d.local }

// VB returns the draw's vertex floats.
func (d *DrawInfo) VB() []float32 { return d.vb }

// IB returns the draw's indices.
func (d *DrawInfo) IB() []uint16 { return d.ib }

// Stride returns the number of floats per vertex.
func (d *DrawInfo) Stride() int { return VertexStride }

// VBCount returns the number of vertices.
func (d *DrawInfo) VBCount() int { return len(d.vb) / VertexStride }

// IBCount returns the number of indices.
func (d *DrawInfo) IBCount() uint32 { return d.ibCount }

// IndexOffset returns the first index of a middleware or self-contained
// draw.
func (d *DrawInfo) IndexOffset() uint32 { return d.indexOffset }

// SetMiddleware binds a middleware draw to count indices at offset of mb.
func (d *DrawInfo) SetMiddleware(mb *MeshBuffer, offset, count uint32) {
	d.meshBuffer = mb
	d.indexOffset = offset
	d.ibCount = count
}

// VertDirty reports whether world positions must be refilled.
func (d *DrawInfo) VertDirty() bool { return d.vertDirty }

// SetVertDirty sets the vertex latch.
func (d *DrawInfo) SetVertDirty(dirty bool) { d.vertDirty = dirty }

// VertexPositionInWorld reports whether the host already writes world
// positions.
func (d *DrawInfo) VertexPositionInWorld() bool { return d.vertexPositionInWorld }

// SetVertexPositionInWorld sets whether the host writes world positions.
func (d *DrawInfo) SetVertexPositionInWorld(v bool) { d.vertexPositionInWorld = v }

// Model returns the model of a model draw.
func (d *DrawInfo) Model() *render.Model { return d.model }

// SubNode returns the node of a sub-node draw.
func (d *DrawInfo) SubNode() *Node { return d.subNode }

// SelfContained reports whether the draw owns its geometry buffers
// instead of using a shared mesh buffer.
func (d *DrawInfo) SelfContained() bool { return d.selfContained }

// SetSelfContained gives the draw its own geometry. count indices from
// offset are drawn.
func (d *DrawInfo) SetSelfContained(vb []float32, ib []uint16, offset, count uint32) {
	d.selfContained = true
	d.meshBuffer = nil
	d.vb = vb
	d.ib = ib
	d.indexOffset = offset
	d.ibCount = count
}

func (d *DrawInfo) ensureOwnBuffers(dev gpucore.Device) error {
	d.dev = dev
	// #nosec G115 -- slice lengths are non-negative
	vbSize := uint64(len(d.vb) * 4)
	// #nosec G115 -- slice lengths are non-negative
	ibSize := uint64((len(d.ib) + 1) / 2 * 4)
	if vbSize == 0 || ibSize == 0 {
		return fmt.Errorf("scene: self-contained draw without geometry")
	}

	if d.ownVB == gpucore.InvalidID || d.ownVBSize < vbSize || d.ownIBSize < ibSize {
		d.releaseOwnBuffers()
		vb, err := dev.CreateBuffer(&gpucore.BufferDesc{
			Label: "batch2d-draw-vb",
			Size:  vbSize,
			Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		ib, err := dev.CreateBuffer(&gpucore.BufferDesc{
			Label: "batch2d-draw-ib",
			Size:  ibSize,
			Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			dev.DestroyBuffer(vb)
			return err
		}
		d.ownVB, d.ownIB = vb, ib
		d.ownVBSize, d.ownIBSize = vbSize, ibSize
	}
	return nil
}

func (d *DrawInfo) releaseOwnBuffers() {
	if d.dev == nil {
		return
	}
	for _, ia := range d.ias {
		d.dev.DestroyInputAssembler(ia)
	}
	d.ias = nil
	d.nextIA = 0
	if d.ownVB != gpucore.InvalidID {
		d.dev.DestroyBuffer(d.ownVB)
		d.dev.DestroyBuffer(d.ownIB)
	}
	d.ownVB, d.ownIB = gpucore.InvalidID, gpucore.InvalidID
	d.ownVBSize, d.ownIBSize = 0, 0
}

// RequestIA returns an input assembler over the draw's own buffers,
// creating the buffers on first use.
func (d *DrawInfo) RequestIA(dev gpucore.Device) (gpucore.InputAssemblerID, error) {
	if err := d.ensureOwnBuffers(dev); err != nil {
		return gpucore.InvalidID, fmt.Errorf("scene: request input assembler: %w", err)
	}
	if d.nextIA < len(d.ias) {
		ia := d.ias[d.nextIA]
		d.nextIA++
		return ia, nil
	}
	ia, err := dev.CreateInputAssembler(&gpucore.InputAssemblerDesc{
		Attributes:   DefaultAttributes,
		VertexBuffer: d.ownVB,
		IndexBuffer:  d.ownIB,
		IndexFormat:  gputypes.IndexFormatUint16,
		Topology:     gputypes.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("scene: request input assembler: %w", err)
	}
	d.ias = append(d.ias, ia)
	d.nextIA++
	return ia, nil
}

// UploadBuffers writes the draw's own geometry.
func (d *DrawInfo) UploadBuffers() error {
	if !d.selfContained || d.ownVB == gpucore.InvalidID {
		return nil
	}
	if err := d.dev.WriteBuffer(d.ownVB, 0, float32Bytes(d.vb)); err != nil {
		return fmt.Errorf("scene: upload draw vertices: %w", err)
	}
	if err := d.dev.WriteBuffer(d.ownIB, 0, uint16Bytes(d.ib)); err != nil {
		return fmt.Errorf("scene: upload draw indices: %w", err)
	}
	return nil
}

// ResetMeshIA makes the draw's input assemblers available again.
func (d *DrawInfo) ResetMeshIA() { d.nextIA = 0 }

// UpdateLocalDescriptorSet writes transform into the draw's local
// uniform buffer and returns a descriptor set of layout binding it with
// the draw's texture and sampler.
func (d *DrawInfo) UpdateLocalDescriptorSet(dev gpucore.Device, transform mgl32.Mat4, layout gpucore.DescriptorSetLayoutID) (gpucore.DescriptorSetID, error) {
	d.dev = dev
	if d.localUBO == gpucore.InvalidID {
		ubo, err := dev.CreateBuffer(&gpucore.BufferDesc{
			Label: "batch2d-draw-local",
			Size:  64,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return gpucore.InvalidID, fmt.Errorf("scene: local transform buffer: %w", err)
		}
		d.localUBO = ubo
	}
	if d.localDS == gpucore.InvalidID {
		ds, err := dev.CreateDescriptorSet(layout)
		if err != nil {
			return gpucore.InvalidID, fmt.Errorf("scene: local descriptor set: %w", err)
		}
		d.localDS = ds
		dev.BindBuffer(ds, material.BindingLocal, d.localUBO, 0, 64)
	}
	if err := dev.WriteBuffer(d.localUBO, 0, render.MatrixBytes(transform)); err != nil {
		return gpucore.InvalidID, fmt.Errorf("scene: local transform: %w", err)
	}
	if d.texture != gpucore.InvalidID && d.sampler != gpucore.InvalidID {
		dev.BindTexture(d.localDS, material.BindingSpriteTexture, d.texture)
		dev.BindSampler(d.localDS, material.BindingSpriteSampler, d.sampler)
	}
	if err := dev.UpdateDescriptorSet(d.localDS); err != nil {
		return gpucore.InvalidID, fmt.Errorf("scene: local descriptor set: %w", err)
	}
	return d.localDS, nil
}

// LocalDescriptorSet returns the set built by UpdateLocalDescriptorSet.
func (d *DrawInfo) LocalDescriptorSet() gpucore.DescriptorSetID { return d.localDS }

// Destroy releases the GPU resources owned by the draw.
func (d *DrawInfo) Destroy() {
	d.releaseOwnBuffers()
	if d.dev == nil {
		return
	}
	if d.localDS != gpucore.InvalidID {
		d.dev.DestroyDescriptorSet(d.localDS)
		d.localDS = gpucore.InvalidID
	}
	if d.localUBO != gpucore.InvalidID {
		d.dev.DestroyBuffer(d.localUBO)
		d.localUBO = gpucore.InvalidID
	}
}
