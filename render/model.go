// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/gputypes"
)

// matrixSize is the byte size of a 4x4 float32 matrix.
const matrixSize = 16 * 4

// MatrixBytes encodes m column-major as little-endian float32 values.
func MatrixBytes(m mgl32.Mat4) []byte {
	buf := make([]byte, matrixSize)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// SubMesh is the geometry of one submodel.
type SubMesh struct {
	Attributes   []gpucore.Attribute
	VertexBuffer gpucore.BufferID
	IndexBuffer  gpucore.BufferID
	IndexFormat  gputypes.IndexFormat
	IndexCount   uint32
	Topology     gputypes.PrimitiveTopology
}

// SubModel is a submesh bound to a material.
type SubModel struct {
	mesh     SubMesh
	material *material.Material
	ia       gpucore.InputAssemblerID
	ds       gpucore.DescriptorSetID
}

// InputAssembler returns the submesh input assembler.
func (s *SubModel) InputAssembler() gpucore.InputAssemblerID { return s.ia }

// DescriptorSet returns the per-model descriptor set.
func (s *SubModel) DescriptorSet() gpucore.DescriptorSetID { return s.ds }

// Material returns the submodel material.
func (s *SubModel) Material() *material.Material { return s.material }

// IndexCount returns the number of indices drawn.
func (s *SubModel) IndexCount() uint32 { return s.mesh.IndexCount }

// Model is self-contained geometry drawn outside the shared 2D mesh
// buffers, such as particles or the mask clear quad. Its world transform
// lives in a uniform buffer bound to each submodel's descriptor set.
type Model struct {
	dev gpucore.Device
	ubo gpucore.BufferID

	world      mgl32.Mat4
	worldDirty bool
	uboDirty   bool

	transformStamp uint64
	uboStamp       uint64

	subModels []*SubModel
}

// NewModel creates an empty model with an identity transform.
func NewModel(dev gpucore.Device) (*Model, error) {
	ubo, err := dev.CreateBuffer(&gpucore.BufferDesc{
		Label: "batch2d-model-local",
		Size:  matrixSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render: model uniform buffer: %w", err)
	}
	return &Model{
		dev:        dev,
		ubo:        ubo,
		world:      mgl32.Ident4(),
		worldDirty: true,
	}, nil
}

// InitSubModel binds mesh and mat at index idx, replacing any submodel
// already there.
func (m *Model) InitSubModel(idx int, mesh SubMesh, mat *material.Material) error {
	if mat == nil || len(mat.Passes()) == 0 {
		return fmt.Errorf("render: submodel %d: material has no passes", idx)
	}

	ia, err := m.dev.CreateInputAssembler(&gpucore.InputAssemblerDesc{
		Attributes:   mesh.Attributes,
		VertexBuffer: mesh.VertexBuffer,
		IndexBuffer:  mesh.IndexBuffer,
		IndexFormat:  mesh.IndexFormat,
		Topology:     mesh.Topology,
	})
	if err != nil {
		return fmt.Errorf("render: submodel %d: %w", idx, err)
	}

	ds, err := m.dev.CreateDescriptorSet(mat.Passes()[0].LocalLayout())
	if err != nil {
		m.dev.DestroyInputAssembler(ia)
		return fmt.Errorf("render: submodel %d: %w", idx, err)
	}
	m.dev.BindBuffer(ds, material.BindingLocal, m.ubo, 0, matrixSize)
	if err := m.dev.UpdateDescriptorSet(ds); err != nil {
		m.dev.DestroyDescriptorSet(ds)
		m.dev.DestroyInputAssembler(ia)
		return fmt.Errorf("render: submodel %d: %w", idx, err)
	}

	for len(m.subModels) <= idx {
		m.subModels = append(m.subModels, nil)
	}
	if old := m.subModels[idx]; old != nil {
		m.destroySubModel(old)
	}
	m.subModels[idx] = &SubModel{mesh: mesh, material: mat, ia: ia, ds: ds}
	return nil
}

// SubModels returns the initialized submodels in index order.
func (m *Model) SubModels() []*SubModel {
	out := m.subModels[:0:0]
	for _, s := range m.subModels {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// SetTransform sets the world transform applied on the next update.
func (m *Model) SetTransform(world mgl32.Mat4) {
	if world == m.world {
		return
	}
	m.world = world
	m.worldDirty = true
}

// Transform returns the world transform.
func (m *Model) Transform() mgl32.Mat4 { return m.world }

// UpdateTransform latches a pending transform change for frame stamp.
func (m *Model) UpdateTransform(stamp uint64) {
	m.transformStamp = stamp
	if m.worldDirty {
		m.worldDirty = false
		m.uboDirty = true
	}
}

// UpdateUBOs uploads the latched transform for frame stamp.
func (m *Model) UpdateUBOs(stamp uint64) error {
	m.uboStamp = stamp
	if !m.uboDirty {
		return nil
	}
	if err := m.dev.WriteBuffer(m.ubo, 0, MatrixBytes(m.world)); err != nil {
		return fmt.Errorf("render: model transform: %w", err)
	}
	m.uboDirty = false
	return nil
}

// Stamps returns the frame stamps of the last UpdateTransform and
// UpdateUBOs calls.
func (m *Model) Stamps() (transform, ubo uint64) { return m.transformStamp, m.uboStamp }

func (m *Model) destroySubModel(s *SubModel) {
	m.dev.DestroyDescriptorSet(s.ds)
	m.dev.DestroyInputAssembler(s.ia)
}

// Destroy releases the model's GPU resources. Submesh buffers belong to
// the caller.
func (m *Model) Destroy() {
	for _, s := range m.subModels {
		if s != nil {
			m.destroySubModel(s)
		}
	}
	m.subModels = nil
	if m.ubo != gpucore.InvalidID {
		m.dev.DestroyBuffer(m.ubo)
		m.ubo = gpucore.InvalidID
	}
}
