// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stencil

import (
	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultFormat is the depth-stencil attachment format the Manager
// describes states for.
const DefaultFormat = gputypes.TextureFormatDepth24PlusStencil8

// Manager is the default Coordinator. Mask scopes are counted; level n
// owns stencil bit n-1, and drawing inside n scopes requires all n low
// bits to be set.
//
// Manager is not safe for concurrent use.
type Manager struct {
	stage Stage
	depth int
	cache map[uint32]*DepthStencil
}

var _ Coordinator = (*Manager)(nil)

// NewManager returns a Manager with no open scopes.
func NewManager() *Manager {
	return &Manager{cache: make(map[uint32]*DepthStencil)}
}

// Stage returns the current stage.
func (m *Manager) Stage() Stage { return m.stage }

// MaskStackSize returns the number of open mask scopes.
func (m *Manager) MaskStackSize() int { return m.depth }

// PushMask opens a mask scope.
func (m *Manager) PushMask() { m.depth++ }

// Clear returns ClearInverted for inverted masks and Clear otherwise.
func (m *Manager) Clear(e Masked) Stage {
	if e.MaskInverted() {
		return ClearInverted
	}
	return Clear
}

// EnterLevel marks e as the writer of the innermost level.
func (m *Manager) EnterLevel(e Masked) {
	if e.MaskInverted() {
		e.SetStencilStage(EnterLevelInverted)
		return
	}
	e.SetStencilStage(EnterLevel)
}

// EnableMask switches to clipped drawing.
func (m *Manager) EnableMask() { m.stage = Enabled }

// ExitMask closes the innermost scope. Drawing stays clipped while outer
// scopes remain open.
func (m *Manager) ExitMask() {
	if m.depth == 0 {
		return
	}
	m.depth--
	if m.depth == 0 {
		m.stage = Disabled
	} else {
		m.stage = Enabled
	}
}

// Reset closes every scope.
func (m *Manager) Reset() {
	m.depth = 0
	m.stage = Disabled
}

// StencilHash returns (stage<<8)|depth.
func (m *Manager) StencilHash(stage Stage) uint32 {
	// #nosec G115 -- mask depth is bounded by the 8 stencil bits
	return uint32(stage)<<8 | uint32(m.depth)
}

// writeMask is the stencil bit owned by the innermost level.
func (m *Manager) writeMask() uint32 {
	if m.depth == 0 {
		return 0
	}
	// #nosec G115 -- depth > 0
	return 1 << uint32(m.depth-1)
}

// ref has one bit set per open level.
func (m *Manager) ref() uint32 {
	// #nosec G115 -- depth >= 0
	return 1<<uint32(m.depth) - 1
}

// DepthStencilState returns the cached state for stage at the current
// depth. The material does not influence the 2D states.
func (m *Manager) DepthStencilState(stage Stage, _ *material.Material) *DepthStencil {
	key := m.StencilHash(stage)
	if ds, ok := m.cache[key]; ok {
		return ds
	}
	ds := m.build(stage)
	m.cache[key] = ds
	return ds
}

func (m *Manager) build(stage Stage) *DepthStencil {
	ds := &DepthStencil{
		DepthStencilState: hal.DepthStencilState{
			Format:       DefaultFormat,
			DepthCompare: gputypes.CompareFunctionAlways,
		},
	}

	var face hal.StencilFaceState
	switch stage {
	case Enabled:
		face = faceState(gputypes.CompareFunctionEqual, hal.StencilOperationKeep)
	case Clear:
		face = faceState(gputypes.CompareFunctionNever, hal.StencilOperationZero)
	case ClearInverted, EnterLevel:
		face = faceState(gputypes.CompareFunctionNever, hal.StencilOperationReplace)
	case EnterLevelInverted:
		face = faceState(gputypes.CompareFunctionNever, hal.StencilOperationZero)
	default:
		// Disabled and ExitLevel leave the stencil buffer untouched.
		ds.StencilFront = faceState(gputypes.CompareFunctionAlways, hal.StencilOperationKeep)
		ds.StencilBack = ds.StencilFront
		return ds
	}

	ds.StencilTest = true
	ds.StencilFront = face
	ds.StencilBack = face
	ds.Ref = m.ref()
	if stage == Enabled {
		ds.StencilReadMask = ds.Ref
		ds.StencilWriteMask = ds.Ref
	} else {
		ds.StencilReadMask = m.writeMask()
		ds.StencilWriteMask = m.writeMask()
	}
	return ds
}

// faceState applies op on stencil failure and keeps the value otherwise.
func faceState(cmp gputypes.CompareFunction, op hal.StencilOperation) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     cmp,
		FailOp:      op,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
}
