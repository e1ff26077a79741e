// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package stencil tracks nested 2D mask scopes and maps them to
// depth-stencil states.
//
// A mask is drawn in two steps: a clear quad resets the stencil bits of
// the new level (Clear or ClearInverted), then the mask geometry writes
// them (EnterLevel or EnterLevelInverted). Content drawn afterwards is
// tested against the level (Enabled) until the mask scope ends.
package stencil

import (
	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/wgpu/hal"
)

// Stage is a stencil masking state.
type Stage uint8

const (
	// Disabled draws without a stencil test.
	Disabled Stage = iota

	// Clear zeroes the stencil bits of the current level.
	Clear

	// EnterLevel writes the current level where mask geometry is drawn.
	EnterLevel

	// Enabled draws only where every active level is set.
	Enabled

	// ExitLevel marks a mask scope that is being closed.
	ExitLevel

	// ClearInverted sets the stencil bits of the current level.
	ClearInverted

	// EnterLevelInverted zeroes the current level where mask geometry
	// is drawn.
	EnterLevelInverted
)

var stageNames = [...]string{
	Disabled:           "Disabled",
	Clear:              "Clear",
	EnterLevel:         "EnterLevel",
	Enabled:            "Enabled",
	ExitLevel:          "ExitLevel",
	ClearInverted:      "ClearInverted",
	EnterLevelInverted: "EnterLevelInverted",
}

// String returns the stage name.
func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "Unknown"
}

// Masked is a drawable that can open a mask scope.
type Masked interface {
	// MaskInverted reports whether the mask clips its outside.
	MaskInverted() bool

	// SetStencilStage records the stage the drawable renders with.
	SetStencilStage(Stage)
}

// DepthStencil is a resolved depth-stencil state.
//
// The stencil reference is dynamic render-pass state in WebGPU, so it is
// carried next to the pipeline state rather than inside it.
type DepthStencil struct {
	hal.DepthStencilState

	// StencilTest is false when the state leaves the stencil buffer alone.
	StencilTest bool

	// Ref is the stencil reference value.
	Ref uint32
}

// Coordinator is the mask-stage oracle consumed by the batcher.
type Coordinator interface {
	// Stage returns the current stage.
	Stage() Stage

	// MaskStackSize returns the number of open mask scopes.
	MaskStackSize() int

	// PushMask opens a mask scope.
	PushMask()

	// Clear returns the stage used to clear the new level for e.
	Clear(e Masked) Stage

	// EnterLevel sets the stage e writes its level with.
	EnterLevel(e Masked)

	// EnableMask switches to clipped drawing.
	EnableMask()

	// ExitMask closes the innermost mask scope.
	ExitMask()

	// DepthStencilState returns the state for stage at the current depth.
	DepthStencilState(stage Stage, mat *material.Material) *DepthStencil

	// StencilHash identifies the state DepthStencilState returns.
	StencilHash(stage Stage) uint32
}
