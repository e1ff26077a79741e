// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stencil

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

type mockMask struct {
	inverted bool
	stage    Stage
}

func (m *mockMask) MaskInverted() bool       { return m.inverted }
func (m *mockMask) SetStencilStage(s Stage) { m.stage = s }

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{Disabled, "Disabled"},
		{EnterLevelInverted, "EnterLevelInverted"},
		{Stage(200), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestManagerNesting(t *testing.T) {
	m := NewManager()
	if m.Stage() != Disabled || m.MaskStackSize() != 0 {
		t.Fatalf("new manager: stage %v depth %d", m.Stage(), m.MaskStackSize())
	}

	m.PushMask()
	m.EnableMask()
	m.PushMask()
	m.EnableMask()
	if m.MaskStackSize() != 2 {
		t.Fatalf("depth = %d, want 2", m.MaskStackSize())
	}

	m.ExitMask()
	if m.Stage() != Enabled {
		t.Errorf("after inner exit stage = %v, want Enabled", m.Stage())
	}
	m.ExitMask()
	if m.Stage() != Disabled {
		t.Errorf("after outer exit stage = %v, want Disabled", m.Stage())
	}

	// Unbalanced exits are ignored.
	m.ExitMask()
	if m.MaskStackSize() != 0 {
		t.Errorf("depth = %d after extra exit", m.MaskStackSize())
	}
}

func TestManagerClearAndEnter(t *testing.T) {
	m := NewManager()
	tests := []struct {
		inverted  bool
		wantClear Stage
		wantEnter Stage
	}{
		{false, Clear, EnterLevel},
		{true, ClearInverted, EnterLevelInverted},
	}
	for _, tt := range tests {
		e := &mockMask{inverted: tt.inverted}
		if got := m.Clear(e); got != tt.wantClear {
			t.Errorf("Clear(inverted=%v) = %v, want %v", tt.inverted, got, tt.wantClear)
		}
		m.EnterLevel(e)
		if e.stage != tt.wantEnter {
			t.Errorf("EnterLevel(inverted=%v) set %v, want %v", tt.inverted, e.stage, tt.wantEnter)
		}
	}
}

func TestManagerDepthStencilState(t *testing.T) {
	m := NewManager()

	off := m.DepthStencilState(Disabled, nil)
	if off.StencilTest {
		t.Error("Disabled state enables the stencil test")
	}
	if off.StencilFront.Compare != gputypes.CompareFunctionAlways {
		t.Errorf("Disabled compare = %v, want Always", off.StencilFront.Compare)
	}

	m.PushMask()
	m.PushMask()

	tests := []struct {
		stage     Stage
		cmp       gputypes.CompareFunction
		failOp    hal.StencilOperation
		writeMask uint32
	}{
		{Clear, gputypes.CompareFunctionNever, hal.StencilOperationZero, 0b10},
		{ClearInverted, gputypes.CompareFunctionNever, hal.StencilOperationReplace, 0b10},
		{EnterLevel, gputypes.CompareFunctionNever, hal.StencilOperationReplace, 0b10},
		{EnterLevelInverted, gputypes.CompareFunctionNever, hal.StencilOperationZero, 0b10},
		{Enabled, gputypes.CompareFunctionEqual, hal.StencilOperationKeep, 0b11},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			ds := m.DepthStencilState(tt.stage, nil)
			if !ds.StencilTest {
				t.Fatal("stencil test disabled")
			}
			if ds.StencilFront.Compare != tt.cmp || ds.StencilFront.FailOp != tt.failOp {
				t.Errorf("front = %+v", ds.StencilFront)
			}
			if ds.StencilBack != ds.StencilFront {
				t.Error("back face differs from front face")
			}
			if ds.StencilWriteMask != tt.writeMask {
				t.Errorf("write mask = %b, want %b", ds.StencilWriteMask, tt.writeMask)
			}
			if ds.Ref != 0b11 {
				t.Errorf("ref = %b, want 11", ds.Ref)
			}
		})
	}
}

func TestManagerStateCache(t *testing.T) {
	m := NewManager()
	m.PushMask()

	a := m.DepthStencilState(Enabled, nil)
	if b := m.DepthStencilState(Enabled, nil); a != b {
		t.Error("same stage and depth should share a state")
	}

	m.PushMask()
	if c := m.DepthStencilState(Enabled, nil); c == a {
		t.Error("a deeper level must not reuse the outer state")
	}
}

func TestManagerStencilHash(t *testing.T) {
	m := NewManager()
	m.PushMask()
	m.PushMask()
	m.PushMask()

	if got, want := m.StencilHash(Enabled), uint32(Enabled)<<8|3; got != want {
		t.Errorf("StencilHash = %#x, want %#x", got, want)
	}
	if m.StencilHash(Clear) == m.StencilHash(EnterLevel) {
		t.Error("distinct stages share a hash")
	}

	m.Reset()
	if m.StencilHash(Disabled) != 0 {
		t.Errorf("StencilHash(Disabled) after Reset = %#x", m.StencilHash(Disabled))
	}
}
