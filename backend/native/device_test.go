// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"testing"

	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

func newTestDevice(t *testing.T) *Headless {
	t.Helper()
	h, err := NewHeadless()
	if err != nil {
		t.Fatalf("NewHeadless: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

func TestNewHALDevice_Nil(t *testing.T) {
	if _, err := NewHALDevice(nil, nil); !errors.Is(err, ErrNilDevice) {
		t.Fatalf("NewHALDevice(nil, nil) error = %v, want ErrNilDevice", err)
	}
}

func TestHALDevice_BufferLifecycle(t *testing.T) {
	d := newTestDevice(t)

	id, err := d.CreateBuffer(&gpucore.BufferDesc{
		Label: "vb",
		Size:  64,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if id == gpucore.InvalidID {
		t.Fatal("CreateBuffer returned InvalidID")
	}

	if err := d.WriteBuffer(id, 0, make([]byte, 64)); err != nil {
		t.Errorf("WriteBuffer in range: %v", err)
	}
	if err := d.WriteBuffer(id, 32, make([]byte, 64)); err == nil {
		t.Error("WriteBuffer past the end should fail")
	}

	d.DestroyBuffer(id)
	if err := d.WriteBuffer(id, 0, []byte{1}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("WriteBuffer after destroy error = %v, want ErrUnknownResource", err)
	}
	// Destroying twice is a silent no-op.
	d.DestroyBuffer(id)
}

func TestHALDevice_ZeroSize(t *testing.T) {
	d := newTestDevice(t)

	if _, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 0}); !errors.Is(err, ErrZeroSize) {
		t.Errorf("CreateBuffer(size 0) error = %v, want ErrZeroSize", err)
	}
	if _, err := d.CreateTexture(&gpucore.TextureDesc{Format: gputypes.TextureFormatRGBA8Unorm}); !errors.Is(err, ErrZeroSize) {
		t.Errorf("CreateTexture(0x0) error = %v, want ErrZeroSize", err)
	}
}

func TestHALDevice_IDsAreUnique(t *testing.T) {
	d := newTestDevice(t)

	seen := make(map[uint64]bool)
	for i := 0; i < 8; i++ {
		id, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 4, Usage: gputypes.BufferUsageVertex})
		if err != nil {
			t.Fatalf("CreateBuffer: %v", err)
		}
		if seen[uint64(id)] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[uint64(id)] = true
	}
}

func TestHALDevice_WriteTexture(t *testing.T) {
	d := newTestDevice(t)

	tests := []struct {
		name    string
		format  gputypes.TextureFormat
		data    int
		wantErr bool
	}{
		{"rgba exact", gputypes.TextureFormatRGBA8Unorm, 2 * 2 * 4, false},
		{"rgba short", gputypes.TextureFormatRGBA8Unorm, 3, true},
		{"r8 exact", gputypes.TextureFormatR8Unorm, 2 * 2, false},
		{"unsupported", gputypes.TextureFormatDepth24PlusStencil8, 64, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := d.CreateTexture(&gpucore.TextureDesc{Width: 2, Height: 2, Format: tt.format})
			if err != nil {
				t.Fatalf("CreateTexture: %v", err)
			}
			defer d.DestroyTexture(id)

			err = d.WriteTexture(id, make([]byte, tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("WriteTexture error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHALDevice_DescriptorSet(t *testing.T) {
	d := newTestDevice(t)

	layout, err := d.CreateDescriptorSetLayout(&gpucore.DescriptorSetLayoutDesc{
		Label: "sprite",
		Entries: []gpucore.LayoutEntry{
			{Binding: 0, Type: gpucore.BindingTypeUniformBuffer},
			{Binding: 1, Type: gpucore.BindingTypeTexture},
			{Binding: 2, Type: gpucore.BindingTypeSampler},
		},
	})
	if err != nil {
		t.Fatalf("CreateDescriptorSetLayout: %v", err)
	}

	ub, _ := d.CreateBuffer(&gpucore.BufferDesc{Size: 64, Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst})
	tex, _ := d.CreateTexture(&gpucore.TextureDesc{Width: 1, Height: 1, Format: gputypes.TextureFormatRGBA8Unorm})
	smp, _ := d.CreateSampler(&gpucore.SamplerDesc{
		MagFilter:   gputypes.FilterModeLinear,
		MinFilter:   gputypes.FilterModeLinear,
		AddressMode: gputypes.AddressModeClampToEdge,
	})

	set, err := d.CreateDescriptorSet(layout)
	if err != nil {
		t.Fatalf("CreateDescriptorSet: %v", err)
	}
	if d.BindGroup(set) != nil {
		t.Error("bind group should not exist before UpdateDescriptorSet")
	}

	d.BindBuffer(set, 0, ub, 0, 64)
	d.BindTexture(set, 1, tex)
	d.BindSampler(set, 2, smp)
	if err := d.UpdateDescriptorSet(set); err != nil {
		t.Fatalf("UpdateDescriptorSet: %v", err)
	}
	if d.BindGroup(set) == nil {
		t.Error("bind group missing after UpdateDescriptorSet")
	}

	// Rebinding and updating again replaces the bind group.
	d.BindTexture(set, 1, tex)
	if err := d.UpdateDescriptorSet(set); err != nil {
		t.Fatalf("second UpdateDescriptorSet: %v", err)
	}

	// A binding the layout does not declare is rejected.
	d.BindSampler(set, 7, smp)
	if err := d.UpdateDescriptorSet(set); err == nil {
		t.Error("UpdateDescriptorSet with undeclared binding should fail")
	}

	d.DestroyDescriptorSet(set)
	if err := d.UpdateDescriptorSet(set); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("UpdateDescriptorSet after destroy error = %v, want ErrUnknownResource", err)
	}
}

func TestHALDevice_DescriptorSetUnknownLayout(t *testing.T) {
	d := newTestDevice(t)

	if _, err := d.CreateDescriptorSet(42); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("CreateDescriptorSet(unknown) error = %v, want ErrUnknownResource", err)
	}
}

func TestHALDevice_InputAssembler(t *testing.T) {
	d := newTestDevice(t)

	vb, _ := d.CreateBuffer(&gpucore.BufferDesc{Size: 48, Usage: gputypes.BufferUsageVertex})
	ib, _ := d.CreateBuffer(&gpucore.BufferDesc{Size: 12, Usage: gputypes.BufferUsageIndex})

	attrs := []gpucore.Attribute{{Name: "a_position", Format: gputypes.VertexFormatFloat32x3}}
	id, err := d.CreateInputAssembler(&gpucore.InputAssemblerDesc{
		Attributes:   attrs,
		VertexBuffer: vb,
		IndexBuffer:  ib,
		IndexFormat:  gputypes.IndexFormatUint16,
	})
	if err != nil {
		t.Fatalf("CreateInputAssembler: %v", err)
	}

	// The recorded description must not alias the caller's slice.
	attrs[0].Name = "changed"
	desc, ok := d.InputAssembler(id)
	if !ok {
		t.Fatal("InputAssembler not found")
	}
	if desc.Attributes[0].Name != "a_position" {
		t.Errorf("attribute name = %q, want a_position", desc.Attributes[0].Name)
	}

	if _, err := d.CreateInputAssembler(&gpucore.InputAssemblerDesc{VertexBuffer: 999}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("CreateInputAssembler(unknown vb) error = %v, want ErrUnknownResource", err)
	}

	d.DestroyInputAssembler(id)
	if got := d.Stats().InputAssemblers; got != 0 {
		t.Errorf("InputAssemblers = %d, want 0", got)
	}
}

// mockProvider is a gpucontext.DeviceProvider without HAL access.
type mockProvider struct{}

func (mockProvider) Device() gpucontext.Device             { return nil }
func (mockProvider) Queue() gpucontext.Queue               { return nil }
func (mockProvider) Adapter() gpucontext.Adapter           { return nil }
func (mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (mockProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

// mockHALProvider exposes the HAL objects of a headless device.
type mockHALProvider struct {
	mockProvider
	h *Headless
}

func (p mockHALProvider) HalDevice() any { return p.h.HALDevice.device }
func (p mockHALProvider) HalQueue() any  { return p.h.HALDevice.queue }

func TestFromProvider(t *testing.T) {
	if _, err := FromProvider(nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("FromProvider(nil) error = %v, want ErrNilDevice", err)
	}
	if _, err := FromProvider(mockProvider{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("FromProvider(no hal) error = %v, want ErrNoHAL", err)
	}

	h := newTestDevice(t)
	d, err := FromProvider(mockHALProvider{h: h})
	if err != nil {
		t.Fatalf("FromProvider: %v", err)
	}
	if _, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 16, Usage: gputypes.BufferUsageVertex}); err != nil {
		t.Errorf("CreateBuffer on bridged device: %v", err)
	}
}
