// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package material

import (
	"fmt"
	"strconv"

	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/gpucontext"
)

// Built-in effect names.
const (
	EffectClearStencil    = "clear-stencil"
	EffectSprite          = "builtin-sprite"
	EffectSpriteMultiplex = "builtin-sprite-" + MultiplexMarker
)

// Built-in material names.
const (
	DefaultClearStencil = "default-clear-stencil"
	UISprite            = "ui-sprite-material"
	UISpriteMultiplex   = "ui-sprite-mult-material"
)

// MultiplexSlots is the number of textures a multiplexed effect samples.
const MultiplexSlots = 8

// multiplexBindingBase is the first binding used by slot textures;
// slot i uses texture binding base+i and sampler binding base+slots+i.
const multiplexBindingBase = 3

// SlotProperty returns the property name of multiplex slot i.
func SlotProperty(i int) string {
	return "texture" + strconv.Itoa(i)
}

// Library owns the built-in 2D materials and their descriptor set
// layouts, and lets hosts register their own materials by name.
//
// Materials are registered as factories in a gpucontext.Registry; the
// built-in factories return shared instances.
type Library struct {
	dev          gpucore.Device
	spriteLayout gpucore.DescriptorSetLayoutID
	localLayout  gpucore.DescriptorSetLayoutID
	reg          *gpucontext.Registry[*Material]
}

// NewLibrary creates the built-in layouts on dev and registers the
// built-in materials.
func NewLibrary(dev gpucore.Device) (*Library, error) {
	if dev == nil {
		return nil, fmt.Errorf("material: nil device")
	}

	spriteLayout, err := dev.CreateDescriptorSetLayout(&gpucore.DescriptorSetLayoutDesc{
		Label: "batch2d-sprite",
		Entries: []gpucore.LayoutEntry{
			{Binding: BindingSpriteTexture, Type: gpucore.BindingTypeTexture},
			{Binding: BindingSpriteSampler, Type: gpucore.BindingTypeSampler},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("material: sprite layout: %w", err)
	}

	localLayout, err := dev.CreateDescriptorSetLayout(&gpucore.DescriptorSetLayoutDesc{
		Label: "batch2d-local",
		Entries: []gpucore.LayoutEntry{
			{Binding: BindingLocal, Type: gpucore.BindingTypeUniformBuffer},
			{Binding: BindingSpriteTexture, Type: gpucore.BindingTypeTexture},
			{Binding: BindingSpriteSampler, Type: gpucore.BindingTypeSampler},
		},
	})
	if err != nil {
		dev.DestroyDescriptorSetLayout(spriteLayout)
		return nil, fmt.Errorf("material: local layout: %w", err)
	}

	l := &Library{
		dev:          dev,
		spriteLayout: spriteLayout,
		localLayout:  localLayout,
		reg:          gpucontext.NewRegistry[*Material](gpucontext.WithPriority(UISprite)),
	}

	sprite := New(EffectSprite, NewPass(PassDesc{
		Phase:       "default",
		Layout:      spriteLayout,
		LocalLayout: localLayout,
		Properties: map[string]SamplerProperty{
			"mainTexture": {Texture: BindingSpriteTexture, Sampler: BindingSpriteSampler},
		},
	}))

	slots := make(map[string]SamplerProperty, MultiplexSlots)
	for i := 0; i < MultiplexSlots; i++ {
		// #nosec G115 -- i < MultiplexSlots
		slots[SlotProperty(i)] = SamplerProperty{
			Texture: uint32(multiplexBindingBase + i),
			Sampler: uint32(multiplexBindingBase + MultiplexSlots + i),
		}
	}
	multiplexed := New(EffectSpriteMultiplex, NewPass(PassDesc{
		Phase:       "default",
		Layout:      spriteLayout,
		LocalLayout: localLayout,
		Properties:  slots,
	}))

	clearStencil := New(EffectClearStencil, NewPass(PassDesc{
		Phase:       "default",
		LocalLayout: localLayout,
	}))

	l.Register(UISprite, sprite)
	l.Register(UISpriteMultiplex, multiplexed)
	l.Register(DefaultClearStencil, clearStencil)

	return l, nil
}

// Register makes m available under name, replacing any previous entry.
func (l *Library) Register(name string, m *Material) {
	l.reg.Register(name, func() *Material { return m })
}

// Get returns the material registered under name, or nil.
func (l *Library) Get(name string) *Material {
	return l.reg.Get(name)
}

// Default returns the preferred sprite material.
func (l *Library) Default() *Material {
	return l.reg.Best()
}

// Names lists the registered material names.
func (l *Library) Names() []string {
	return l.reg.Available()
}

// SpriteLayout returns the layout of shared sprite descriptor sets.
func (l *Library) SpriteLayout() gpucore.DescriptorSetLayoutID { return l.spriteLayout }

// LocalLayout returns the layout of per-entity descriptor sets.
func (l *Library) LocalLayout() gpucore.DescriptorSetLayoutID { return l.localLayout }

// Close destroys the built-in layouts.
func (l *Library) Close() {
	l.dev.DestroyDescriptorSetLayout(l.localLayout)
	l.dev.DestroyDescriptorSetLayout(l.spriteLayout)
	l.localLayout = gpucore.InvalidID
	l.spriteLayout = gpucore.InvalidID
}
