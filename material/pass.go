// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package material

import (
	"encoding/binary"
	"hash/fnv"
	"sort"

	"github.com/gogpu/batch2d/gpucore"
)

// Binding numbers shared by the built-in 2D layouts.
const (
	// BindingLocal holds the per-entity world transform (local layouts only).
	BindingLocal uint32 = 0

	// BindingSpriteTexture is the sprite texture binding.
	BindingSpriteTexture uint32 = 1

	// BindingSpriteSampler is the sprite sampler binding.
	BindingSpriteSampler uint32 = 2
)

// SamplerProperty locates a named sampled-texture property of a pass:
// the texture binding and the sampler binding that reads it.
type SamplerProperty struct {
	Texture uint32
	Sampler uint32
}

// PassDesc describes a material pass.
type PassDesc struct {
	// Phase names the render phase, e.g. "default".
	Phase string

	// Layout is the descriptor set layout of shared sprite descriptor sets.
	Layout gpucore.DescriptorSetLayoutID

	// LocalLayout is the descriptor set layout of per-entity sets used by
	// entities that render with their own transform.
	LocalLayout gpucore.DescriptorSetLayoutID

	// Properties maps property names ("texture0", ...) to bindings.
	Properties map[string]SamplerProperty
}

// Pass is one render pass of a material. It records the textures and
// samplers bound to its properties; the host renderer realizes them.
//
// Pass is not safe for concurrent use.
type Pass struct {
	phase       string
	layout      gpucore.DescriptorSetLayoutID
	localLayout gpucore.DescriptorSetLayoutID
	properties  map[string]SamplerProperty
	textures    map[uint32]gpucore.TextureID
	samplers    map[uint32]gpucore.SamplerID
	hash        uint32
}

// NewPass creates a pass from desc.
func NewPass(desc PassDesc) *Pass {
	p := &Pass{
		phase:       desc.Phase,
		layout:      desc.Layout,
		localLayout: desc.LocalLayout,
		properties:  make(map[string]SamplerProperty, len(desc.Properties)),
		textures:    make(map[uint32]gpucore.TextureID),
		samplers:    make(map[uint32]gpucore.SamplerID),
	}
	for name, prop := range desc.Properties {
		p.properties[name] = prop
	}
	p.hash = p.computeHash()
	return p
}

// computeHash fingerprints the pipeline-relevant state of the pass.
// Bound resources are excluded: two passes differing only in textures
// share a pipeline.
func (p *Pass) computeHash() uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(p.phase))

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(p.layout))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(p.localLayout))
	_, _ = h.Write(buf[:])

	names := make([]string, 0, len(p.properties))
	for name := range p.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop := p.properties[name]
		_, _ = h.Write([]byte(name))
		binary.LittleEndian.PutUint64(buf[:], uint64(prop.Texture)<<32|uint64(prop.Sampler))
		_, _ = h.Write(buf[:])
	}
	return h.Sum32()
}

// Phase returns the render phase name.
func (p *Pass) Phase() string { return p.phase }

// Layout returns the shared descriptor set layout.
func (p *Pass) Layout() gpucore.DescriptorSetLayoutID { return p.layout }

// LocalLayout returns the per-entity descriptor set layout.
func (p *Pass) LocalLayout() gpucore.DescriptorSetLayoutID { return p.localLayout }

// Hash returns the pipeline-state hash of the pass.
func (p *Pass) Hash() uint32 { return p.hash }

// Property returns the bindings of a named property.
func (p *Pass) Property(name string) (SamplerProperty, bool) {
	prop, ok := p.properties[name]
	return prop, ok
}

// BindTexture records tex at a texture binding.
func (p *Pass) BindTexture(binding uint32, tex gpucore.TextureID) {
	p.textures[binding] = tex
}

// BindSampler records sampler at a sampler binding.
func (p *Pass) BindSampler(binding uint32, sampler gpucore.SamplerID) {
	p.samplers[binding] = sampler
}

// Texture returns the texture bound at binding, or InvalidID.
func (p *Pass) Texture(binding uint32) gpucore.TextureID {
	return p.textures[binding]
}

// Sampler returns the sampler bound at binding, or InvalidID.
func (p *Pass) Sampler(binding uint32) gpucore.SamplerID {
	return p.samplers[binding]
}

// clone returns a deep copy of p, bound resources included.
func (p *Pass) clone() *Pass {
	c := &Pass{
		phase:       p.phase,
		layout:      p.layout,
		localLayout: p.localLayout,
		properties:  make(map[string]SamplerProperty, len(p.properties)),
		textures:    make(map[uint32]gpucore.TextureID, len(p.textures)),
		samplers:    make(map[uint32]gpucore.SamplerID, len(p.samplers)),
		hash:        p.hash,
	}
	for k, v := range p.properties {
		c.properties[k] = v
	}
	for k, v := range p.textures {
		c.textures[k] = v
	}
	for k, v := range p.samplers {
		c.samplers[k] = v
	}
	return c
}
