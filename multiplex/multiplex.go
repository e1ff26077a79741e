// Package multiplex packs up to eight textures into one draw.
//
// A multiplexed effect samples eight texture slots and picks one per
// vertex from a slot id that is encoded into the vertex color. Draws with
// different textures but the same multiplexed material therefore merge
// until all slots are taken. Unused slots are bound to a 1x1 transparent
// placeholder so the shader never samples an unbound texture.
package multiplex

import (
	"fmt"
	"math"

	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/gputypes"
)

// MaxSlots is the number of textures one multiplexed draw can sample.
const MaxSlots = material.MultiplexSlots

// EncodeSlot packs slot into a color channel value r in [0, 1]:
// floor(r*100000)*10 + slot. The shader recovers the slot as the value
// modulo 10 and the channel as the quotient scaled back.
func EncodeSlot(r float32, slot int) float32 {
	return float32(math.Floor(float64(r*100000)))*10 + float32(slot)
}

// DecodeSlot reverses EncodeSlot.
func DecodeSlot(v float32) (r float32, slot int) {
	q := math.Floor(float64(v) / 10)
	return float32(q / 100000), int(float64(v) - q*10 + 0.5)
}

// Multiplexer tracks the slot assignment of the current multiplex cycle.
// A cycle starts when a batch run begins on a multiplexed material and
// ends when that batch is emitted.
//
// Materials are cloned per cycle so each emitted batch keeps its own slot
// bindings; the clones are pooled and reused from the first one at every
// Reset.
//
// Multiplexer is not safe for concurrent use.
type Multiplexer struct {
	dev gpucore.Device

	placeholder        gpucore.TextureID
	placeholderSampler gpucore.SamplerID

	textures map[gpucore.TextureID]int
	count    int
	active   bool
	current  *material.Material

	materials []*material.Material
	cache     int

	cycles uint64
}

// New creates a Multiplexer and its placeholder texture on dev.
func New(dev gpucore.Device) (*Multiplexer, error) {
	tex, err := dev.CreateTexture(&gpucore.TextureDesc{
		Label:  "batch2d-multiplex-placeholder",
		Width:  1,
		Height: 1,
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		return nil, fmt.Errorf("multiplex: placeholder texture: %w", err)
	}
	if err := dev.WriteTexture(tex, make([]byte, 4)); err != nil {
		dev.DestroyTexture(tex)
		return nil, fmt.Errorf("multiplex: placeholder texture: %w", err)
	}
	sampler, err := dev.CreateSampler(&gpucore.SamplerDesc{
		Label:       "batch2d-multiplex-placeholder",
		MagFilter:   gputypes.FilterModeNearest,
		MinFilter:   gputypes.FilterModeNearest,
		AddressMode: gputypes.AddressModeClampToEdge,
	})
	if err != nil {
		dev.DestroyTexture(tex)
		return nil, fmt.Errorf("multiplex: placeholder sampler: %w", err)
	}
	return &Multiplexer{
		dev:                dev,
		placeholder:        tex,
		placeholderSampler: sampler,
		textures:           make(map[gpucore.TextureID]int, MaxSlots),
	}, nil
}

// Placeholder returns the texture and sampler bound to unused slots.
func (m *Multiplexer) Placeholder() (gpucore.TextureID, gpucore.SamplerID) {
	return m.placeholder, m.placeholderSampler
}

// Eligible reports whether a draw of tex with mat can be multiplexed.
func Eligible(tex gpucore.TextureID, mat *material.Material) bool {
	return tex != gpucore.InvalidID && mat != nil && mat.Multiplexed()
}

// Lookup returns the slot assigned to tex in the current cycle.
func (m *Multiplexer) Lookup(tex gpucore.TextureID) (int, bool) {
	slot, ok := m.textures[tex]
	return slot, ok
}

// Full reports whether every slot is taken.
func (m *Multiplexer) Full() bool { return m.count >= MaxSlots }

// Count returns the number of assigned slots.
func (m *Multiplexer) Count() int { return m.count }

// Active reports whether a cycle is in progress.
func (m *Multiplexer) Active() bool { return m.active }

// Current returns the material of the current cycle, or nil.
func (m *Multiplexer) Current() *material.Material { return m.current }

// Begin starts a cycle for src and returns the pooled copy of src the
// cycle binds its slots on.
func (m *Multiplexer) Begin(src *material.Material) *material.Material {
	var mat *material.Material
	if m.cache < len(m.materials) {
		mat = m.materials[m.cache]
		mat.Copy(src)
	} else {
		mat = src.Clone()
		m.materials = append(m.materials, mat)
	}
	m.cache++
	m.current = mat
	m.active = true
	return mat
}

// Assign gives tex the next free slot and binds it on the current
// material. The caller checks Full first.
func (m *Multiplexer) Assign(tex gpucore.TextureID, sampler gpucore.SamplerID) int {
	slot := m.count
	m.count++
	m.textures[tex] = slot
	m.bind(slot, tex, sampler)
	return slot
}

func (m *Multiplexer) bind(slot int, tex gpucore.TextureID, sampler gpucore.SamplerID) {
	if m.current == nil || len(m.current.Passes()) == 0 {
		return
	}
	pass := m.current.Passes()[0]
	prop, ok := pass.Property(material.SlotProperty(slot))
	if !ok {
		return
	}
	pass.BindTexture(prop.Texture, tex)
	pass.BindSampler(prop.Sampler, sampler)
}

// Next ends the current cycle, binding the placeholder to its unused
// slots.
func (m *Multiplexer) Next() {
	clear(m.textures)
	if m.current != nil {
		for slot := m.count; slot < MaxSlots; slot++ {
			m.bind(slot, m.placeholder, m.placeholderSampler)
		}
		m.cycles++
	}
	m.current = nil
	m.active = false
	m.count = 0
}

// Reset ends the cycle and rewinds the material pool for a new frame.
func (m *Multiplexer) Reset() {
	m.Next()
	m.cache = 0
}

// Cycles returns the number of completed cycles.
func (m *Multiplexer) Cycles() uint64 { return m.cycles }

// PooledMaterials returns the number of pooled material copies.
func (m *Multiplexer) PooledMaterials() int { return len(m.materials) }

// Clear resets the multiplexer, drops the material pool and destroys the
// placeholder.
func (m *Multiplexer) Clear() {
	m.Reset()
	m.materials = nil
	if m.placeholder != gpucore.InvalidID {
		m.dev.DestroyTexture(m.placeholder)
		m.dev.DestroySampler(m.placeholderSampler)
		m.placeholder = gpucore.InvalidID
		m.placeholderSampler = gpucore.InvalidID
	}
}
