// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package material

import (
	"encoding/binary"
	"hash/fnv"
	"strings"
	"sync/atomic"
)

// MultiplexMarker is the effect-name fragment that marks an effect whose
// shader samples up to eight textures selected by a per-vertex slot id.
const MultiplexMarker = "Mult-effect"

// nextID hands out material identities. Zero is never used.
var nextID atomic.Uint64

// Material is an effect plus its passes.
//
// Identity matters to the batcher: two draws merge only when they
// reference the same *Material. Hash compares pipeline state instead and
// is used where equal-but-distinct materials may share a batch.
type Material struct {
	id     uint64
	effect string
	passes []*Pass
	hash   uint32
}

// New creates a material for effect with the given passes.
func New(effect string, passes ...*Pass) *Material {
	m := &Material{
		id:     nextID.Add(1),
		effect: effect,
		passes: passes,
	}
	m.hash = m.computeHash()
	return m
}

func (m *Material) computeHash() uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(m.effect))
	var buf [4]byte
	for _, p := range m.passes {
		binary.LittleEndian.PutUint32(buf[:], p.Hash())
		_, _ = h.Write(buf[:])
	}
	return h.Sum32()
}

// ID returns the process-unique identity of the material.
func (m *Material) ID() uint64 { return m.id }

// EffectName returns the effect the material instantiates.
func (m *Material) EffectName() string { return m.effect }

// Passes returns the material passes. The slice must not be modified.
func (m *Material) Passes() []*Pass { return m.passes }

// Hash returns the pipeline-state hash of the material.
func (m *Material) Hash() uint32 { return m.hash }

// Multiplexed reports whether the effect samples slot-indexed textures.
func (m *Material) Multiplexed() bool {
	return strings.Contains(m.effect, MultiplexMarker)
}

// Copy replaces m's effect and passes with deep copies of src's, keeping
// m's identity.
func (m *Material) Copy(src *Material) {
	m.effect = src.effect
	m.passes = make([]*Pass, len(src.passes))
	for i, p := range src.passes {
		m.passes[i] = p.clone()
	}
	m.hash = src.hash
}

// Clone returns a deep copy of m with a new identity.
func (m *Material) Clone() *Material {
	c := &Material{id: nextID.Add(1)}
	c.Copy(m)
	return c
}
