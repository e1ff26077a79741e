// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

// Scene collects the batches a frame submits for one root of the scene
// graph. The host renderer draws them in insertion order.
//
// Scene does not own its batches; they belong to the pool of the batcher
// that produced them and are removed again when that batcher resets.
type Scene struct {
	batches []*DrawBatch
}

// NewScene creates an empty Scene.
func NewScene() *Scene {
	return &Scene{batches: make([]*DrawBatch, 0, 16)}
}

// AddBatch appends b.
func (s *Scene) AddBatch(b *DrawBatch) {
	s.batches = append(s.batches, b)
}

// RemoveBatch removes the first occurrence of b, keeping order.
func (s *Scene) RemoveBatch(b *DrawBatch) {
	for i, cur := range s.batches {
		if cur == b {
			copy(s.batches[i:], s.batches[i+1:])
			s.batches[len(s.batches)-1] = nil
			s.batches = s.batches[:len(s.batches)-1]
			return
		}
	}
}

// RemoveBatches removes every batch in bs, keeping order.
func (s *Scene) RemoveBatches(bs []*DrawBatch) {
	if len(bs) == 0 || len(s.batches) == 0 {
		return
	}
	drop := make(map[*DrawBatch]struct{}, len(bs))
	for _, b := range bs {
		drop[b] = struct{}{}
	}
	kept := s.batches[:0]
	for _, b := range s.batches {
		if _, ok := drop[b]; !ok {
			kept = append(kept, b)
		}
	}
	for i := len(kept); i < len(s.batches); i++ {
		s.batches[i] = nil
	}
	s.batches = kept
}

// Batches returns the batches in submission order. The slice must not be
// modified.
func (s *Scene) Batches() []*DrawBatch {
	return s.batches
}

// Reset removes all batches.
func (s *Scene) Reset() {
	for i := range s.batches {
		s.batches[i] = nil
	}
	s.batches = s.batches[:0]
}

// IsEmpty returns true if the scene holds no batches.
func (s *Scene) IsEmpty() bool {
	return len(s.batches) == 0
}

// BatchCount returns the number of batches in the scene.
func (s *Scene) BatchCount() int {
	return len(s.batches)
}
