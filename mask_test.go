package batch2d

import (
	"testing"

	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/batch2d/render"
	"github.com/gogpu/batch2d/stencil"
)

// stageOf decodes the stage and depth a batch was drawn with.
func stageOf(b *render.DrawBatch) (stencil.Stage, uint32) {
	h := b.Passes[0].StencilHash
	return stencil.Stage(h >> 8), h & 0xff
}

func isClearBatch(b *render.DrawBatch) bool {
	return b.Model != nil && b.Material != nil && b.Material.EffectName() == material.EffectClearStencil
}

func TestMaskBatchOrder(t *testing.T) {
	f := newFixture(t)
	mat, tex, smp := f.sprite(), f.texture(), f.sampler()

	f.quad(f.root, "before", mat, tex, smp)
	mask, _ := f.quad(f.root, "mask", mat, tex, smp)
	mask.Entity().SetMask(true, false)
	f.quad(mask, "content", mat, tex, smp)
	f.quad(f.root, "after", mat, tex, smp)

	batches := f.frame()
	if len(batches) != 5 {
		t.Fatalf("got %d batches, want 5", len(batches))
	}

	want := []struct {
		clear bool
		stage stencil.Stage
		depth uint32
	}{
		{false, stencil.Disabled, 0},
		{true, stencil.Clear, 1},
		{false, stencil.EnterLevel, 1},
		{false, stencil.Enabled, 1},
		{false, stencil.Disabled, 0},
	}
	for i, w := range want {
		b := batches[i]
		if isClearBatch(b) != w.clear {
			t.Errorf("batch %d clear = %v, want %v", i, isClearBatch(b), w.clear)
		}
		if stage, depth := stageOf(b); stage != w.stage || depth != w.depth {
			t.Errorf("batch %d stage %v depth %d, want %v depth %d", i, stage, depth, w.stage, w.depth)
		}
	}

	if got := f.b.Stencil().MaskStackSize(); got != 0 {
		t.Errorf("mask stack = %d after the frame, want 0", got)
	}
	if got := batches[4].FirstIndex; got != 18 {
		t.Errorf("sprite after mask starts at %d, want 18", got)
	}
}

func TestNestedMasks(t *testing.T) {
	f := newFixture(t)
	mat, tex, smp := f.sprite(), f.texture(), f.sampler()

	outer, _ := f.quad(f.root, "outer", mat, tex, smp)
	outer.Entity().SetMask(true, false)
	inner, _ := f.quad(outer, "inner", mat, tex, smp)
	inner.Entity().SetMask(true, true)
	f.quad(inner, "content", mat, tex, smp)

	batches := f.frame()
	if len(batches) != 5 {
		t.Fatalf("got %d batches, want 5", len(batches))
	}
	want := []stencil.Stage{
		stencil.Clear,
		stencil.EnterLevel,
		stencil.ClearInverted,
		stencil.EnterLevelInverted,
		stencil.Enabled,
	}
	for i, w := range want {
		if stage, _ := stageOf(batches[i]); stage != w {
			t.Errorf("batch %d stage %v, want %v", i, stage, w)
		}
	}
	if _, depth := stageOf(batches[4]); depth != 2 {
		t.Errorf("content depth = %d, want 2", depth)
	}
	if !isClearBatch(batches[2]) {
		t.Error("inner mask not preceded by a stencil clear")
	}
	content := batches[4].Passes[0].DepthStencil
	if !content.StencilTest || content.Ref != 0b11 {
		t.Errorf("content depth-stencil = %+v, want test with ref 0b11", content)
	}
}

func TestMaskWithSorting(t *testing.T) {
	f := newFixture(t, WithSortingCount(1))
	mat, tex, smp := f.sprite(), f.texture(), f.sampler()

	f.quad(f.root, "before", mat, tex, smp)
	mask, _ := f.quad(f.root, "mask", mat, tex, smp)
	mask.Entity().SetMask(true, false)
	f.quad(mask, "content", mat, tex, smp)

	batches := f.frame()
	if len(batches) != 4 {
		t.Fatalf("got %d batches, want 4", len(batches))
	}
	if !isClearBatch(batches[1]) {
		t.Error("queued sprite was not flushed ahead of the mask")
	}
	if stage, _ := stageOf(batches[3]); stage != stencil.Enabled {
		t.Errorf("mask content stage %v, want Enabled", stage)
	}
}

func TestClearModelReused(t *testing.T) {
	f := newFixture(t)
	mat, tex, smp := f.sprite(), f.texture(), f.sampler()
	for range 2 {
		m, _ := f.quad(f.root, "mask", mat, tex, smp)
		m.Entity().SetMask(true, false)
	}

	batches := f.frame()
	var models []*render.Model
	for _, b := range batches {
		if isClearBatch(b) {
			models = append(models, b.Model)
		}
	}
	if len(models) != 2 || models[0] != models[1] {
		t.Errorf("clear batches %d, want 2 sharing one model", len(models))
	}
}

func TestCustomClearMaterial(t *testing.T) {
	dev := newTestDevice(t)
	lib, err := material.NewLibrary(dev)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	t.Cleanup(lib.Close)
	custom := lib.Get(material.DefaultClearStencil).Clone()

	f := newFixtureOn(t, dev, WithClearMaterial(custom))
	m, _ := f.quad(f.root, "mask", f.sprite(), f.texture(), f.sampler())
	m.Entity().SetMask(true, false)

	batches := f.frame()
	if len(batches) == 0 || batches[0].Material != custom {
		t.Error("custom clear material not used")
	}
}

func TestStencilStageCutsEqualState(t *testing.T) {
	f := newFixture(t)
	mat, tex, smp := f.sprite(), f.texture(), f.sampler()

	mask, dm := f.quad(f.root, "mask", mat, tex, smp)
	mask.Entity().SetMask(true, false)
	_, dc := f.quad(mask, "content", mat, tex, smp)
	if dm.DataHash() != dc.DataHash() {
		t.Fatal("mask and content draws should share a data hash")
	}

	batches := f.frame()
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want clear, mask and content", len(batches))
	}
	for i, want := range []stencil.Stage{stencil.EnterLevel, stencil.Enabled} {
		b := batches[i+1]
		if stage, _ := stageOf(b); stage != want || b.IndexCount != 6 {
			t.Errorf("batch %d stage %v count %d, want %v count 6", i+1, stage, b.IndexCount, want)
		}
	}
}
