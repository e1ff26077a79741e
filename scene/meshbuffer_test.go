package scene

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/batch2d/backend/native"
	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/material"
)

func newTestDevice(t *testing.T) *native.Headless {
	t.Helper()
	dev, err := native.NewHeadless()
	if err != nil {
		t.Fatalf("NewHeadless: %v", err)
	}
	t.Cleanup(dev.Close)
	return dev
}

func newTestMeshBuffer(t *testing.T, desc MeshBufferDesc) *MeshBuffer {
	t.Helper()
	mb, err := NewMeshBuffer(newTestDevice(t), desc)
	if err != nil {
		t.Fatalf("NewMeshBuffer: %v", err)
	}
	t.Cleanup(mb.Destroy)
	return mb
}

func TestMeshBufferAllocate(t *testing.T) {
	mb := newTestMeshBuffer(t, MeshBufferDesc{Label: "test", VertexCapacity: 8, IndexCapacity: 12})

	vb, base, err := mb.Allocate(4)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if base != 0 || len(vb) != 4*VertexStride {
		t.Errorf("first allocation base %d len %d", base, len(vb))
	}

	_, base, err = mb.Allocate(4)
	if err != nil || base != 4 {
		t.Fatalf("second allocation base %d err %v", base, err)
	}

	if _, _, err := mb.Allocate(1); !errors.Is(err, ErrMeshBufferFull) {
		t.Errorf("overflow error = %v, want ErrMeshBufferFull", err)
	}
	if _, _, err := mb.Allocate(0); err == nil {
		t.Error("Allocate(0) should fail")
	}

	// Views do not overlap.
	vb[0] = 42
	if mb.Vertices()[0] != 42 || mb.Vertices()[4*VertexStride] == 42 {
		t.Error("allocation views overlap")
	}

	mb.ResetAllocations()
	if mb.VertexCount() != 0 {
		t.Errorf("VertexCount() = %d after ResetAllocations", mb.VertexCount())
	}
}

func TestMeshBufferIndices(t *testing.T) {
	mb := newTestMeshBuffer(t, MeshBufferDesc{VertexCapacity: 8, IndexCapacity: 8})

	if err := mb.AppendIndices([]uint16{0, 1, 2}); err != nil {
		t.Fatalf("AppendIndices: %v", err)
	}
	if err := mb.AppendIndices([]uint16{2, 1, 3}); err != nil {
		t.Fatalf("AppendIndices: %v", err)
	}
	if mb.IndexOffset() != 6 {
		t.Errorf("IndexOffset() = %d, want 6", mb.IndexOffset())
	}
	if err := mb.AppendIndices([]uint16{0, 1, 2}); !errors.Is(err, ErrMeshBufferFull) {
		t.Errorf("overflow error = %v", err)
	}

	if err := mb.WriteIndices(6, []uint16{7, 7}); err != nil {
		t.Fatalf("WriteIndices: %v", err)
	}
	if mb.IndexOffset() != 6 {
		t.Error("WriteIndices moved the offset")
	}

	mb.SetIndexOffset(100)
	if mb.IndexOffset() != 8 {
		t.Errorf("SetIndexOffset not clamped: %d", mb.IndexOffset())
	}

	mb.SetDirty(true)
	if err := mb.UploadBuffers(); err != nil {
		t.Errorf("UploadBuffers: %v", err)
	}
	mb.Reset()
	if mb.IndexOffset() != 0 || mb.Dirty() {
		t.Error("Reset did not rewind")
	}
}

func TestMeshBufferIAPool(t *testing.T) {
	mb := newTestMeshBuffer(t, MeshBufferDesc{VertexCapacity: 4, IndexCapacity: 6, MaxIA: 2})

	a, err := mb.RequireFreeIA()
	if err != nil {
		t.Fatalf("RequireFreeIA: %v", err)
	}
	b, err := mb.RequireFreeIA()
	if err != nil || a == b {
		t.Fatalf("second IA %d (first %d) err %v", b, a, err)
	}
	if ia, err := mb.RequireFreeIA(); err == nil || ia != gpucore.InvalidID {
		t.Errorf("exhausted pool returned %d, %v", ia, err)
	}

	mb.ResetIA()
	if again, _ := mb.RequireFreeIA(); again != a {
		t.Error("ResetIA should hand out the same assemblers again")
	}
	if mb.InputAssemblersInUse() != 1 {
		t.Errorf("InputAssemblersInUse() = %d", mb.InputAssemblersInUse())
	}
}

func TestUint16BytesPadding(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 4},
		{2, 4},
		{3, 8},
		{6, 12},
	}
	for _, tt := range tests {
		if got := len(uint16Bytes(make([]uint16, tt.n))); got != tt.want {
			t.Errorf("len(uint16Bytes(%d)) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func quad() []mgl32.Vec3 {
	return []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}
}

func TestDrawInfoSetQuads(t *testing.T) {
	mb := newTestMeshBuffer(t, MeshBufferDesc{VertexCapacity: 8, IndexCapacity: 12})

	first := NewDrawInfo(DrawComponent)
	if err := first.SetQuads(mb, quad(), nil, []uint16{0, 1, 2, 2, 1, 3}); err != nil {
		t.Fatalf("SetQuads: %v", err)
	}
	second := NewDrawInfo(DrawComponent)
	uvs := []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	if err := second.SetQuads(mb, quad(), uvs, []uint16{0, 1, 2, 2, 1, 3}); err != nil {
		t.Fatalf("SetQuads: %v", err)
	}

	if got := second.IB()[0]; got != 4 {
		t.Errorf("second draw first index = %d, want 4", got)
	}
	if second.VBCount() != 4 || second.IBCount() != 6 || second.Stride() != VertexStride {
		t.Errorf("counts vb=%d ib=%d", second.VBCount(), second.IBCount())
	}
	if second.VB()[3*VertexStride+OffsetUV] != 1 {
		t.Error("uv not written")
	}
	if !second.VertDirty() || second.SelfContained() || second.MeshBuffer() != mb {
		t.Error("shared draw state wrong")
	}

	bad := NewDrawInfo(DrawComponent)
	if err := bad.SetQuads(mb, quad()[:2], nil, []uint16{0, 1, 2}); err == nil {
		t.Error("out-of-range index accepted")
	}
	if mb.VertexCount() != 8 {
		t.Errorf("rejected draw allocated vertices: %d", mb.VertexCount())
	}
}

func TestDrawInfoDataHash(t *testing.T) {
	mat := material.New(material.EffectSprite)

	a := NewDrawInfo(DrawComponent)
	a.SetRenderState(mat, 1, 2)
	b := NewDrawInfo(DrawComponent)
	b.SetRenderState(mat, 1, 2)
	c := NewDrawInfo(DrawComponent)
	c.SetRenderState(mat, 3, 2)

	if a.DataHash() == 0 {
		t.Fatal("computed data hash is zero")
	}
	if a.DataHash() != b.DataHash() {
		t.Error("equal render state hashed differently")
	}
	if a.DataHash() == c.DataHash() {
		t.Error("different textures share a hash")
	}

	mult := material.New(material.EffectSpriteMultiplex)
	m1 := NewDrawInfo(DrawComponent)
	m1.SetRenderState(mult, 1, 2)
	m2 := NewDrawInfo(DrawComponent)
	m2.SetRenderState(mult, 5, 2)
	if m1.DataHash() != m2.DataHash() {
		t.Error("multiplexed draws should hash independently of their texture")
	}

	a.SetDataHash(0)
	if a.DataHash() != 0 {
		t.Error("SetDataHash ignored")
	}
}

func TestDrawInfoSelfContained(t *testing.T) {
	dev := newTestDevice(t)

	d := NewDrawInfo(DrawComponent)
	d.SetSelfContained(make([]float32, 4*VertexStride), []uint16{0, 1, 2, 2, 1, 3}, 0, 6)
	if !d.SelfContained() || d.IndexOffset() != 0 || d.IBCount() != 6 {
		t.Fatal("self-contained state wrong")
	}

	ia1, err := d.RequestIA(dev)
	if err != nil {
		t.Fatalf("RequestIA: %v", err)
	}
	ia2, err := d.RequestIA(dev)
	if err != nil || ia1 == ia2 {
		t.Fatalf("second RequestIA %d (first %d) err %v", ia2, ia1, err)
	}
	if err := d.UploadBuffers(); err != nil {
		t.Errorf("UploadBuffers: %v", err)
	}

	d.ResetMeshIA()
	if again, _ := d.RequestIA(dev); again != ia1 {
		t.Error("ResetMeshIA should recycle assemblers")
	}

	d.Destroy()
	if s := dev.Stats(); s.Buffers != 0 || s.InputAssemblers != 0 {
		t.Errorf("Destroy left %+v", s)
	}

	empty := NewDrawInfo(DrawComponent)
	empty.SetSelfContained(nil, nil, 0, 0)
	if _, err := empty.RequestIA(dev); err == nil {
		t.Error("RequestIA without geometry should fail")
	}
}

func TestDrawInfoLocalDescriptorSet(t *testing.T) {
	dev := newTestDevice(t)
	lib, err := material.NewLibrary(dev)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	defer lib.Close()

	d := NewDrawInfo(DrawComponent)
	ds, err := d.UpdateLocalDescriptorSet(dev, mgl32.Translate3D(1, 2, 3), lib.LocalLayout())
	if err != nil {
		t.Fatalf("UpdateLocalDescriptorSet: %v", err)
	}
	if ds == gpucore.InvalidID || d.LocalDescriptorSet() != ds {
		t.Fatal("local descriptor set not recorded")
	}

	again, err := d.UpdateLocalDescriptorSet(dev, mgl32.Ident4(), lib.LocalLayout())
	if err != nil || again != ds {
		t.Errorf("second update returned %d, %v; want reuse of %d", again, err, ds)
	}

	d.Destroy()
	if d.LocalDescriptorSet() != gpucore.InvalidID {
		t.Error("Destroy kept the local set")
	}
}

func TestDrawTypeString(t *testing.T) {
	if DrawMiddleware.String() != "Middleware" || DrawType(9).String() != "Unknown" {
		t.Error("unexpected DrawType names")
	}
}
