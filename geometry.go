package batch2d

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/batch2d/multiplex"
	"github.com/gogpu/batch2d/scene"
)

// fillVertexBuffers writes the world-space positions of d's local
// vertices into the position lanes of its vertex view.
func fillVertexBuffers(world mgl32.Mat4, d *scene.DrawInfo) {
	vb := d.VB()
	stride := d.Stride()
	for i, p := range d.LocalPositions() {
		off := i*stride + scene.OffsetPosition
		if off+3 > len(vb) {
			break
		}
		w := mgl32.TransformCoordinate(p, world)
		vb[off], vb[off+1], vb[off+2] = w[0], w[1], w[2]
	}
}

// fillColor writes the entity tint and accumulated opacity into the
// color lanes of every vertex of d.
func fillColor(e *scene.RenderEntity, d *scene.DrawInfo) {
	c := e.Color()
	r := float32(c.R) / 255
	g := float32(c.G) / 255
	bl := float32(c.B) / 255
	a := e.Opacity()

	vb := d.VB()
	stride := d.Stride()
	for off := scene.OffsetColor; off+4 <= len(vb); off += stride {
		vb[off], vb[off+1], vb[off+2], vb[off+3] = r, g, bl, a
	}
}

// fillIndexBuffers appends d's indices to its mesh buffer.
func fillIndexBuffers(d *scene.DrawInfo) error {
	return d.MeshBuffer().AppendIndices(d.IB())
}

// stampSlot encodes the multiplex slot into the red color lane of every
// vertex of d.
func stampSlot(e *scene.RenderEntity, d *scene.DrawInfo, slot int) {
	v := multiplex.EncodeSlot(float32(e.Color().R)/255, slot)
	vb := d.VB()
	for off := scene.OffsetColor; off < len(vb); off += d.Stride() {
		vb[off] = v
	}
}
