package scene

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/batch2d/stencil"
)

// EntityType classifies how traversal treats a drawable's subtree.
type EntityType uint8

const (
	// EntityStatic is an ordinary drawable.
	EntityStatic EntityType = iota

	// EntityDynamic is an ordinary drawable whose draw list changes often.
	EntityDynamic

	// EntityCrossed terminates traversal: its children are drawn through
	// sub-node draws instead.
	EntityCrossed
)

// FillColorType selects how vertex colors are written.
type FillColorType uint8

const (
	// FillColor writes the entity color and opacity into every vertex.
	FillColor FillColorType = iota

	// FillVertex keeps the per-vertex colors supplied by the host.
	FillVertex
)

// RenderEntity is the drawable attached to a node. The batcher reads its
// draw list and annotates opacity, color-dirty and stencil fields during
// traversal.
type RenderEntity struct {
	node      *Node
	drawInfos []*DrawInfo

	entityType    EntityType
	fillColorType FillColorType

	color        color.NRGBA
	opacity      float32
	enabled      bool
	vbColorDirty bool

	mask         bool
	maskInverted bool
	stage        stencil.Stage

	useLocal        bool
	renderTransform *mgl32.Mat4

	priority int32
}

var _ stencil.Masked = (*RenderEntity)(nil)

// NewRenderEntity creates an enabled white drawable of type t.
func NewRenderEntity(t EntityType) *RenderEntity {
	return &RenderEntity{
		entityType:   t,
		color:        color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		opacity:      1,
		enabled:      true,
		vbColorDirty: true,
	}
}

// Node returns the node the entity is attached to.
func (e *RenderEntity) Node() *Node { return e.node }

// Type returns the entity type.
func (e *RenderEntity) Type() EntityType { return e.entityType }

// AddDrawInfo appends d to the draw list.
func (e *RenderEntity) AddDrawInfo(d *DrawInfo) {
	e.drawInfos = append(e.drawInfos, d)
}

// SetDrawInfos replaces the draw list.
func (e *RenderEntity) SetDrawInfos(ds ...*DrawInfo) {
	e.drawInfos = append(e.drawInfos[:0], ds...)
}

// DrawInfos returns the draw list in draw order.
func (e *RenderEntity) DrawInfos() []*DrawInfo { return e.drawInfos }

// Color returns the entity color.
func (e *RenderEntity) Color() color.NRGBA { return e.color }

// SetColor sets the entity color and marks vertex colors dirty.
func (e *RenderEntity) SetColor(c color.NRGBA) {
	e.color = c
	e.vbColorDirty = true
	if e.node != nil {
		e.node.colorDirty = true
	}
}

// ColorAlpha returns the color alpha in [0, 1].
func (e *RenderEntity) ColorAlpha() float32 {
	return float32(e.color.A) / 255
}

// Opacity returns the opacity pushed by the last color-dirty traversal.
func (e *RenderEntity) Opacity() float32 { return e.opacity }

// SetOpacity sets the effective opacity.
func (e *RenderEntity) SetOpacity(o float32) { e.opacity = o }

// Enabled reports whether the entity draws.
func (e *RenderEntity) Enabled() bool { return e.enabled }

// SetEnabled enables or disables drawing.
func (e *RenderEntity) SetEnabled(enabled bool) { e.enabled = enabled }

// VBColorDirty reports whether vertex colors must be refilled.
func (e *RenderEntity) VBColorDirty() bool { return e.vbColorDirty }

// SetVBColorDirty sets the vertex-color latch.
func (e *RenderEntity) SetVBColorDirty(dirty bool) { e.vbColorDirty = dirty }

// FillColorType returns the vertex color mode.
func (e *RenderEntity) FillColorType() FillColorType { return e.fillColorType }

// SetFillColorType sets the vertex color mode.
func (e *RenderEntity) SetFillColorType(t FillColorType) { e.fillColorType = t }

// IsMask reports whether the entity opens a stencil mask scope.
func (e *RenderEntity) IsMask() bool { return e.mask }

// SetMask makes the entity a mask. Inverted masks clip their inside.
func (e *RenderEntity) SetMask(mask, inverted bool) {
	e.mask = mask
	e.maskInverted = inverted
}

// MaskInverted reports whether the mask is inverted.
func (e *RenderEntity) MaskInverted() bool { return e.maskInverted }

// StencilStage returns the stage the entity renders with.
func (e *RenderEntity) StencilStage() stencil.Stage { return e.stage }

// SetStencilStage sets the stage the entity renders with.
func (e *RenderEntity) SetStencilStage(s stencil.Stage) { e.stage = s }

// UseLocal reports whether the entity renders with its own transform
// uniform instead of world-space vertices.
func (e *RenderEntity) UseLocal() bool { return e.useLocal }

// SetUseLocal sets the local-transform mode.
func (e *RenderEntity) SetUseLocal(useLocal bool) { e.useLocal = useLocal }

// RenderTransform returns the transform used by local-transform draws:
// the override if one is set, otherwise the node's world matrix.
func (e *RenderEntity) RenderTransform() mgl32.Mat4 {
	if e.renderTransform != nil {
		return *e.renderTransform
	}
	if e.node != nil {
		return e.node.WorldMatrix()
	}
	return mgl32.Ident4()
}

// SetRenderTransform overrides the render transform. Nil removes the
// override.
func (e *RenderEntity) SetRenderTransform(m *mgl32.Mat4) { e.renderTransform = m }

// Priority orders entities when priority sorting is enabled; lower draws
// first.
func (e *RenderEntity) Priority() int32 { return e.priority }

// SetPriority sets the sort priority.
func (e *RenderEntity) SetPriority(p int32) { e.priority = p }
