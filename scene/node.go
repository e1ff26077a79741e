package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/batch2d/render"
)

// LayerUI2D is the default visibility layer of 2D nodes.
const LayerUI2D uint32 = 1 << 25

// Changed flags reported by Node.ChangedFlags.
const (
	// TransformChanged is set when the world transform changed this frame.
	TransformChanged uint32 = 1 << iota
)

// Node is a scene-graph node. A parent owns its children.
//
// Node is not safe for concurrent use.
type Node struct {
	// Name identifies the node in logs.
	Name string

	// RenderScene receives the batches built for the subtree when the
	// node is a root. It is ignored on other nodes.
	RenderScene *render.Scene

	parent   *Node
	children []*Node
	entity   *RenderEntity

	active bool
	layer  uint32

	// localOpacity is the node's own opacity; finalOpacity is the product
	// along the path from the root, written during traversal.
	localOpacity float32
	finalOpacity float32
	colorDirty   bool

	local          mgl32.Mat4
	world          mgl32.Mat4
	transformDirty bool
	changedFlags   uint32
}

// NewNode creates an active node with an identity transform and full
// opacity. A new node is color dirty so its first frame fills colors.
func NewNode(name string) *Node {
	return &Node{
		Name:           name,
		active:         true,
		layer:          LayerUI2D,
		localOpacity:   1,
		finalOpacity:   1,
		colorDirty:     true,
		local:          mgl32.Ident4(),
		world:          mgl32.Ident4(),
		transformDirty: true,
	}
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the children in paint order. The slice must not be
// modified.
func (n *Node) Children() []*Node { return n.children }

// AddChild appends c, detaching it from its previous parent.
func (n *Node) AddChild(c *Node) {
	if c == nil || c == n {
		return
	}
	if c.parent != nil {
		c.parent.RemoveChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
	c.invalidate()
}

// RemoveChild detaches c.
func (n *Node) RemoveChild(c *Node) {
	for i, cur := range n.children {
		if cur == c {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			c.parent = nil
			c.invalidate()
			return
		}
	}
}

// SetActive enables or disables the node and its subtree.
func (n *Node) SetActive(active bool) { n.active = active }

// Active reports the node's own active flag.
func (n *Node) Active() bool { return n.active }

// ActiveInHierarchy reports whether the node and all its ancestors are
// active.
func (n *Node) ActiveInHierarchy() bool {
	for cur := n; cur != nil; cur = cur.parent {
		if !cur.active {
			return false
		}
	}
	return true
}

// Layer returns the visibility layer mask.
func (n *Node) Layer() uint32 { return n.layer }

// SetLayer sets the visibility layer mask.
func (n *Node) SetLayer(layer uint32) { n.layer = layer }

// LocalOpacity returns the node's own opacity.
func (n *Node) LocalOpacity() float32 { return n.localOpacity }

// SetOpacity sets the node's own opacity and marks its color dirty.
func (n *Node) SetOpacity(opacity float32) {
	n.localOpacity = opacity
	n.colorDirty = true
}

// FinalOpacity returns the opacity computed by the last traversal.
func (n *Node) FinalOpacity() float32 { return n.finalOpacity }

// SetFinalOpacity records the traversal result.
func (n *Node) SetFinalOpacity(opacity float32) { n.finalOpacity = opacity }

// ColorDirty reports whether the node's color changed since the last
// traversal.
func (n *Node) ColorDirty() bool { return n.colorDirty }

// SetColorDirty sets the color-dirty latch.
func (n *Node) SetColorDirty(dirty bool) { n.colorDirty = dirty }

// Entity returns the drawable attached to the node, or nil.
func (n *Node) Entity() *RenderEntity { return n.entity }

// SetEntity attaches e, replacing any previous drawable.
func (n *Node) SetEntity(e *RenderEntity) {
	if n.entity != nil {
		n.entity.node = nil
	}
	n.entity = e
	if e != nil {
		if e.node != nil && e.node != n {
			e.node.entity = nil
		}
		e.node = n
	}
}

// LocalTransform returns the transform relative to the parent.
func (n *Node) LocalTransform() mgl32.Mat4 { return n.local }

// SetLocalTransform sets the transform relative to the parent.
func (n *Node) SetLocalTransform(m mgl32.Mat4) {
	n.local = m
	n.invalidate()
}

// invalidate marks the world transform of n and its subtree stale.
func (n *Node) invalidate() {
	n.transformDirty = true
	n.changedFlags |= TransformChanged
	for _, c := range n.children {
		c.invalidate()
	}
}

// TransformDirty reports whether the world transform is stale.
func (n *Node) TransformDirty() bool { return n.transformDirty }

// ChangedFlags returns the flags set since the last ClearChangedFlags.
func (n *Node) ChangedFlags() uint32 { return n.changedFlags }

// ClearChangedFlags resets the changed flags of n and its subtree. Hosts
// call it once per frame after rendering.
func (n *Node) ClearChangedFlags() {
	n.changedFlags = 0
	for _, c := range n.children {
		c.ClearChangedFlags()
	}
}

// WorldMatrix returns the world transform, recomputing it if stale.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	if !n.transformDirty {
		return n.world
	}
	if n.parent != nil {
		n.world = n.parent.WorldMatrix().Mul4(n.local)
	} else {
		n.world = n.local
	}
	n.transformDirty = false
	return n.world
}
