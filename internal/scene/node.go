// Package scene is the small scene graph deskmirror places window proxies in.
// Nodes carry a translation and a per-axis scale; rotation is not modeled.
package scene

import (
	"github.com/bryanchriswhite/DeskMirror/internal/engine"
	"golang.org/x/image/math/f64"
)

// One is the identity scale
var One = f64.Vec3{1, 1, 1}

// Material is what a renderer needs to draw a node's surface
type Material struct {
	Texture *engine.Texture
	Visible bool
}

// Node is one element of the scene tree
type Node struct {
	Name          string
	LocalPosition f64.Vec3
	LocalScale    f64.Vec3
	Material      Material

	parent    *Node
	children  []*Node
	destroyed bool
}

// NewNode creates a detached node with unit scale
func NewNode(name string) *Node {
	return &Node{Name: name, LocalScale: One}
}

// Parent returns the parent node, nil for a root
func (n *Node) Parent() *Node { return n.parent }

// Children returns the direct children
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// AddChild reparents c under n
func (n *Node) AddChild(c *Node) {
	if c.parent != nil {
		c.parent.detach(c)
	}
	c.parent = n
	n.children = append(n.children, c)
}

func (n *Node) detach(c *Node) {
	for i, child := range n.children {
		if child == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	c.parent = nil
}

// Destroy detaches n from its parent and marks n and its subtree destroyed
func (n *Node) Destroy() {
	if n.parent != nil {
		n.parent.detach(n)
	}
	n.markDestroyed()
}

func (n *Node) markDestroyed() {
	n.destroyed = true
	for _, c := range n.children {
		c.markDestroyed()
	}
	n.children = nil
}

// Destroyed reports whether Destroy was called on n or an ancestor
func (n *Node) Destroyed() bool { return n.destroyed }

// LossyScale is the accumulated scale from the root down to n
func (n *Node) LossyScale() f64.Vec3 {
	s := n.LocalScale
	for p := n.parent; p != nil; p = p.parent {
		s = Mul(s, p.LocalScale)
	}
	return s
}

// WorldPosition is n's origin in root space
func (n *Node) WorldPosition() f64.Vec3 {
	if n.parent == nil {
		return n.LocalPosition
	}
	return Add(n.parent.WorldPosition(), Mul(n.parent.LossyScale(), n.LocalPosition))
}

// WorldToLocalVector maps a world-space direction into n's local space.
// Axes with zero scale map to zero.
func (n *Node) WorldToLocalVector(v f64.Vec3) f64.Vec3 {
	return Div(v, n.LossyScale())
}

// Walk visits n and its descendants depth first, parents before children
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}
