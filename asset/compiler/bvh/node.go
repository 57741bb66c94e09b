package bvh

import (
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/chewxy/math32"
)

// Node is implemented by InnerNode and LeafNode.
type Node interface {
	IsLeaf() bool
	NumChildren() int
	Child(i int) Node

	// Access the fields shared by both node kinds.
	Base() *NodeBase
}

// NodeBase holds the fields shared by inner and leaf nodes.
type NodeBase struct {
	// World space bounds of every primitive in the subtree.
	Bounds types.BoundBox

	// OR of the visibility masks of the objects in the subtree.
	Visibility uint32

	// Union of the subtree reference time windows.
	TimeFrom float32
	TimeTo   float32

	// Set for unaligned nodes: the frame the node is bounded in and the
	// bounds in that frame.
	AlignedSpace  *types.Transform
	AlignedBounds types.BoundBox

	visibilityValid bool
}

func (n *NodeBase) Base() *NodeBase {
	return n
}

// Returns true if the node is bounded in an oriented frame.
func (n *NodeBase) IsUnaligned() bool {
	return n.AlignedSpace != nil
}

// Mark the node as unaligned.
func (n *NodeBase) SetAlignedSpace(space types.Transform, bounds types.BoundBox) {
	n.AlignedSpace = &space
	n.AlignedBounds = bounds
}

// The bounds a ray is tested against when reaching this node.
func (n *NodeBase) traversalBounds() types.BoundBox {
	if n.AlignedSpace != nil {
		return n.AlignedBounds
	}
	return n.Bounds
}

// An InnerNode has exactly two children.
type InnerNode struct {
	NodeBase
	Children [2]Node
}

// Create an inner node. Children may be nil while a threaded build is still
// filling them in; visibility and time are then computed by UpdateVisibility
// and UpdateTime.
func NewInnerNode(bounds types.BoundBox, left, right Node) *InnerNode {
	n := &InnerNode{
		NodeBase: NodeBase{
			Bounds:   bounds,
			TimeFrom: 0,
			TimeTo:   1,
		},
		Children: [2]Node{left, right},
	}
	if left != nil && right != nil {
		n.adoptChildren()
	}
	return n
}

// Recompute visibility and time from the two children.
func (n *InnerNode) adoptChildren() {
	l, r := n.Children[0].Base(), n.Children[1].Base()
	n.Visibility = l.Visibility | r.Visibility
	n.visibilityValid = l.visibilityValid && r.visibilityValid
	n.TimeFrom = math32.Min(l.TimeFrom, r.TimeFrom)
	n.TimeTo = math32.Max(l.TimeTo, r.TimeTo)
}

func (n *InnerNode) IsLeaf() bool {
	return false
}

func (n *InnerNode) NumChildren() int {
	return len(n.Children)
}

func (n *InnerNode) Child(i int) Node {
	return n.Children[i]
}

// A LeafNode references the slots [Lo, Hi) of the primitive output arrays.
// All primitives in a leaf share the same primitive class.
type LeafNode struct {
	NodeBase
	Lo   int
	Hi   int
	Type PrimitiveType
}

// Create a leaf node.
func NewLeafNode(bounds types.BoundBox, visibility uint32, lo, hi int, primType PrimitiveType) *LeafNode {
	return &LeafNode{
		NodeBase: NodeBase{
			Bounds:          bounds,
			Visibility:      visibility,
			TimeFrom:        0,
			TimeTo:          1,
			visibilityValid: true,
		},
		Lo:   lo,
		Hi:   hi,
		Type: primType,
	}
}

func (n *LeafNode) IsLeaf() bool {
	return true
}

func (n *LeafNode) NumChildren() int {
	return 0
}

func (n *LeafNode) Child(_ int) Node {
	return nil
}

// Number of primitive slots referenced by the leaf.
func (n *LeafNode) NumPrimitives() int {
	return n.Hi - n.Lo
}

// A Stat selects the quantity reduced by SubtreeSize.
type Stat uint8

const (
	StatNodeCount Stat = iota
	StatInnerCount
	StatLeafCount
	StatPrimitiveCount
	StatChildNodeCount
	StatAlignedCount
	StatUnalignedCount
	StatAlignedInnerCount
	StatUnalignedInnerCount
	StatAlignedLeafCount
	StatUnalignedLeafCount
	StatDepth
)

func (s Stat) String() string {
	switch s {
	case StatNodeCount:
		return "nodes"
	case StatInnerCount:
		return "inner nodes"
	case StatLeafCount:
		return "leaves"
	case StatPrimitiveCount:
		return "primitives"
	case StatChildNodeCount:
		return "child nodes"
	case StatAlignedCount:
		return "aligned nodes"
	case StatUnalignedCount:
		return "unaligned nodes"
	case StatAlignedInnerCount:
		return "aligned inner nodes"
	case StatUnalignedInnerCount:
		return "unaligned inner nodes"
	case StatAlignedLeafCount:
		return "aligned leaves"
	case StatUnalignedLeafCount:
		return "unaligned leaves"
	case StatDepth:
		return "depth"
	}
	return "unknown"
}

// Reduce a statistic over the subtree rooted at n.
func SubtreeSize(n Node, stat Stat) int {
	if n == nil {
		return 0
	}

	base := n.Base()
	cnt := 0
	switch stat {
	case StatNodeCount:
		cnt = 1
	case StatInnerCount:
		if !n.IsLeaf() {
			cnt = 1
		}
	case StatLeafCount:
		if n.IsLeaf() {
			cnt = 1
		}
	case StatPrimitiveCount:
		if leaf, ok := n.(*LeafNode); ok {
			cnt = leaf.NumPrimitives()
		}
	case StatChildNodeCount:
		cnt = n.NumChildren()
	case StatAlignedCount:
		if !base.IsUnaligned() {
			cnt = 1
		}
	case StatUnalignedCount:
		if base.IsUnaligned() {
			cnt = 1
		}
	case StatAlignedInnerCount:
		if !n.IsLeaf() && !base.IsUnaligned() {
			cnt = 1
		}
	case StatUnalignedInnerCount:
		if !n.IsLeaf() && base.IsUnaligned() {
			cnt = 1
		}
	case StatAlignedLeafCount:
		if n.IsLeaf() && !base.IsUnaligned() {
			cnt = 1
		}
	case StatUnalignedLeafCount:
		if n.IsLeaf() && base.IsUnaligned() {
			cnt = 1
		}
	case StatDepth:
		depth := 0
		for i := 0; i < n.NumChildren(); i++ {
			if d := SubtreeSize(n.Child(i), stat); d > depth {
				depth = d
			}
		}
		return depth + 1
	}

	for i := 0; i < n.NumChildren(); i++ {
		cnt += SubtreeSize(n.Child(i), stat)
	}
	return cnt
}

// Tear down the subtree in post-order, detaching every child from its
// parent. Returns the number of released nodes.
func DeleteSubtree(n Node) int {
	if n == nil {
		return 0
	}
	released := 1
	if inner, ok := n.(*InnerNode); ok {
		for i, child := range inner.Children {
			released += DeleteSubtree(child)
			inner.Children[i] = nil
		}
	}
	return released
}

// Compute the SAH cost of the subtree. probability is the chance of a ray
// reaching n; pass 1 for the root. A child's probability is its parent's
// scaled by the ratio of their surface areas.
func SubtreeSAHCost(n Node, p Params, probability float32) float32 {
	if n == nil {
		return 0
	}

	numPrims := 0
	if leaf, ok := n.(*LeafNode); ok {
		numPrims = leaf.NumPrimitives()
	}
	sah := probability * p.Cost(n.NumChildren(), numPrims)

	parentArea := n.Base().traversalBounds().SafeArea()
	for i := 0; i < n.NumChildren(); i++ {
		child := n.Child(i)
		childProbability := probability
		if parentArea > 0 {
			childProbability = probability * child.Base().traversalBounds().SafeArea() / parentArea
		}
		sah += SubtreeSAHCost(child, p, childProbability)
	}
	return sah
}

// Recompute inner node visibility as the OR of the children. Results are
// memoized; leaves always carry a valid mask.
func UpdateVisibility(n Node) uint32 {
	base := n.Base()
	if inner, ok := n.(*InnerNode); ok && !base.visibilityValid {
		base.Visibility = UpdateVisibility(inner.Children[0]) | UpdateVisibility(inner.Children[1])
		base.visibilityValid = true
	}
	return base.Visibility
}

// Recompute inner node time windows bottom up as the union of the children.
func UpdateTime(n Node) {
	inner, ok := n.(*InnerNode)
	if !ok {
		return
	}
	UpdateTime(inner.Children[0])
	UpdateTime(inner.Children[1])
	l, r := inner.Children[0].Base(), inner.Children[1].Base()
	inner.TimeFrom = math32.Min(l.TimeFrom, r.TimeFrom)
	inner.TimeTo = math32.Max(l.TimeTo, r.TimeTo)
}

// Invoke fn for every leaf in depth-first left to right order.
func VisitLeaves(n Node, fn func(*LeafNode)) {
	if n == nil {
		return
	}
	if leaf, ok := n.(*LeafNode); ok {
		fn(leaf)
		return
	}
	for i := 0; i < n.NumChildren(); i++ {
		VisitLeaves(n.Child(i), fn)
	}
}
