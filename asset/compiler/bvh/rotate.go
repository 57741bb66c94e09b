package bvh

import (
	"github.com/achilleasa/polaris-bvh/types"
)

// Rotate improves the SAH cost of a tree by swapping a grandchild of each
// inner node with the node's other child whenever that shrinks the child it
// moves into. Only nodes up to maxDepth levels below root are visited. The
// pass is repeated until it stops finding rotations or iterations passes have
// run. Leaves keep their primitives. Returns the number of rotations.
func Rotate(root Node, maxDepth, iterations int) int {
	total := 0
	for i := 0; i < iterations; i++ {
		n := rotateNode(root, maxDepth)
		if n == 0 {
			break
		}
		total += n
	}
	return total
}

func rotateNode(node Node, maxDepth int) int {
	parent, ok := node.(*InnerNode)
	if !ok || maxDepth < 0 {
		return 0
	}

	rotations := 0
	for _, child := range parent.Children {
		rotations += rotateNode(child, maxDepth-1)
	}

	// Unaligned bounds would go stale if the children of the node changed.
	if parent.IsUnaligned() {
		return rotations
	}

	bounds := [2]types.BoundBox{parent.Children[0].Base().Bounds, parent.Children[1].Base().Bounds}
	area := [2]float32{bounds[0].SafeHalfArea(), bounds[1].SafeHalfArea()}

	var (
		bestCost   float32
		bestChild  = -1
		bestTarget = -1
	)
	for c := 0; c < 2; c++ {
		child, ok := parent.Children[c].(*InnerNode)
		if !ok || child.IsUnaligned() {
			continue
		}
		other := bounds[1-c]
		target0 := child.Children[0].Base().Bounds
		target1 := child.Children[1].Base().Bounds

		// Swapping target i with other leaves the child bounding the
		// remaining target and other.
		cost0 := types.Merge(other, target1).SafeHalfArea() - area[c]
		cost1 := types.Merge(target0, other).SafeHalfArea() - area[c]
		if cost0 < bestCost {
			bestCost, bestChild, bestTarget = cost0, c, 0
		}
		if cost1 < bestCost {
			bestCost, bestChild, bestTarget = cost1, c, 1
		}
	}

	if bestChild < 0 {
		return rotations
	}

	child := parent.Children[bestChild].(*InnerNode)
	other := 1 - bestChild
	parent.Children[other], child.Children[bestTarget] = child.Children[bestTarget], parent.Children[other]
	child.Bounds = types.Merge(child.Children[0].Base().Bounds, child.Children[1].Base().Bounds)
	child.adoptChildren()
	UpdateVisibility(child)
	return rotations + 1
}
