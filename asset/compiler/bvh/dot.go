package bvh

import (
	"bufio"
	"fmt"
	"io"
)

// WriteDot dumps the tree in Graphviz format. Inner nodes are drawn as
// ellipses, leaves as boxes colored by primitive type.
func WriteDot(w io.Writer, root Node) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph bvh {")
	fmt.Fprintln(bw, "  node [style=filled];")

	id := 0
	var visit func(n Node) int
	visit = func(n Node) int {
		nodeID := id
		id++

		switch node := n.(type) {
		case *LeafNode:
			fmt.Fprintf(bw, "  n%d [shape=box, fillcolor=%q, label=\"%s [%d, %d)\"];\n",
				nodeID, leafColor(node.Type), node.Type, node.Lo, node.Hi)
		case *InnerNode:
			color := "lightblue"
			if node.IsUnaligned() {
				color = "orange"
			}
			fmt.Fprintf(bw, "  n%d [shape=ellipse, fillcolor=%q, label=\"inner\"];\n", nodeID, color)
			for _, child := range node.Children {
				if child == nil {
					continue
				}
				childID := visit(child)
				fmt.Fprintf(bw, "  n%d -> n%d;\n", nodeID, childID)
			}
		}
		return nodeID
	}

	if root != nil {
		visit(root)
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func leafColor(t PrimitiveType) string {
	switch t.Base() {
	case PrimTriangle, PrimMotionTriangle:
		return "palegreen"
	case PrimCurve, PrimMotionCurve:
		return "khaki"
	case PrimPoint, PrimMotionPoint:
		return "pink"
	}
	return "lightgrey"
}
