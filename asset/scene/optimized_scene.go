package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
)

// Bvh nodes are comprised of two Vec3 and two multipurpose int32 parameters
// whose value depends on the node type:
//
// - For inner nodes LData and RData are both >0 and point to the L/R child nodes
// - For leafs:
//   - LData is <= 0 and points to the first primitive slot
//   - RData is >= 0 and contains the count of leaf primitive slots
//
// Children are always stored after their parent so an inner node never has
// a child index of 0.
type BvhNode struct {
	Min   types.Vec3
	LData int32

	Max   types.Vec3
	RData int32
}

// Set bounding box.
func (n *BvhNode) SetBBox(bbox types.BoundBox) {
	n.Min = bbox.Min
	n.Max = bbox.Max
}

// Get bounding box.
func (n *BvhNode) BBox() types.BoundBox {
	return types.Box(n.Min, n.Max)
}

// Set left and right child node indices.
func (n *BvhNode) SetChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Get left and right child node indices.
func (n *BvhNode) GetChildNodes() (left, right uint32) {
	return uint32(n.LData), uint32(n.RData)
}

// Set primitive slot index and count.
func (n *BvhNode) SetPrimitives(firstPrimIndex, count uint32) {
	n.LData = -int32(firstPrimIndex)
	n.RData = int32(count)
}

// Get primitive slot index and count.
func (n *BvhNode) GetPrimitives() (firstPrimIndex, count uint32) {
	return uint32(-n.LData), uint32(n.RData)
}

// Returns true if this is a leaf node.
func (n *BvhNode) IsLeaf() bool {
	return n.LData <= 0
}

// Add offset to indices of child nodes.
func (n *BvhNode) OffsetChildNodes(offset int32) {
	// Ignore leafs
	if n.LData <= 0 {
		return
	}

	n.LData += offset
	n.RData += offset
}

// Add offset to the primitive slot index of leaf nodes.
func (n *BvhNode) OffsetPrimitives(offset int32) {
	if n.LData > 0 {
		return
	}
	n.LData -= offset
}

// Per node data that traversal kernels need besides the bounds.
type NodeInfo struct {
	Visibility uint32
	TimeFrom   float32
	TimeTo     float32

	// Index into the node transform list for unaligned nodes; -1 otherwise.
	TransformIndex int32
}

// An ObjectInstance places the BVH of an object geometry in the scene.
type ObjectInstance struct {
	// Index of the object in the input scene.
	ObjectIndex uint32

	// The BVH tree root for the object geometry. This is shared by all
	// instances of the same geometry.
	BvhRoot uint32

	Visibility uint32

	// World to object transformation used when traversing the object BVH.
	Transform types.Transform
}

type Scene struct {
	BvhNodeList    []BvhNode
	NodeInfoList   []NodeInfo
	NodeTransforms []types.Transform

	// Leaf ordered primitive slots of every packed BVH.
	PrimType   []uint32
	PrimIndex  []int32
	PrimObject []int32
	PrimTime   []bvh.TimeRange

	ObjectInstanceList []ObjectInstance

	// Root of the top level BVH over the object instances; -1 if the scene
	// has no instances. Leaf slots of the top level BVH reference instances
	// through PrimObject.
	TopLevelRoot int32

	// Ids of the builds that produced the packed trees.
	BuildIDs []uuid.UUID
}

// Create an empty scene.
func New() *Scene {
	return &Scene{
		TopLevelRoot: -1,
	}
}

// Append the nodes and primitive slots of a BVH and return the index of its
// root node. Nodes are stored in depth first order.
func (sc *Scene) AppendBVH(tree *bvh.BVH) uint32 {
	primOffset := int32(len(sc.PrimType))
	for _, t := range tree.PrimType {
		sc.PrimType = append(sc.PrimType, uint32(t))
	}
	sc.PrimIndex = append(sc.PrimIndex, tree.PrimIndex...)
	sc.PrimObject = append(sc.PrimObject, tree.PrimObject...)
	sc.PrimTime = append(sc.PrimTime, tree.PrimTime...)
	sc.BuildIDs = append(sc.BuildIDs, tree.ID)

	return sc.packNode(tree.Root, primOffset)
}

func (sc *Scene) packNode(n bvh.Node, primOffset int32) uint32 {
	index := uint32(len(sc.BvhNodeList))
	base := n.Base()

	info := NodeInfo{
		Visibility:     base.Visibility,
		TimeFrom:       base.TimeFrom,
		TimeTo:         base.TimeTo,
		TransformIndex: -1,
	}
	if base.IsUnaligned() {
		info.TransformIndex = int32(len(sc.NodeTransforms))
		sc.NodeTransforms = append(sc.NodeTransforms, types.NodeTransform(base.AlignedBounds, *base.AlignedSpace))
	}

	node := BvhNode{}
	node.SetBBox(base.Bounds)
	sc.BvhNodeList = append(sc.BvhNodeList, node)
	sc.NodeInfoList = append(sc.NodeInfoList, info)

	if n.IsLeaf() {
		leaf := n.(*bvh.LeafNode)
		sc.BvhNodeList[index].SetPrimitives(uint32(int32(leaf.Lo)+primOffset), uint32(leaf.NumPrimitives()))
		return index
	}

	left := sc.packNode(n.Child(0), primOffset)
	right := sc.packNode(n.Child(1), primOffset)
	sc.BvhNodeList[index].SetChildNodes(left, right)
	return index
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Size"})
	table.Append([]string{"BVH", "---", fmtSize(sc.BvhNodeList, sc.NodeInfoList, sc.NodeTransforms)})
	table.Append([]string{"", fmt.Sprintf("Nodes (%d)", len(sc.BvhNodeList)), fmtSize(sc.BvhNodeList)})
	table.Append([]string{"", "Node info", fmtSize(sc.NodeInfoList)})
	table.Append([]string{"", fmt.Sprintf("Unaligned (%d)", len(sc.NodeTransforms)), fmtSize(sc.NodeTransforms)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Primitives", "---", fmtSize(sc.PrimType, sc.PrimIndex, sc.PrimObject, sc.PrimTime)})
	table.Append([]string{"", fmt.Sprintf("Types (%d)", len(sc.PrimType)), fmtSize(sc.PrimType)})
	table.Append([]string{"", "Indices", fmtSize(sc.PrimIndex)})
	table.Append([]string{"", "Objects", fmtSize(sc.PrimObject)})
	table.Append([]string{"", "Time windows", fmtSize(sc.PrimTime)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Instances", "---", fmtSize(sc.ObjectInstanceList)})
	table.Append([]string{"", fmt.Sprintf("Objects (%d)", len(sc.ObjectInstanceList)), fmtSize(sc.ObjectInstanceList)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(sc.BvhNodeList, sc.NodeInfoList, sc.NodeTransforms, sc.PrimType, sc.PrimIndex, sc.PrimObject, sc.PrimTime, sc.ObjectInstanceList), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
