package bvh

import (
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
)

// Refit recomputes the node bounds of a built tree after its objects moved or
// deformed without changing topology. The tree shape and the leaf primitive
// assignment are kept; clipped spatial split references are refitted to the
// full primitive bounds.
func Refit(bvh *BVH, objects []*input.Object) {
	r := &refitter{
		bvh:       bvh,
		objects:   objects,
		heuristic: NewUnalignedHeuristic(objects, bvh.Params.UnalignedSplitThreshold),
	}
	r.refit(bvh.Root)
}

type refitter struct {
	bvh       *BVH
	objects   []*input.Object
	heuristic *UnalignedHeuristic
}

// Rebuild the reference stored in an output slot.
func (r *refitter) slotReference(slot int) Reference {
	ref := Reference{
		PrimIndex: r.bvh.PrimIndex[slot],
		Object:    r.bvh.PrimObject[slot],
		Type:      r.bvh.PrimType[slot].Base(),
		Segment:   int32(r.bvh.PrimType[slot].Segment()),
		TimeFrom:  r.bvh.PrimTime[slot].From,
		TimeTo:    r.bvh.PrimTime[slot].To,
	}

	obj := r.objects[ref.Object]
	if ref.IsObject() {
		ref.Bounds = obj.Bounds()
		return ref
	}

	t0, t1 := ref.TimeFrom, ref.TimeTo
	switch geom := obj.Geometry.(type) {
	case *input.Mesh:
		ref.Bounds = geom.TriangleBoundsAt(int(ref.PrimIndex), obj, t0, t1)
	case *input.Hair:
		ref.Bounds = geom.SegmentBoundsAt(int(ref.PrimIndex), int(ref.Segment), obj, t0, t1)
	case *input.PointCloud:
		ref.Bounds = geom.PointBoundsAt(int(ref.PrimIndex), obj, t0, t1)
	default:
		ref.Bounds = obj.Bounds()
	}
	return ref
}

// Refit the subtree and return the references below it.
func (r *refitter) refit(n Node) []Reference {
	base := n.Base()
	var refs []Reference
	switch node := n.(type) {
	case *LeafNode:
		refs = make([]Reference, 0, node.NumPrimitives())
		for slot := node.Lo; slot < node.Hi; slot++ {
			refs = append(refs, r.slotReference(slot))
		}
		base.Bounds = types.EmptyBox()
		for i := range refs {
			base.Bounds.GrowBox(refs[i].Bounds)
		}
	case *InnerNode:
		left := r.refit(node.Children[0])
		right := r.refit(node.Children[1])
		refs = append(left, right...)
		base.Bounds = types.Merge(node.Children[0].Base().Bounds, node.Children[1].Base().Bounds)
	}

	if base.IsUnaligned() {
		base.AlignedBounds, _ = r.heuristic.ComputeAlignedBounds(refs, *base.AlignedSpace)
	}
	return refs
}
