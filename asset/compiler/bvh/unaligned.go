package bvh

import (
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
)

// Segments shorter than this do not define an alignment frame.
const minAlignedSegmentLength = 1e-6

// UnalignedHeuristic computes oriented bounds for curve segments.
type UnalignedHeuristic struct {
	objects   []*input.Object
	threshold float32
}

// Create an unaligned heuristic over the builder object list. threshold is
// the fraction of the leaf SAH that the best aligned split must exceed before
// an unaligned split is evaluated.
func NewUnalignedHeuristic(objects []*input.Object, threshold float32) *UnalignedHeuristic {
	return &UnalignedHeuristic{
		objects:   objects,
		threshold: threshold,
	}
}

// Returns true if an unaligned split should be evaluated for a range whose
// best aligned split costs splitSAH.
func (h *UnalignedHeuristic) WorthTrying(splitSAH, leafSAH float32) bool {
	return splitSAH > h.threshold*leafSAH
}

// Get the hair geometry and curve segment keys of a static curve reference.
func (h *UnalignedHeuristic) segment(ref *Reference) (*input.Hair, *input.Object, bool) {
	if ref.Type.Base() != PrimCurve || ref.IsObject() {
		return nil, nil, false
	}
	obj := h.objects[ref.Object]
	hair, ok := obj.Geometry.(*input.Hair)
	return hair, obj, ok
}

// Compute the frame aligned with a curve segment. The second return value is
// false if ref is not a static curve segment or the segment is too short to
// define a direction.
func (h *UnalignedHeuristic) ComputeAlignedSpace(ref *Reference) (types.Transform, bool) {
	hair, obj, ok := h.segment(ref)
	if !ok {
		return types.Identity(), false
	}
	k0, k1, _, _ := hair.SegmentKeys(int(ref.PrimIndex), int(ref.Segment))
	axis := obj.ToWorld(k1).Sub(obj.ToWorld(k0))
	if axis.Len() <= minAlignedSegmentLength {
		return types.Identity(), false
	}
	return types.Frame(axis), true
}

// Find the alignment frame for a set of references: the frame of the first
// reference that defines one, or identity.
func (h *UnalignedHeuristic) ComputeAlignedSpaceFor(refs []Reference) (types.Transform, bool) {
	for i := range refs {
		if space, ok := h.ComputeAlignedSpace(&refs[i]); ok {
			return space, true
		}
	}
	return types.Identity(), false
}

// Compute the bounds of a reference in the given frame. Curve segments are
// bounded tightly by their keys; other references get the frame space box
// around their world bounds. Zero length segments yield a box with zero
// extent along the degenerate axis.
func (h *UnalignedHeuristic) ComputeAlignedPrimBounds(ref *Reference, space types.Transform) types.BoundBox {
	if hair, obj, ok := h.segment(ref); ok {
		return hair.SegmentBoundsIn(int(ref.PrimIndex), int(ref.Segment), obj, space)
	}
	return ref.Bounds.Transformed(space)
}

// Compute the bounds and centroid bounds of refs in the given frame.
func (h *UnalignedHeuristic) ComputeAlignedBounds(refs []Reference, space types.Transform) (bounds, centroids types.BoundBox) {
	bounds, centroids = types.EmptyBox(), types.EmptyBox()
	for i := range refs {
		b := h.ComputeAlignedPrimBounds(&refs[i], space)
		bounds.GrowBox(b)
		centroids.Grow(b.Center())
	}
	return bounds, centroids
}
