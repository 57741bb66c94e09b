package bvh

import "github.com/achilleasa/polaris-bvh/types"

// A Reference is the unit of work of the builder: one primitive (or one time
// window of a motion primitive, or one nested object instance) together with
// its world space bounds.
type Reference struct {
	Bounds types.BoundBox

	// Index of the primitive within its geometry; -1 for object references.
	PrimIndex int32

	// Index of the owning object in the builder object list.
	Object int32

	Type PrimitiveType

	// Curve segment index; 0 for other primitive types.
	Segment int32

	// Validity window of the reference.
	TimeFrom float32
	TimeTo   float32
}

// Returns true if this reference is a nested object instance.
func (r *Reference) IsObject() bool {
	return r.PrimIndex == -1
}

// A Range is a contiguous slice [Start, Start+Size) of the reference arena
// together with the union of the reference bounds and of their centers.
type Range struct {
	Bounds         types.BoundBox
	CentroidBounds types.BoundBox
	Start          int
	Size           int
}

// End of the range (exclusive).
func (r Range) End() int {
	return r.Start + r.Size
}

// Build a range over refs[start:start+size] computing its bounds.
func rangeOf(refs []Reference, start, size int) Range {
	rng := Range{
		Bounds:         types.EmptyBox(),
		CentroidBounds: types.EmptyBox(),
		Start:          start,
		Size:           size,
	}
	for i := start; i < start+size; i++ {
		rng.Bounds.GrowBox(refs[i].Bounds)
		rng.CentroidBounds.Grow(refs[i].Bounds.Center())
	}
	return rng
}
