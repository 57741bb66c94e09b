package bvh

import "strings"

// PrimitiveType is a bitmask describing what a reference points to. Object
// references (nested instances in a top level BVH) use PrimNone.
type PrimitiveType uint32

const (
	PrimNone     PrimitiveType = 0
	PrimTriangle PrimitiveType = 1 << iota
	PrimCurve
	PrimPoint
	PrimMotion

	PrimMotionTriangle = PrimTriangle | PrimMotion
	PrimMotionCurve    = PrimCurve | PrimMotion
	PrimMotionPoint    = PrimPoint | PrimMotion

	PrimAll = PrimTriangle | PrimCurve | PrimPoint | PrimMotion

	// Curve segment indices are packed above the type bits in the
	// primitive type output array.
	primSegmentShift = 16
)

// Number of distinct primitive classes a leaf can hold.
const numPrimClasses = 6

// Returns true if this is a motion blurred primitive.
func (t PrimitiveType) IsMotion() bool {
	return t&PrimMotion != 0
}

// Strip the packed segment index.
func (t PrimitiveType) Base() PrimitiveType {
	return t & PrimAll
}

// Get the packed curve segment index.
func (t PrimitiveType) Segment() int {
	return int(t >> primSegmentShift)
}

// Pack a curve segment index into the type.
func (t PrimitiveType) WithSegment(segment int) PrimitiveType {
	return t.Base() | PrimitiveType(segment)<<primSegmentShift
}

// Map the type to its leaf class index in [0, numPrimClasses) or -1 for
// object references.
func (t PrimitiveType) class() int {
	base := t.Base()
	idx := -1
	switch {
	case base&PrimTriangle != 0:
		idx = 0
	case base&PrimCurve != 0:
		idx = 2
	case base&PrimPoint != 0:
		idx = 4
	default:
		return -1
	}
	if base.IsMotion() {
		idx++
	}
	return idx
}

func (t PrimitiveType) String() string {
	base := t.Base()
	if base == PrimNone {
		return "object"
	}
	parts := make([]string, 0, 2)
	if base.IsMotion() {
		parts = append(parts, "motion")
	}
	switch {
	case base&PrimTriangle != 0:
		parts = append(parts, "triangle")
	case base&PrimCurve != 0:
		parts = append(parts, "curve")
	case base&PrimPoint != 0:
		parts = append(parts, "point")
	}
	return strings.Join(parts, " ")
}

// The type of every leaf class, indexed by class.
var classTypes = [numPrimClasses]PrimitiveType{
	PrimTriangle, PrimMotionTriangle,
	PrimCurve, PrimMotionCurve,
	PrimPoint, PrimMotionPoint,
}
