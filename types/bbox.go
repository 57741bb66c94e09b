package types

import "github.com/chewxy/math32"

// BoundBox is an axis aligned bounding box. An empty box has its min extent
// set to +Inf and its max extent set to -Inf so that growing it by any point
// yields a box containing just that point.
type BoundBox struct {
	Min Vec3
	Max Vec3
}

// Create an empty bounding box.
func EmptyBox() BoundBox {
	inf := math32.Inf(1)
	return BoundBox{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// Create a box from two corners.
func Box(min, max Vec3) BoundBox {
	return BoundBox{Min: min, Max: max}
}

// Extend the box so it contains point p.
func (b *BoundBox) Grow(p Vec3) {
	b.Min = MinVec3(b.Min, p)
	b.Max = MaxVec3(b.Max, p)
}

// Extend the box so it contains a sphere of radius r centered at p.
func (b *BoundBox) GrowRadius(p Vec3, r float32) {
	rv := Splat(r)
	b.Min = MinVec3(b.Min, p.Sub(rv))
	b.Max = MaxVec3(b.Max, p.Add(rv))
}

// Extend the box so it contains o.
func (b *BoundBox) GrowBox(o BoundBox) {
	b.Min = MinVec3(b.Min, o.Min)
	b.Max = MaxVec3(b.Max, o.Max)
}

// Return the union of two boxes.
func Merge(a, b BoundBox) BoundBox {
	a.GrowBox(b)
	return a
}

// Return the intersection of two boxes. The result is not valid if the boxes
// do not overlap.
func (b BoundBox) Intersect(o BoundBox) BoundBox {
	return BoundBox{
		Min: MaxVec3(b.Min, o.Min),
		Max: MinVec3(b.Max, o.Max),
	}
}

// Box extents.
func (b BoundBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Box center.
func (b BoundBox) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Returns true if min <= max on every axis and all extents are finite.
func (b BoundBox) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2] &&
		b.Min.IsFinite() && b.Max.IsFinite()
}

// Returns true if the box has never been grown.
func (b BoundBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Box surface area.
func (b BoundBox) Area() float32 {
	return 2 * b.HalfArea()
}

// Half of the box surface area. The SAH only needs relative areas.
func (b BoundBox) HalfArea() float32 {
	d := b.Size()
	return d[0]*d[1] + d[1]*d[2] + d[2]*d[0]
}

// Like HalfArea but returns 0 for empty or inverted boxes.
func (b BoundBox) SafeHalfArea() float32 {
	if !b.Valid() {
		return 0
	}
	return b.HalfArea()
}

// Like Area but returns 0 for empty or inverted boxes.
func (b BoundBox) SafeArea() float32 {
	return 2 * b.SafeHalfArea()
}

// Returns true if b contains o, allowing for an absolute error of eps.
func (b BoundBox) Contains(o BoundBox, eps float32) bool {
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i]-eps || o.Max[i] > b.Max[i]+eps {
			return false
		}
	}
	return true
}

// Return the bounding box of this box's corners after applying t.
func (b BoundBox) Transformed(t Transform) BoundBox {
	out := EmptyBox()
	if b.IsEmpty() {
		return out
	}
	for i := 0; i < 8; i++ {
		corner := Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out.Grow(t.Point(corner))
	}
	return out
}
