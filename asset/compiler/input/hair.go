package input

import "github.com/achilleasa/polaris-bvh/types"

// A curve is a polyline of consecutive keys in the hair key list.
type Curve struct {
	FirstKey int32
	NumKeys  int32
}

// Number of segments in the curve.
func (c Curve) NumSegments() int {
	if c.NumKeys < 2 {
		return 0
	}
	return int(c.NumKeys - 1)
}

// Hair geometry: curves with a per-key radius.
type Hair struct {
	Name   string
	Keys   []types.Vec3
	Radius []float32
	Curves []Curve

	// Optional key positions at evenly spaced times over the shutter
	// interval; radii do not animate.
	MotionKeys [][]types.Vec3
}

// Create new hair geometry.
func NewHair(name string) *Hair {
	return &Hair{
		Name:   name,
		Keys:   make([]types.Vec3, 0),
		Radius: make([]float32, 0),
		Curves: make([]Curve, 0),
	}
}

// Append a curve through keys with a constant radius.
func (h *Hair) AddCurve(keys []types.Vec3, radius float32) {
	h.Curves = append(h.Curves, Curve{FirstKey: int32(len(h.Keys)), NumKeys: int32(len(keys))})
	for _, k := range keys {
		h.Keys = append(h.Keys, k)
		h.Radius = append(h.Radius, radius)
	}
}

func (h *Hair) Type() GeometryType {
	return HairGeometry
}

func (h *Hair) NumPrimitives() int {
	n := 0
	for _, c := range h.Curves {
		n += c.NumSegments()
	}
	return n
}

func (h *Hair) NumMotionSteps() int {
	if len(h.MotionKeys) < 2 {
		return 0
	}
	return len(h.MotionKeys)
}

// Get the rest positions of the two keys of a curve segment.
func (h *Hair) SegmentKeys(curve, segment int) (k0, k1 types.Vec3, r0, r1 float32) {
	key := h.Curves[curve].FirstKey + int32(segment)
	return h.Keys[key], h.Keys[key+1], h.Radius[key], h.Radius[key+1]
}

// Get the bounds of a curve segment over all motion steps.
func (h *Hair) SegmentBounds(curve, segment int, o *Object) types.BoundBox {
	return h.SegmentBoundsAt(curve, segment, o, 0, 1)
}

// Get the bounds of a curve segment while it moves during [t0, t1].
func (h *Hair) SegmentBoundsAt(curve, segment int, o *Object, t0, t1 float32) types.BoundBox {
	bounds := types.EmptyBox()
	key := h.Curves[curve].FirstKey + int32(segment)
	if h.NumMotionSteps() == 0 {
		bounds.GrowRadius(o.ToWorld(h.Keys[key]), h.Radius[key])
		bounds.GrowRadius(o.ToWorld(h.Keys[key+1]), h.Radius[key+1])
		return bounds
	}
	for _, k := range []int32{key, key + 1} {
		r := h.Radius[k]
		motionSpan(h.MotionKeys, k, t0, t1, func(p types.Vec3) {
			bounds.GrowRadius(o.ToWorld(p), r)
		})
	}
	return bounds
}

// Get the bounds of a static curve segment after mapping its world space keys
// with space. Radii are not scaled, so space must be orthonormal.
func (h *Hair) SegmentBoundsIn(curve, segment int, o *Object, space types.Transform) types.BoundBox {
	k0, k1, r0, r1 := h.SegmentKeys(curve, segment)
	bounds := types.EmptyBox()
	bounds.GrowRadius(space.Point(o.ToWorld(k0)), r0)
	bounds.GrowRadius(space.Point(o.ToWorld(k1)), r1)
	return bounds
}

func (h *Hair) Bounds() types.BoundBox {
	bounds := types.EmptyBox()
	for i, k := range h.Keys {
		bounds.GrowRadius(k, h.Radius[i])
	}
	for _, step := range h.MotionKeys {
		for i, k := range step {
			bounds.GrowRadius(k, h.Radius[i])
		}
	}
	return bounds
}
