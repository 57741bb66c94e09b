package bvh

import (
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
)

// Count the references the add references pass will emit.
func (b *builder) countReferences() int {
	if b.params.TopLevel {
		return len(b.objects)
	}

	count := 0
	for _, obj := range b.objects {
		if obj == nil || obj.Geometry == nil {
			continue
		}
		geom := obj.Geometry
		count += geom.NumPrimitives() * b.referencesPerPrimitive(geometryPrimType(geom))
	}
	return count
}

// Get the primitive type of the references produced for a geometry.
func geometryPrimType(geom input.Geometry) PrimitiveType {
	var t PrimitiveType
	switch geom.Type() {
	case input.MeshGeometry:
		t = PrimTriangle
	case input.HairGeometry:
		t = PrimCurve
	case input.PointCloudGeometry:
		t = PrimPoint
	}
	if geom.NumMotionSteps() > 0 {
		t |= PrimMotion
	}
	return t
}

// Motion primitives with time steps emit one reference per time window.
func (b *builder) referencesPerPrimitive(t PrimitiveType) int {
	if steps := b.params.motionSteps(t); t.IsMotion() && steps > 0 {
		return 2 * steps
	}
	return 1
}

// Fill the arena with the references of every object and return the number
// of references added. References with invalid bounds are skipped.
func (b *builder) addReferences() int {
	n := 0
	add := func(ref Reference) {
		if !ref.Bounds.Valid() {
			b.stats.skippedRefs++
			return
		}
		b.refs[n] = ref
		n++
	}

	for objIndex, obj := range b.objects {
		if obj == nil || obj.Geometry == nil {
			continue
		}

		if b.params.TopLevel {
			add(Reference{
				Bounds:    obj.Bounds(),
				PrimIndex: -1,
				Object:    int32(objIndex),
				Type:      PrimNone,
				TimeFrom:  0,
				TimeTo:    1,
			})
			continue
		}

		primType := geometryPrimType(obj.Geometry)
		windows := b.timeWindows(primType)
		emit := func(primIndex, segment int, boundsAt func(t0, t1 float32) types.BoundBox) {
			for _, w := range windows {
				add(Reference{
					Bounds:    boundsAt(w.From, w.To),
					PrimIndex: int32(primIndex),
					Object:    int32(objIndex),
					Type:      primType,
					Segment:   int32(segment),
					TimeFrom:  w.From,
					TimeTo:    w.To,
				})
			}
		}

		switch geom := obj.Geometry.(type) {
		case *input.Mesh:
			for tri := range geom.Triangles {
				emit(tri, 0, func(t0, t1 float32) types.BoundBox {
					return geom.TriangleBoundsAt(tri, obj, t0, t1)
				})
			}
		case *input.Hair:
			for curve, c := range geom.Curves {
				for seg := 0; seg < c.NumSegments(); seg++ {
					emit(curve, seg, func(t0, t1 float32) types.BoundBox {
						return geom.SegmentBoundsAt(curve, seg, obj, t0, t1)
					})
				}
			}
		case *input.PointCloud:
			for point := range geom.Points {
				emit(point, 0, func(t0, t1 float32) types.BoundBox {
					return geom.PointBoundsAt(point, obj, t0, t1)
				})
			}
		}
	}
	return n
}

// Get the time windows references of the given type are emitted for.
func (b *builder) timeWindows(t PrimitiveType) []TimeRange {
	count := b.referencesPerPrimitive(t)
	if count == 1 {
		return []TimeRange{{From: 0, To: 1}}
	}
	windows := make([]TimeRange, count)
	for i := range windows {
		windows[i] = TimeRange{
			From: float32(i) / float32(count),
			To:   float32(i+1) / float32(count),
		}
	}
	return windows
}
