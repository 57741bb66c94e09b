package bvh

import (
	"testing"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnalignedSegmentBounds(t *testing.T) {
	hair := input.NewHair("hair")
	hair.AddCurve([]types.Vec3{{0, 0, 0}, {3, 3, 3}}, 0.1)
	hair.AddCurve([]types.Vec3{{1, 1, 1}, {1, 1, 1}}, 0.1)
	objects := objectsOf(hair)
	h := NewUnalignedHeuristic(objects, 0.7)

	ref := Reference{Bounds: hair.SegmentBounds(0, 0, objects[0]), Type: PrimCurve, TimeTo: 1}
	space, ok := h.ComputeAlignedSpace(&ref)
	require.True(t, ok)

	// In the segment frame the box is only as wide as the curve.
	bounds := h.ComputeAlignedPrimBounds(&ref, space)
	size := bounds.Size()
	assert.InDelta(t, 0.2, size[0], 1e-5)
	assert.InDelta(t, 0.2, size[1], 1e-5)
	assert.InDelta(t, 3*1.7320508+0.2, size[2], 1e-4)
	assert.Less(t, bounds.HalfArea(), ref.Bounds.HalfArea())

	// Zero length segments do not define a frame.
	degenerate := Reference{Bounds: hair.SegmentBounds(1, 0, objects[0]), PrimIndex: 1, Type: PrimCurve, TimeTo: 1}
	_, ok = h.ComputeAlignedSpace(&degenerate)
	assert.False(t, ok)

	// The first usable segment defines the frame of a set.
	setSpace, ok := h.ComputeAlignedSpaceFor([]Reference{degenerate, ref})
	require.True(t, ok)
	assert.Equal(t, space, setSpace)

	all, centroids := h.ComputeAlignedBounds([]Reference{ref, degenerate}, space)
	assert.True(t, all.Contains(bounds, 0))
	assert.False(t, centroids.IsEmpty())
}

func TestUnalignedIgnoresOtherPrimitives(t *testing.T) {
	pc := input.NewPointCloud("points")
	pc.AddPoint(types.XYZ(0, 0, 0), 1)
	objects := objectsOf(pc)
	h := NewUnalignedHeuristic(objects, 0.7)

	ref := Reference{Bounds: pc.PointBounds(0, objects[0]), Type: PrimPoint, TimeTo: 1}
	_, ok := h.ComputeAlignedSpace(&ref)
	assert.False(t, ok)

	assert.Equal(t, ref.Bounds, h.ComputeAlignedPrimBounds(&ref, types.Identity()))
}

func TestUnalignedWorthTrying(t *testing.T) {
	h := NewUnalignedHeuristic(nil, 0.7)

	assert.True(t, h.WorthTrying(8, 10))
	assert.False(t, h.WorthTrying(6, 10))
	assert.False(t, h.WorthTrying(5, 10))
}
