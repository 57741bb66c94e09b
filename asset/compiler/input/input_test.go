package input

import (
	"testing"

	"github.com/achilleasa/polaris-bvh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryTypeString(t *testing.T) {
	assert.Equal(t, "mesh", MeshGeometry.String())
	assert.Equal(t, "hair", HairGeometry.String())
	assert.Equal(t, "pointcloud", PointCloudGeometry.String())
	assert.Equal(t, "unknown", GeometryType(42).String())
}

func TestObjectBounds(t *testing.T) {
	mesh := NewMesh("tri")
	mesh.Verts = append(mesh.Verts, types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0))
	mesh.Triangles = append(mesh.Triangles, [3]int32{0, 1, 2})

	obj := NewObject("tri", mesh)
	assert.Equal(t, VisibilityAll, obj.Visibility)
	assert.Equal(t, types.Box(types.XYZ(0, 0, 0), types.XYZ(1, 1, 0)), obj.Bounds())

	transform := types.Translate(5, 0, 0)
	obj.Transform = &transform
	bounds := obj.Bounds()
	assert.InDelta(t, 5, bounds.Min[0], 1e-5)
	assert.InDelta(t, 6, bounds.Max[0], 1e-5)
	assert.Equal(t, bounds, mesh.TriangleBounds(0, obj))

	// A nil object and a missing geometry.
	var none *Object
	assert.Equal(t, types.XYZ(1, 2, 3), none.ToWorld(types.XYZ(1, 2, 3)))
	assert.True(t, NewObject("empty", nil).Bounds().IsEmpty())
}

func TestMeshMotion(t *testing.T) {
	mesh := NewMesh("moving")
	mesh.Verts = append(mesh.Verts, types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0))
	mesh.Triangles = append(mesh.Triangles, [3]int32{0, 1, 2})
	assert.Equal(t, 0, mesh.NumMotionSteps())

	// A single step does not define motion.
	mesh.MotionVerts = [][]types.Vec3{mesh.Verts}
	assert.Equal(t, 0, mesh.NumMotionSteps())

	shifted := make([]types.Vec3, len(mesh.Verts))
	for i, v := range mesh.Verts {
		shifted[i] = v.Add(types.XYZ(0, 0, 4))
	}
	mesh.MotionVerts = [][]types.Vec3{mesh.Verts, shifted}
	require.Equal(t, 2, mesh.NumMotionSteps())

	obj := NewObject("moving", mesh)
	all := mesh.TriangleBounds(0, obj)
	assert.InDelta(t, 0, all.Min[2], 1e-5)
	assert.InDelta(t, 4, all.Max[2], 1e-5)

	half := mesh.TriangleBoundsAt(0, obj, 0.5, 1)
	assert.InDelta(t, 2, half.Min[2], 1e-5)
	assert.InDelta(t, 4, half.Max[2], 1e-5)
	assert.Equal(t, all, mesh.Bounds())
}

func TestHairSegments(t *testing.T) {
	hair := NewHair("hair")
	hair.AddCurve([]types.Vec3{types.XYZ(0, 0, 0), types.XYZ(0, 1, 0), types.XYZ(0, 2, 0)}, 0.5)
	hair.AddCurve([]types.Vec3{types.XYZ(3, 0, 0)}, 0.5)
	assert.Equal(t, 2, hair.NumPrimitives())
	assert.Equal(t, 0, hair.Curves[1].NumSegments())

	k0, k1, r0, r1 := hair.SegmentKeys(0, 1)
	assert.Equal(t, types.XYZ(0, 1, 0), k0)
	assert.Equal(t, types.XYZ(0, 2, 0), k1)
	assert.Equal(t, float32(0.5), r0)
	assert.Equal(t, float32(0.5), r1)

	bounds := hair.SegmentBounds(0, 1, nil)
	assert.Equal(t, types.Box(types.XYZ(-0.5, 0.5, -0.5), types.XYZ(0.5, 2.5, 0.5)), bounds)

	// Swap x and y; the segment now runs along x.
	swap := types.Transform{
		0, 1, 0, 0,
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	inSpace := hair.SegmentBoundsIn(0, 1, nil, swap)
	assert.InDelta(t, 0.5, inSpace.Min[0], 1e-5)
	assert.InDelta(t, 2.5, inSpace.Max[0], 1e-5)
	assert.InDelta(t, -0.5, inSpace.Min[1], 1e-5)
}

func TestPointCloudMotion(t *testing.T) {
	pc := NewPointCloud("points")
	pc.AddPoint(types.XYZ(0, 0, 0), 1)
	assert.Equal(t, 1, pc.NumPrimitives())
	assert.Equal(t, types.Box(types.Splat(-1), types.Splat(1)), pc.PointBounds(0, nil))

	pc.MotionPoints = [][]types.Vec3{
		{types.XYZ(0, 0, 0)},
		{types.XYZ(10, 0, 0)},
		{types.XYZ(10, 10, 0)},
	}
	require.Equal(t, 3, pc.NumMotionSteps())

	// The middle step key lies inside the window and bounds the path.
	bounds := pc.PointBoundsAt(0, nil, 0.25, 0.75)
	assert.InDelta(t, 4, bounds.Min[0], 1e-5)
	assert.InDelta(t, 11, bounds.Max[0], 1e-5)
	assert.InDelta(t, 6, bounds.Max[1], 1e-5)
}

func TestSceneAddObject(t *testing.T) {
	sc := NewScene()
	assert.Equal(t, 0, sc.AddObject(NewObject("a", nil)))
	assert.Equal(t, 1, sc.AddObject(NewObject("b", nil)))
	assert.Len(t, sc.Objects, 2)
}
