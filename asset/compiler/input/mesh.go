package input

import "github.com/achilleasa/polaris-bvh/types"

// A triangle mesh.
type Mesh struct {
	Name      string
	Verts     []types.Vec3
	Triangles [][3]int32

	// Optional vertex positions at evenly spaced times over the shutter
	// interval. Each step holds one position per vertex in Verts. Meshes
	// define either no motion steps or at least two.
	MotionVerts [][]types.Vec3
}

// Create a new mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:      name,
		Verts:     make([]types.Vec3, 0),
		Triangles: make([][3]int32, 0),
	}
}

func (m *Mesh) Type() GeometryType {
	return MeshGeometry
}

func (m *Mesh) NumPrimitives() int {
	return len(m.Triangles)
}

func (m *Mesh) NumMotionSteps() int {
	if len(m.MotionVerts) < 2 {
		return 0
	}
	return len(m.MotionVerts)
}

// Get the vertex positions of a triangle at rest.
func (m *Mesh) TriangleVerts(tri int) [3]types.Vec3 {
	t := m.Triangles[tri]
	return [3]types.Vec3{m.Verts[t[0]], m.Verts[t[1]], m.Verts[t[2]]}
}

// Get the bounds of a triangle over all motion steps.
func (m *Mesh) TriangleBounds(tri int, o *Object) types.BoundBox {
	if m.NumMotionSteps() == 0 {
		bounds := types.EmptyBox()
		for _, v := range m.TriangleVerts(tri) {
			bounds.Grow(o.ToWorld(v))
		}
		return bounds
	}
	return m.TriangleBoundsAt(tri, o, 0, 1)
}

// Get the bounds of a triangle while it moves during [t0, t1].
func (m *Mesh) TriangleBoundsAt(tri int, o *Object, t0, t1 float32) types.BoundBox {
	bounds := types.EmptyBox()
	if m.NumMotionSteps() == 0 {
		for _, v := range m.TriangleVerts(tri) {
			bounds.Grow(o.ToWorld(v))
		}
		return bounds
	}
	grow := func(p types.Vec3) { bounds.Grow(o.ToWorld(p)) }
	for _, vi := range m.Triangles[tri] {
		motionSpan(m.MotionVerts, vi, t0, t1, grow)
	}
	return bounds
}

func (m *Mesh) Bounds() types.BoundBox {
	bounds := types.EmptyBox()
	for _, v := range m.Verts {
		bounds.Grow(v)
	}
	for _, step := range m.MotionVerts {
		for _, v := range step {
			bounds.Grow(v)
		}
	}
	return bounds
}
