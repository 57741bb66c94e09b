package types

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is an affine transformation stored as a column-major 4x4 matrix.
type Transform mgl32.Mat4

// The identity transformation.
func Identity() Transform {
	return Transform(mgl32.Ident4())
}

// A translation.
func Translate(x, y, z float32) Transform {
	return Transform(mgl32.Translate3D(x, y, z))
}

// A non-uniform scale.
func Scale(x, y, z float32) Transform {
	return Transform(mgl32.Scale3D(x, y, z))
}

// A rotation of angle radians around axis.
func Rotate(angle float32, axis Vec3) Transform {
	return Transform(mgl32.HomogRotate3D(angle, mgl32.Vec3(axis.Normalize())))
}

// Get the underlying matrix.
func (t Transform) Mat4() mgl32.Mat4 {
	return mgl32.Mat4(t)
}

// Compose two transformations; the result applies o first and then t.
func (t Transform) Mul(o Transform) Transform {
	return Transform(mgl32.Mat4(t).Mul4(mgl32.Mat4(o)))
}

// Apply the transformation to a point.
func (t Transform) Point(p Vec3) Vec3 {
	return Vec3(mgl32.TransformCoordinate(mgl32.Vec3(p), mgl32.Mat4(t)))
}

// Returns true if t is the identity transformation.
func (t Transform) IsIdentity() bool {
	return mgl32.Mat4(t).ApproxEqual(mgl32.Ident4())
}

// Build an orthonormal frame whose third row is the normalized axis n. Points
// transformed into this frame have their z component measured along n.
func Frame(n Vec3) Transform {
	n = n.Normalize()
	dx0 := Vec3{1, 0, 0}.Cross(n)
	dx1 := Vec3{0, 1, 0}.Cross(n)
	dx := dx1
	if dx0.Dot(dx0) > dx1.Dot(dx1) {
		dx = dx0
	}
	dx = dx.Normalize()
	dy := n.Cross(dx).Normalize()

	return Transform(mgl32.Mat4FromRows(
		mgl32.Vec4{dx[0], dx[1], dx[2], 0},
		mgl32.Vec4{dy[0], dy[1], dy[2], 0},
		mgl32.Vec4{n[0], n[1], n[2], 0},
		mgl32.Vec4{0, 0, 0, 1},
	))
}

// Build the transform that maps bounds, expressed in the aligned space, to
// the unit cube. Traversal kernels use it to test unaligned nodes.
func NodeTransform(bounds BoundBox, aligned Transform) Transform {
	space := mgl32.Mat4(aligned)
	space[12] -= bounds.Min[0]
	space[13] -= bounds.Min[1]
	space[14] -= bounds.Min[2]

	dim := bounds.Size()
	scale := mgl32.Scale3D(
		1.0/math32.Max(1e-18, dim[0]),
		1.0/math32.Max(1e-18, dim[1]),
		1.0/math32.Max(1e-18, dim[2]),
	)
	return Transform(scale.Mul4(space))
}

// Get the inverse transformation. A singular transform yields the zero matrix.
func (t Transform) Inv() Transform {
	return Transform(mgl32.Mat4(t).Inv())
}
