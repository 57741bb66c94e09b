package input

import (
	"github.com/achilleasa/polaris-bvh/types"
)

// The visibility mask given to objects that do not define one.
const VisibilityAll uint32 = 0xffffffff

type GeometryType uint8

const (
	MeshGeometry GeometryType = iota
	HairGeometry
	PointCloudGeometry
)

func (t GeometryType) String() string {
	switch t {
	case MeshGeometry:
		return "mesh"
	case HairGeometry:
		return "hair"
	case PointCloudGeometry:
		return "pointcloud"
	}
	return "unknown"
}

// The Geometry interface is implemented by all primitive containers that can
// be partitioned by the bvh builder.
type Geometry interface {
	Type() GeometryType

	// Number of primitives. For hair this is the number of curve segments.
	NumPrimitives() int

	// Number of motion steps; 0 for static geometry.
	NumMotionSteps() int

	// Local space bounds covering every motion step.
	Bounds() types.BoundBox
}

// An object places a geometry in the scene.
type Object struct {
	Name     string
	Geometry Geometry

	// Object to world transformation. A nil transform is treated as identity.
	Transform *types.Transform

	// Ray visibility mask. Leaves OR together the masks of their objects.
	Visibility uint32
}

// Create a new object with full visibility.
func NewObject(name string, geom Geometry) *Object {
	return &Object{
		Name:       name,
		Geometry:   geom,
		Visibility: VisibilityAll,
	}
}

// Transform a local space point to world space. A nil object is treated as
// an identity placement.
func (o *Object) ToWorld(p types.Vec3) types.Vec3 {
	if o == nil || o.Transform == nil {
		return p
	}
	return o.Transform.Point(p)
}

// Get the world space bounds of the object geometry.
func (o *Object) Bounds() types.BoundBox {
	if o.Geometry == nil {
		return types.EmptyBox()
	}
	bounds := o.Geometry.Bounds()
	if o.Transform == nil {
		return bounds
	}
	return bounds.Transformed(*o.Transform)
}

// The scene contains all elements that are processed by the scene compiler.
type Scene struct {
	Objects []*Object
}

// Create a new scene.
func NewScene() *Scene {
	return &Scene{
		Objects: make([]*Object, 0),
	}
}

// Append an object to the scene and return its index.
func (sc *Scene) AddObject(o *Object) int {
	sc.Objects = append(sc.Objects, o)
	return len(sc.Objects) - 1
}

// Get the position of element idx at time t. Motion steps are evenly spaced
// over [0, 1]; positions between steps are linearly interpolated.
func motionPosition(steps [][]types.Vec3, idx int32, t float32) types.Vec3 {
	last := len(steps) - 1
	ft := t * float32(last)
	step := int(ft)
	if step < 0 {
		step = 0
	} else if step >= last {
		step = last - 1
	}
	return types.Lerp(steps[step][idx], steps[step+1][idx], ft-float32(step))
}

// Invoke fn for every position that element idx takes in [t0, t1]: both
// window ends and every motion step key in between. Since motion is piecewise
// linear these points bound the element over the whole window.
func motionSpan(steps [][]types.Vec3, idx int32, t0, t1 float32, fn func(types.Vec3)) {
	fn(motionPosition(steps, idx, t0))
	fn(motionPosition(steps, idx, t1))
	last := len(steps) - 1
	for step := 1; step < last; step++ {
		st := float32(step) / float32(last)
		if st > t0 && st < t1 {
			fn(steps[step][idx])
		}
	}
}
