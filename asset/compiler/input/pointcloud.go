package input

import "github.com/achilleasa/polaris-bvh/types"

// A cloud of spheres.
type PointCloud struct {
	Name   string
	Points []types.Vec3
	Radius []float32

	// Optional point positions at evenly spaced times over the shutter
	// interval.
	MotionPoints [][]types.Vec3
}

// Create a new point cloud.
func NewPointCloud(name string) *PointCloud {
	return &PointCloud{
		Name:   name,
		Points: make([]types.Vec3, 0),
		Radius: make([]float32, 0),
	}
}

// Append a point.
func (pc *PointCloud) AddPoint(p types.Vec3, radius float32) {
	pc.Points = append(pc.Points, p)
	pc.Radius = append(pc.Radius, radius)
}

func (pc *PointCloud) Type() GeometryType {
	return PointCloudGeometry
}

func (pc *PointCloud) NumPrimitives() int {
	return len(pc.Points)
}

func (pc *PointCloud) NumMotionSteps() int {
	if len(pc.MotionPoints) < 2 {
		return 0
	}
	return len(pc.MotionPoints)
}

// Get the bounds of a point over all motion steps.
func (pc *PointCloud) PointBounds(idx int, o *Object) types.BoundBox {
	return pc.PointBoundsAt(idx, o, 0, 1)
}

// Get the bounds of a point while it moves during [t0, t1].
func (pc *PointCloud) PointBoundsAt(idx int, o *Object, t0, t1 float32) types.BoundBox {
	bounds := types.EmptyBox()
	r := pc.Radius[idx]
	if pc.NumMotionSteps() == 0 {
		bounds.GrowRadius(o.ToWorld(pc.Points[idx]), r)
		return bounds
	}
	motionSpan(pc.MotionPoints, int32(idx), t0, t1, func(p types.Vec3) {
		bounds.GrowRadius(o.ToWorld(p), r)
	})
	return bounds
}

func (pc *PointCloud) Bounds() types.BoundBox {
	bounds := types.EmptyBox()
	for i, p := range pc.Points {
		bounds.GrowRadius(p, pc.Radius[i])
	}
	for _, step := range pc.MotionPoints {
		for i, p := range step {
			bounds.GrowRadius(p, pc.Radius[i])
		}
	}
	return bounds
}
