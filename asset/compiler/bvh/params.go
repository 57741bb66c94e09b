package bvh

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Layout identifies the node arity produced by the builder. Only the two
// wide software layout is supported.
type Layout uint8

const (
	LayoutBVH2 Layout = iota
)

func (l Layout) String() string {
	if l == LayoutBVH2 {
		return "BVH2"
	}
	return fmt.Sprintf("layout(%d)", uint8(l))
}

// Params configures a BVH build. Params are read-only while a build runs.
type Params struct {
	// Spatial splits clip and duplicate references that straddle a split
	// plane. They are only evaluated when the overlap of the best object
	// split children exceeds SpatialSplitAlpha times the root area.
	UseSpatialSplit   bool
	SpatialSplitAlpha float32

	// Unaligned nodes bound curve segments in a frame aligned with the
	// segment. They are only evaluated when the aligned split SAH exceeds
	// UnalignedSplitThreshold times the leaf SAH.
	UseUnalignedNodes       bool
	UnalignedSplitThreshold float32

	// SAH cost coefficients.
	SAHNodeCost      float32
	SAHPrimitiveCost float32

	// Leaf size limits.
	MinLeafSize               int
	MaxTriangleLeafSize       int
	MaxMotionTriangleLeafSize int
	MaxCurveLeafSize          int
	MaxMotionCurveLeafSize    int
	MaxPointLeafSize          int
	MaxMotionPointLeafSize    int

	// Recursion limits and spatial bin count.
	MaxDepth        int
	MaxSpatialDepth int
	NumSpatialBins  int

	// Ranges with at least this many references build their children as
	// separate tasks.
	ThreadTaskSize int

	// Number of build workers; 0 selects GOMAXPROCS.
	Workers int

	Layout Layout

	// Build a top level BVH over object instances instead of a BVH over
	// object primitives.
	TopLevel bool

	// Motion time steps per primitive type. A value of n splits each
	// motion primitive into 2n time windowed references; 0 bounds motion
	// primitives over the whole shutter interval.
	NumMotionTriangleSteps int
	NumMotionCurveSteps    int
	NumMotionPointSteps    int

	// Post build tree rotation. RotationIterations of 0 disables it.
	RotationMaxDepth   int
	RotationIterations int

	// With spatial splits enabled the reference arena is pre-reserved to
	// hold SpatialReserveFactor times the number of input references.
	SpatialReserveFactor float32
}

// Get the default build parameters.
func DefaultParams() Params {
	return Params{
		UseSpatialSplit:           false,
		SpatialSplitAlpha:         1e-5,
		UseUnalignedNodes:         false,
		UnalignedSplitThreshold:   0.7,
		SAHNodeCost:               1.0,
		SAHPrimitiveCost:          1.0,
		MinLeafSize:               1,
		MaxTriangleLeafSize:       8,
		MaxMotionTriangleLeafSize: 8,
		MaxCurveLeafSize:          1,
		MaxMotionCurveLeafSize:    4,
		MaxPointLeafSize:          8,
		MaxMotionPointLeafSize:    8,
		MaxDepth:                  64,
		MaxSpatialDepth:           48,
		NumSpatialBins:            32,
		ThreadTaskSize:            4096,
		Layout:                    LayoutBVH2,
		RotationMaxDepth:          4,
		RotationIterations:        0,
		SpatialReserveFactor:      4,
	}
}

// Validate the parameters. All returned errors wrap ErrInvalidParams.
func (p Params) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
	}

	if !positiveFinite(p.SAHNodeCost) || !positiveFinite(p.SAHPrimitiveCost) {
		return invalid("SAH costs must be positive and finite (node %v, primitive %v)", p.SAHNodeCost, p.SAHPrimitiveCost)
	}
	if p.Layout != LayoutBVH2 {
		return invalid("unsupported layout %s", p.Layout)
	}
	if p.MinLeafSize < 1 {
		return invalid("min leaf size must be >= 1; got %d", p.MinLeafSize)
	}
	for _, c := range classTypes {
		if limit := p.maxLeafSize(c); limit < p.MinLeafSize {
			return invalid("max %s leaf size %d is smaller than min leaf size %d", c, limit, p.MinLeafSize)
		}
	}
	if p.SpatialSplitAlpha < 0 || math32.IsNaN(p.SpatialSplitAlpha) {
		return invalid("spatial split alpha must be >= 0; got %v", p.SpatialSplitAlpha)
	}
	if p.UnalignedSplitThreshold < 0 || math32.IsNaN(p.UnalignedSplitThreshold) {
		return invalid("unaligned split threshold must be >= 0; got %v", p.UnalignedSplitThreshold)
	}
	if p.NumSpatialBins < 2 || p.NumSpatialBins > maxSpatialBins {
		return invalid("spatial bin count must be in [2, %d]; got %d", maxSpatialBins, p.NumSpatialBins)
	}
	if p.MaxDepth < 1 || p.MaxSpatialDepth < 0 || p.MaxSpatialDepth > p.MaxDepth {
		return invalid("depth limits must satisfy 0 <= spatial depth (%d) <= depth (%d), depth >= 1", p.MaxSpatialDepth, p.MaxDepth)
	}
	if p.ThreadTaskSize < 1 {
		return invalid("thread task size must be >= 1; got %d", p.ThreadTaskSize)
	}
	if p.Workers < 0 {
		return invalid("worker count must be >= 0; got %d", p.Workers)
	}
	if p.NumMotionTriangleSteps < 0 || p.NumMotionCurveSteps < 0 || p.NumMotionPointSteps < 0 {
		return invalid("motion step counts must be >= 0")
	}
	if p.RotationIterations < 0 || p.RotationMaxDepth < 0 {
		return invalid("rotation limits must be >= 0")
	}
	if p.UseSpatialSplit && (p.SpatialReserveFactor < 1 || math32.IsNaN(p.SpatialReserveFactor)) {
		return invalid("spatial reserve factor must be >= 1; got %v", p.SpatialReserveFactor)
	}
	return nil
}

func positiveFinite(v float32) bool {
	return v > 0 && !math32.IsInf(v, 0) && !math32.IsNaN(v)
}

// SAH cost of traversing n nodes.
func (p Params) NodeCost(n int) float32 {
	return p.SAHNodeCost * float32(n)
}

// SAH cost of intersecting n primitives.
func (p Params) PrimitiveCost(n int) float32 {
	return p.SAHPrimitiveCost * float32(n)
}

// Combined SAH cost.
func (p Params) Cost(numNodes, numPrimitives int) float32 {
	return p.NodeCost(numNodes) + p.PrimitiveCost(numPrimitives)
}

// Returns true if a range must become a leaf regardless of its SAH.
func (p Params) smallEnoughForLeaf(size, level int) bool {
	return size <= p.MinLeafSize || level >= p.MaxDepth
}

// Get the leaf size limit for a primitive type. Object references always get
// a leaf of their own.
func (p Params) maxLeafSize(t PrimitiveType) int {
	switch t.Base() {
	case PrimTriangle:
		return p.MaxTriangleLeafSize
	case PrimMotionTriangle:
		return p.MaxMotionTriangleLeafSize
	case PrimCurve:
		return p.MaxCurveLeafSize
	case PrimMotionCurve:
		return p.MaxMotionCurveLeafSize
	case PrimPoint:
		return p.MaxPointLeafSize
	case PrimMotionPoint:
		return p.MaxMotionPointLeafSize
	}
	return 1
}

// The largest leaf size over all primitive types.
func (p Params) maxAnyLeafSize() int {
	limit := 1
	for _, c := range classTypes {
		if s := p.maxLeafSize(c); s > limit {
			limit = s
		}
	}
	return limit
}

// Get the number of motion steps configured for a primitive type.
func (p Params) motionSteps(t PrimitiveType) int {
	switch {
	case t&PrimTriangle != 0:
		return p.NumMotionTriangleSteps
	case t&PrimCurve != 0:
		return p.NumMotionCurveSteps
	case t&PrimPoint != 0:
		return p.NumMotionPointSteps
	}
	return 0
}
