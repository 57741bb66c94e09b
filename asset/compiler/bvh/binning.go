package bvh

import (
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/chewxy/math32"
)

const (
	minObjectBins = 4
	maxObjectBins = 32
)

// objectBinning scores object splits by binning reference centroids along
// each axis of the centroid bounds. When an aligned space is supplied the
// binning happens in that frame.
type objectBinning struct {
	refs []Reference
	rng  Range
	p    *Params

	heuristic *UnalignedHeuristic
	space     *types.Transform

	// Bounds and centroid bounds in the binning space.
	bounds    types.BoundBox
	centroids types.BoundBox

	numBins int
	scale   types.Vec3

	splitSAH float32
	leafSAH  float32
	splitDim int
	splitBin int

	// Child bounds of the best split.
	leftBounds  types.BoundBox
	rightBounds types.BoundBox
}

// Bin the references of rng. space may be nil for world aligned binning.
func newObjectBinning(refs []Reference, rng Range, p *Params, heuristic *UnalignedHeuristic, space *types.Transform) *objectBinning {
	ob := &objectBinning{
		refs:        refs,
		rng:         rng,
		p:           p,
		heuristic:   heuristic,
		space:       space,
		bounds:      rng.Bounds,
		centroids:   rng.CentroidBounds,
		splitSAH:    math32.Inf(1),
		splitDim:    -1,
		leftBounds:  types.EmptyBox(),
		rightBounds: types.EmptyBox(),
	}
	if space != nil {
		ob.bounds, ob.centroids = heuristic.ComputeAlignedBounds(refs[rng.Start:rng.End()], *space)
	}
	ob.leafSAH = ob.bounds.SafeHalfArea() * p.PrimitiveCost(rng.Size)
	ob.evaluate()
	return ob
}

// The reference bounds in the binning space.
func (ob *objectBinning) primBounds(ref *Reference) types.BoundBox {
	if ob.space != nil {
		return ob.heuristic.ComputeAlignedPrimBounds(ref, *ob.space)
	}
	return ref.Bounds
}

// Map a centroid to its bin along dim.
func (ob *objectBinning) binIndex(center types.Vec3, dim int) int {
	bin := int((center[dim] - ob.centroids.Min[dim]) * ob.scale[dim])
	if bin < 0 {
		return 0
	} else if bin >= ob.numBins {
		return ob.numBins - 1
	}
	return bin
}

func (ob *objectBinning) evaluate() {
	size := ob.rng.Size
	ob.numBins = int(minObjectBins + 0.05*float32(size))
	if ob.numBins > maxObjectBins {
		ob.numBins = maxObjectBins
	}

	extent := ob.centroids.Size()
	for dim := 0; dim < 3; dim++ {
		if extent[dim] > 0 && !math32.IsInf(extent[dim], 0) {
			ob.scale[dim] = float32(ob.numBins) / extent[dim]
		}
	}

	var (
		binBounds [3][maxObjectBins]types.BoundBox
		binCount  [3][maxObjectBins]int
	)
	for dim := 0; dim < 3; dim++ {
		for bin := 0; bin < ob.numBins; bin++ {
			binBounds[dim][bin] = types.EmptyBox()
		}
	}

	for i := ob.rng.Start; i < ob.rng.End(); i++ {
		b := ob.primBounds(&ob.refs[i])
		center := b.Center()
		for dim := 0; dim < 3; dim++ {
			bin := ob.binIndex(center, dim)
			binBounds[dim][bin].GrowBox(b)
			binCount[dim][bin]++
		}
	}

	// Sweep right to left accumulating the right hand side of every
	// candidate plane.
	var (
		rightBounds [3][maxObjectBins]types.BoundBox
		rightCount  [3][maxObjectBins]int
	)
	for dim := 0; dim < 3; dim++ {
		bounds := types.EmptyBox()
		count := 0
		for bin := ob.numBins - 1; bin > 0; bin-- {
			bounds.GrowBox(binBounds[dim][bin])
			count += binCount[dim][bin]
			rightBounds[dim][bin] = bounds
			rightCount[dim][bin] = count
		}
	}

	for dim := 0; dim < 3; dim++ {
		if ob.scale[dim] == 0 {
			continue
		}
		bounds := types.EmptyBox()
		count := 0
		for bin := 1; bin < ob.numBins; bin++ {
			bounds.GrowBox(binBounds[dim][bin-1])
			count += binCount[dim][bin-1]
			if count == 0 || rightCount[dim][bin] == 0 {
				continue
			}
			sah := bounds.SafeHalfArea()*ob.p.PrimitiveCost(count) +
				rightBounds[dim][bin].SafeHalfArea()*ob.p.PrimitiveCost(rightCount[dim][bin])
			if sah < ob.splitSAH {
				ob.splitSAH = sah
				ob.splitDim = dim
				ob.splitBin = bin
				ob.leftBounds = bounds
				ob.rightBounds = rightBounds[dim][bin]
			}
		}
	}
}

func (ob *objectBinning) Cost() float32 {
	return ob.splitSAH
}

// Partition the range so references whose centroid bin is left of the split
// plane come first. If the partition leaves one side empty (no usable split
// was found) the range is split at its middle instead.
func (ob *objectBinning) Split() (left, right Range, err error) {
	start, end := ob.rng.Start, ob.rng.End()
	mid := start

	if ob.splitDim >= 0 {
		i, j := start, end-1
		for i <= j {
			b := ob.primBounds(&ob.refs[i])
			if ob.binIndex(b.Center(), ob.splitDim) < ob.splitBin {
				i++
				continue
			}
			ob.refs[i], ob.refs[j] = ob.refs[j], ob.refs[i]
			j--
		}
		mid = i
	}

	if mid == start || mid == end {
		mid = start + ob.rng.Size/2
	}

	return rangeOf(ob.refs, start, mid-start), rangeOf(ob.refs, mid, end-mid), nil
}

// The total SAH of splitting the range in the binning space, node cost
// included.
func (ob *objectBinning) splitNodeSAH() float32 {
	return ob.p.NodeCost(1)*ob.bounds.SafeHalfArea() + ob.splitSAH
}
