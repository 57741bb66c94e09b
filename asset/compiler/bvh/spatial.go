package bvh

import (
	"fmt"
	"sync"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/chewxy/math32"
)

// Upper bound for Params.NumSpatialBins.
const maxSpatialBins = 256

// A SpatialBin accumulates the clipped bounds of every reference overlapping
// it together with the number of references starting and ending in it.
type SpatialBin struct {
	Bounds     types.BoundBox
	EnterCount int
	ExitCount  int
}

// SpatialStorage is the scratch space used while evaluating and applying
// spatial splits. A storage instance is owned by a single build task at a
// time.
type SpatialStorage struct {
	bins        [3][]SpatialBin
	rightBounds []types.BoundBox
	newRefs     []Reference

	// Arena slots overwritten by duplicated left references together with
	// their original contents.
	overwritten []overwrittenRef
}

type overwrittenRef struct {
	pos int
	ref Reference
}

func (s *SpatialStorage) reset(numBins int) {
	for dim := 0; dim < 3; dim++ {
		if cap(s.bins[dim]) < numBins {
			s.bins[dim] = make([]SpatialBin, numBins)
		}
		s.bins[dim] = s.bins[dim][:numBins]
		for i := range s.bins[dim] {
			s.bins[dim][i] = SpatialBin{Bounds: types.EmptyBox()}
		}
	}
	if cap(s.rightBounds) < numBins {
		s.rightBounds = make([]types.BoundBox, numBins)
	}
	s.rightBounds = s.rightBounds[:numBins]
	s.newRefs = s.newRefs[:0]
	s.overwritten = s.overwritten[:0]
}

// A storagePool hands out SpatialStorage instances to build tasks.
type storagePool struct {
	pool sync.Pool
}

func newStoragePool() *storagePool {
	return &storagePool{
		pool: sync.Pool{
			New: func() interface{} { return &SpatialStorage{} },
		},
	}
}

func (sp *storagePool) acquire() *SpatialStorage {
	return sp.pool.Get().(*SpatialStorage)
}

func (sp *storagePool) release(s *SpatialStorage) {
	sp.pool.Put(s)
}

// spatialSplit scores split planes that may clip references and duplicate
// them into both children.
type spatialSplit struct {
	b       *builder
	storage *SpatialStorage
	rng     Range

	numBins    int
	origin     types.Vec3
	binSize    types.Vec3
	invBinSize types.Vec3

	splitSAH float32
	dim      int
	pos      float32
}

func newSpatialSplit(b *builder, storage *SpatialStorage, rng Range) *spatialSplit {
	ss := &spatialSplit{
		b:        b,
		storage:  storage,
		rng:      rng,
		numBins:  b.params.NumSpatialBins,
		origin:   rng.Bounds.Min,
		splitSAH: math32.Inf(1),
		dim:      -1,
	}
	ss.binSize = rng.Bounds.Size().Mul(1.0 / float32(ss.numBins))
	for dim := 0; dim < 3; dim++ {
		if ss.binSize[dim] > 0 {
			ss.invBinSize[dim] = 1.0 / ss.binSize[dim]
		}
	}
	ss.evaluate()
	return ss
}

func (ss *spatialSplit) binIndex(v float32, dim, lo int) int {
	bin := int((v - ss.origin[dim]) * ss.invBinSize[dim])
	if bin < lo {
		return lo
	} else if bin >= ss.numBins {
		return ss.numBins - 1
	}
	return bin
}

func (ss *spatialSplit) evaluate() {
	st := ss.storage
	st.reset(ss.numBins)
	refs := ss.b.refs

	for i := ss.rng.Start; i < ss.rng.End(); i++ {
		ref := refs[i]
		for dim := 0; dim < 3; dim++ {
			if ss.invBinSize[dim] == 0 {
				continue
			}
			first := ss.binIndex(ref.Bounds.Min[dim], dim, 0)
			last := ss.binIndex(ref.Bounds.Max[dim], dim, first)

			cur := ref
			for bin := first; bin < last; bin++ {
				l, r := ss.b.splitReference(&cur, dim, ss.origin[dim]+ss.binSize[dim]*float32(bin+1))
				st.bins[dim][bin].Bounds.GrowBox(l.Bounds)
				cur = r
			}
			st.bins[dim][last].Bounds.GrowBox(cur.Bounds)
			st.bins[dim][first].EnterCount++
			st.bins[dim][last].ExitCount++
		}
	}

	for dim := 0; dim < 3; dim++ {
		if ss.invBinSize[dim] == 0 {
			continue
		}
		bins := st.bins[dim]

		bounds := types.EmptyBox()
		for i := ss.numBins - 1; i > 0; i-- {
			bounds.GrowBox(bins[i].Bounds)
			st.rightBounds[i-1] = bounds
		}

		leftBounds := types.EmptyBox()
		leftNum, rightNum := 0, ss.rng.Size
		for i := 1; i < ss.numBins; i++ {
			leftBounds.GrowBox(bins[i-1].Bounds)
			leftNum += bins[i-1].EnterCount
			rightNum -= bins[i-1].ExitCount
			if leftNum == 0 || rightNum == 0 {
				continue
			}
			sah := leftBounds.SafeHalfArea()*ss.b.params.PrimitiveCost(leftNum) +
				st.rightBounds[i-1].SafeHalfArea()*ss.b.params.PrimitiveCost(rightNum)
			if sah < ss.splitSAH {
				ss.splitSAH = sah
				ss.dim = dim
				ss.pos = ss.origin[dim] + ss.binSize[dim]*float32(i)
			}
		}
	}
}

func (ss *spatialSplit) Cost() float32 {
	return ss.splitSAH
}

// Apply the split. References on one side of the plane are moved to that
// side; straddling references either move to the cheaper side or get
// clipped and duplicated into both. The left child stays in place. If no
// reference is duplicated the right child stays in place too; otherwise it
// is moved to a new arena region. Returns ErrCapacityExceeded, with the arena
// restored to a permutation of the input range, if that region cannot be
// allocated.
func (ss *spatialSplit) Split() (left, right Range, err error) {
	if ss.dim < 0 {
		return left, right, fmt.Errorf("bvh: spatial split applied without a usable plane")
	}

	st := ss.storage
	st.newRefs = st.newRefs[:0]
	st.overwritten = st.overwritten[:0]

	refs := ss.b.refs
	dim, pos := ss.dim, ss.pos
	start, end := ss.rng.Start, ss.rng.End()
	leftEnd, rightStart := start, end

	leftBounds, rightBounds := types.EmptyBox(), types.EmptyBox()
	for i := leftEnd; i < rightStart; {
		switch {
		case refs[i].Bounds.Max[dim] <= pos:
			leftBounds.GrowBox(refs[i].Bounds)
			refs[i], refs[leftEnd] = refs[leftEnd], refs[i]
			leftEnd++
			i++
		case refs[i].Bounds.Min[dim] >= pos:
			rightBounds.GrowBox(refs[i].Bounds)
			rightStart--
			refs[i], refs[rightStart] = refs[rightStart], refs[i]
		default:
			i++
		}
	}

	p := ss.b.params
	inf := math32.Inf(1)
	for leftEnd < rightStart {
		ref := refs[leftEnd]
		l, r := ss.b.splitReference(&ref, dim, pos)

		leftCount := leftEnd - start
		rightCount := end - rightStart + len(st.newRefs)

		unsplitLeft := types.Merge(leftBounds, ref.Bounds)
		unsplitRight := types.Merge(rightBounds, ref.Bounds)
		dupLeft := types.Merge(leftBounds, l.Bounds)
		dupRight := types.Merge(rightBounds, r.Bounds)

		unsplitLeftSAH := unsplitLeft.SafeHalfArea()*p.PrimitiveCost(leftCount+1) + rightBounds.SafeHalfArea()*p.PrimitiveCost(rightCount)
		unsplitRightSAH := leftBounds.SafeHalfArea()*p.PrimitiveCost(leftCount) + unsplitRight.SafeHalfArea()*p.PrimitiveCost(rightCount+1)
		duplicateSAH := inf
		if !l.Bounds.IsEmpty() && !r.Bounds.IsEmpty() {
			duplicateSAH = dupLeft.SafeHalfArea()*p.PrimitiveCost(leftCount+1) + dupRight.SafeHalfArea()*p.PrimitiveCost(rightCount+1)
		}

		switch minSAH := math32.Min(unsplitLeftSAH, math32.Min(unsplitRightSAH, duplicateSAH)); minSAH {
		case unsplitLeftSAH:
			leftBounds = unsplitLeft
			leftEnd++
		case unsplitRightSAH:
			rightBounds = unsplitRight
			rightStart--
			refs[leftEnd], refs[rightStart] = refs[rightStart], refs[leftEnd]
		default:
			leftBounds = dupLeft
			rightBounds = dupRight
			st.overwritten = append(st.overwritten, overwrittenRef{pos: leftEnd, ref: ref})
			refs[leftEnd] = l
			leftEnd++
			st.newRefs = append(st.newRefs, r)
		}
	}

	left = rangeOf(refs, start, leftEnd-start)
	if len(st.newRefs) == 0 {
		return left, rangeOf(refs, rightStart, end-rightStart), nil
	}

	numRight := end - rightStart + len(st.newRefs)
	regionStart, err := ss.b.allocator.Alloc(numRight)
	if err != nil {
		for _, ow := range st.overwritten {
			refs[ow.pos] = ow.ref
		}
		return left, right, err
	}
	if regionStart < 0 || regionStart+numRight > len(refs) {
		return left, right, fmt.Errorf("%w: allocator returned region [%d, %d) outside of arena of size %d", ErrOutOfMemory, regionStart, regionStart+numRight, len(refs))
	}

	n := copy(refs[regionStart:], refs[rightStart:end])
	copy(refs[regionStart+n:], st.newRefs)
	ss.b.addDuplicates(len(st.newRefs))

	return left, rangeOf(refs, regionStart, numRight), nil
}

// Clip a reference against the plane at pos along dim returning the part of
// it that lies on either side. Triangles and curve segments are clipped by
// their geometry; other references by their bounds. A side that receives
// nothing gets an empty box.
func (b *builder) splitReference(ref *Reference, dim int, pos float32) (left, right Reference) {
	left, right = *ref, *ref
	lb, rb := types.EmptyBox(), types.EmptyBox()

	switch {
	case ref.IsObject() || ref.Type.IsMotion():
		lb, rb = ref.Bounds, ref.Bounds
	case ref.Type.Base() == PrimTriangle:
		obj := b.objects[ref.Object]
		mesh := obj.Geometry.(*input.Mesh)
		verts := mesh.TriangleVerts(int(ref.PrimIndex))
		var world [3]types.Vec3
		for i, v := range verts {
			world[i] = obj.ToWorld(v)
		}
		for i := 0; i < 3; i++ {
			clipEdge(world[i], world[(i+1)%3], 0, 0, false, dim, pos, &lb, &rb)
		}
	case ref.Type.Base() == PrimCurve:
		obj := b.objects[ref.Object]
		hair := obj.Geometry.(*input.Hair)
		k0, k1, r0, r1 := hair.SegmentKeys(int(ref.PrimIndex), int(ref.Segment))
		clipEdge(obj.ToWorld(k0), obj.ToWorld(k1), r0, r1, true, dim, pos, &lb, &rb)
		// The keys may lie on one side while the radius reaches across.
		if lb.IsEmpty() {
			lb = ref.Bounds
		}
		if rb.IsEmpty() {
			rb = ref.Bounds
		}
	default:
		lb, rb = ref.Bounds, ref.Bounds
	}

	lb.Max[dim] = math32.Min(lb.Max[dim], pos)
	rb.Min[dim] = math32.Max(rb.Min[dim], pos)
	left.Bounds = clipValid(lb.Intersect(ref.Bounds))
	right.Bounds = clipValid(rb.Intersect(ref.Bounds))
	return left, right
}

// Grow lb and rb with the parts of edge v0-v1 on either side of the plane.
// Only v0 is added unless both is set, so a closed polygon can be clipped
// edge by edge. Points are grown by the interpolated radius.
func clipEdge(v0, v1 types.Vec3, r0, r1 float32, both bool, dim int, pos float32, lb, rb *types.BoundBox) {
	if v0[dim] <= pos {
		lb.GrowRadius(v0, r0)
	}
	if v0[dim] >= pos {
		rb.GrowRadius(v0, r0)
	}
	if both {
		if v1[dim] <= pos {
			lb.GrowRadius(v1, r1)
		}
		if v1[dim] >= pos {
			rb.GrowRadius(v1, r1)
		}
	}
	if (v0[dim] < pos && pos < v1[dim]) || (v1[dim] < pos && pos < v0[dim]) {
		t := (pos - v0[dim]) / (v1[dim] - v0[dim])
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		p := types.Lerp(v0, v1, t)
		r := r0 + (r1-r0)*t
		lb.GrowRadius(p, r)
		rb.GrowRadius(p, r)
	}
}

func clipValid(b types.BoundBox) types.BoundBox {
	if b.IsEmpty() {
		return types.EmptyBox()
	}
	return b
}
