package bvh

import (
	"sort"

	"github.com/achilleasa/polaris-bvh/types"
	"github.com/chewxy/math32"
)

// Returns true if every primitive class in the range fits in a single leaf.
// Object references are exempt as each of them gets a leaf of its own.
func (b *builder) withinMaxLeafSize(rng Range) bool {
	if rng.Size <= b.params.MinLeafSize {
		return true
	}

	var counts [numPrimClasses]int
	for i := rng.Start; i < rng.End(); i++ {
		if c := b.refs[i].Type.class(); c >= 0 {
			counts[c]++
		}
	}
	for c, count := range counts {
		if count > b.params.maxLeafSize(classTypes[c]) {
			return false
		}
	}
	return true
}

// A run of leaf references sharing a primitive class and time window.
type leafGroup struct {
	refs     []Reference
	primType PrimitiveType
}

// Create the leaves for a range. References are grouped by primitive class
// and, for motion classes with time steps, by overlapping time windows. Each
// object reference gets a leaf of its own. If more than one leaf results
// they are joined by a balanced set of inner nodes.
func (b *builder) createLeafNode(rng Range) Node {
	if rng.Size == 0 {
		return b.newLeaf(types.EmptyBox(), 0, rng.Start, rng.Start, PrimNone)
	}

	var (
		classes [numPrimClasses][]Reference
		objects []Reference
	)
	for i := rng.Start; i < rng.End(); i++ {
		ref := b.refs[i]
		if c := ref.Type.class(); c >= 0 {
			classes[c] = append(classes[c], ref)
		} else {
			objects = appendObjectRef(objects, ref)
		}
	}

	groups := make([]leafGroup, 0, numPrimClasses)
	for c, refs := range classes {
		if len(refs) == 0 {
			continue
		}
		t := classTypes[c]
		if t.IsMotion() && b.params.motionSteps(t) > 0 {
			groups = append(groups, groupByTime(refs, t)...)
			continue
		}
		groups = append(groups, leafGroup{refs: refs, primType: t})
	}
	for i := range objects {
		groups = append(groups, leafGroup{refs: objects[i : i+1], primType: PrimNone})
	}

	count := 0
	for _, g := range groups {
		count += len(g.refs)
	}
	lo := b.reserveOutput(rng.Start, count, groups)

	leaves := make([]Node, 0, len(groups))
	for _, g := range groups {
		leaves = append(leaves, b.leafForGroup(g, lo))
		lo += len(g.refs)
	}

	b.reportProgress(rng.Size)
	return b.joinBalanced(leaves)
}

// Append an object reference collapsing it into the previous one if both
// point to the same object; spatial splits may leave several clipped copies
// of an instance in one range.
func appendObjectRef(objects []Reference, ref Reference) []Reference {
	if n := len(objects); n > 0 && objects[n-1].Object == ref.Object {
		objects[n-1].Bounds.GrowBox(ref.Bounds)
		return objects
	}
	return append(objects, ref)
}

// Split motion references into runs whose time windows all overlap.
func groupByTime(refs []Reference, t PrimitiveType) []leafGroup {
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].TimeFrom != refs[j].TimeFrom {
			return refs[i].TimeFrom < refs[j].TimeFrom
		}
		return refs[i].TimeTo < refs[j].TimeTo
	})

	groups := make([]leafGroup, 0)
	start := 0
	minTimeTo := refs[0].TimeTo
	for i := 1; i < len(refs); i++ {
		if refs[i].TimeFrom < minTimeTo {
			minTimeTo = math32.Min(minTimeTo, refs[i].TimeTo)
			continue
		}
		groups = append(groups, leafGroup{refs: refs[start:i], primType: t})
		start = i
		minTimeTo = refs[i].TimeTo
	}
	return append(groups, leafGroup{refs: refs[start:], primType: t})
}

// Create the leaf for a group whose primitives occupy the output slots
// starting at lo.
func (b *builder) leafForGroup(g leafGroup, lo int) Node {
	bounds := types.EmptyBox()
	var visibility uint32
	timeFrom, timeTo := float32(1), float32(0)
	for i := range g.refs {
		ref := &g.refs[i]
		bounds.GrowBox(ref.Bounds)
		visibility |= b.objects[ref.Object].Visibility
		timeFrom = math32.Min(timeFrom, ref.TimeFrom)
		timeTo = math32.Max(timeTo, ref.TimeTo)
	}

	leaf := b.newLeaf(bounds, visibility, lo, lo+len(g.refs), g.primType)
	leaf.TimeFrom, leaf.TimeTo = timeFrom, timeTo

	if b.params.UseUnalignedNodes && g.primType == PrimCurve {
		if space, ok := b.heuristic.ComputeAlignedSpaceFor(g.refs); ok {
			aligned, _ := b.heuristic.ComputeAlignedBounds(g.refs, space)
			leaf.SetAlignedSpace(space, aligned)
		}
	}
	return leaf
}

// Join nodes with balanced inner nodes. nodes must not be empty.
func (b *builder) joinBalanced(nodes []Node) Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	mid := len(nodes) / 2
	left := b.joinBalanced(nodes[:mid])
	right := b.joinBalanced(nodes[mid:])
	return b.newInner(types.Merge(left.Base().Bounds, right.Base().Bounds), left, right)
}

// Write the primitives of the given groups to the output arrays and return
// the index of the first slot. Without spatial splits the arena range and the
// output slots coincide so the range start is used directly. Otherwise slots
// are handed out in creation order.
func (b *builder) reserveOutput(start, count int, groups []leafGroup) int {
	if !b.params.UseSpatialSplit {
		b.out.write(start, groups)
		return start
	}

	b.outMu.Lock()
	defer b.outMu.Unlock()
	lo := b.out.grow(count)
	b.out.write(lo, groups)
	return lo
}
