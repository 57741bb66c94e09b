package bvh

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/stretchr/testify/require"
)

const containEpsilon = 1e-4

func randomVec(r *rand.Rand, min, max types.Vec3) types.Vec3 {
	return types.XYZ(
		min[0]+r.Float32()*(max[0]-min[0]),
		min[1]+r.Float32()*(max[1]-min[1]),
		min[2]+r.Float32()*(max[2]-min[2]),
	)
}

// Generate n small triangles with centers inside [min, max].
func randomMesh(r *rand.Rand, name string, n int, min, max types.Vec3, size float32) *input.Mesh {
	m := input.NewMesh(name)
	half := types.Splat(size / 2)
	for i := 0; i < n; i++ {
		c := randomVec(r, min, max)
		base := int32(len(m.Verts))
		for v := 0; v < 3; v++ {
			m.Verts = append(m.Verts, randomVec(r, c.Sub(half), c.Add(half)))
		}
		m.Triangles = append(m.Triangles, [3]int32{base, base + 1, base + 2})
	}
	return m
}

// A square ground plane made of two triangles at y=0.
func groundPlane(extent float32) *input.Mesh {
	m := input.NewMesh("ground")
	m.Verts = []types.Vec3{
		{-extent, 0, -extent},
		{extent, 0, -extent},
		{extent, 0, extent},
		{-extent, 0, extent},
	}
	m.Triangles = [][3]int32{{0, 1, 2}, {0, 2, 3}}
	return m
}

// Generate n random curves with keys inside [min, max].
func randomHair(r *rand.Rand, n, keys int, min, max types.Vec3, radius float32) *input.Hair {
	h := input.NewHair("hair")
	for i := 0; i < n; i++ {
		start := randomVec(r, min, max)
		dir := randomVec(r, types.Splat(-1), types.Splat(1))
		curve := make([]types.Vec3, keys)
		for k := range curve {
			curve[k] = start.Add(dir.Mul(float32(k)))
		}
		h.AddCurve(curve, radius)
	}
	return h
}

func randomPoints(r *rand.Rand, n int, min, max types.Vec3, radius float32) *input.PointCloud {
	pc := input.NewPointCloud("points")
	for i := 0; i < n; i++ {
		pc.AddPoint(randomVec(r, min, max), radius)
	}
	return pc
}

func objectsOf(geoms ...input.Geometry) []*input.Object {
	objects := make([]*input.Object, len(geoms))
	for i, g := range geoms {
		objects[i] = input.NewObject("obj", g)
	}
	return objects
}

func testParams() Params {
	p := DefaultParams()
	p.Workers = 4
	return p
}

func mustBuild(t *testing.T, objects []*input.Object, p Params, opts ...Option) (*BVH, *Builder) {
	t.Helper()
	b := NewBuilder(objects, p, opts...)
	out, err := b.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	return out, b
}

// Get the full bounds of the primitive stored in an output slot.
func slotBounds(out *BVH, objects []*input.Object, slot int) types.BoundBox {
	r := &refitter{bvh: out, objects: objects}
	return r.slotReference(slot).Bounds
}

// Verify that every node contains the bounds of all primitives below it.
func requireContainment(t *testing.T, out *BVH, objects []*input.Object) {
	t.Helper()
	var visit func(n Node) types.BoundBox
	visit = func(n Node) types.BoundBox {
		union := types.EmptyBox()
		switch node := n.(type) {
		case *LeafNode:
			for slot := node.Lo; slot < node.Hi; slot++ {
				union.GrowBox(slotBounds(out, objects, slot))
			}
		case *InnerNode:
			union.GrowBox(visit(node.Children[0]))
			union.GrowBox(visit(node.Children[1]))
		}
		if !union.IsEmpty() {
			require.Truef(t, n.Base().Bounds.Contains(union, containEpsilon), "node bounds %v do not contain %v", n.Base().Bounds, union)
		}
		return union
	}
	visit(out.Root)
}

// Verify that no leaf exceeds the size limit for its primitive type.
func requireLeafSizes(t *testing.T, out *BVH) {
	t.Helper()
	VisitLeaves(out.Root, func(leaf *LeafNode) {
		require.LessOrEqualf(t, leaf.NumPrimitives(), out.Params.maxLeafSize(leaf.Type), "leaf of type %s", leaf.Type)
		for slot := leaf.Lo; slot < leaf.Hi; slot++ {
			require.Equal(t, leaf.Type, out.PrimType[slot].Base())
		}
	})
}

type primKey struct {
	object  int32
	index   int32
	segment int
	time    TimeRange
}

// Count the leaf slots referencing each primitive.
func leafPrimitives(out *BVH) map[primKey]int {
	counts := make(map[primKey]int)
	VisitLeaves(out.Root, func(leaf *LeafNode) {
		for slot := leaf.Lo; slot < leaf.Hi; slot++ {
			key := primKey{
				object:  out.PrimObject[slot],
				index:   out.PrimIndex[slot],
				segment: out.PrimType[slot].Segment(),
				time:    out.PrimTime[slot],
			}
			counts[key]++
		}
	})
	return counts
}

// A progress collaborator that cancels after a number of polls.
type cancelAfter struct {
	sync.Mutex
	polls   int
	limit   int
	updates int
	done    int
	total   int
}

func (c *cancelAfter) Cancelled() bool {
	c.Lock()
	defer c.Unlock()
	c.polls++
	return c.limit > 0 && c.polls > c.limit
}

func (c *cancelAfter) Update(done, total int) {
	c.Lock()
	defer c.Unlock()
	c.updates++
	c.done, c.total = done, total
}

// An allocator that records the peak arena usage and optionally fails.
type recordingAllocator struct {
	sync.Mutex
	RegionAllocator

	err    error
	allocs int
}

func (a *recordingAllocator) Alloc(n int) (int, error) {
	a.Lock()
	a.allocs++
	a.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	return a.RegionAllocator.Alloc(n)
}

func recordingFactory(err error, out **recordingAllocator) AllocatorFactory {
	return func(used, capacity int) RegionAllocator {
		a := &recordingAllocator{RegionAllocator: NewBumpAllocator(used, capacity), err: err}
		*out = a
		return a
	}
}
