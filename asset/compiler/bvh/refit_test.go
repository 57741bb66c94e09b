package bvh

import (
	"math/rand"
	"testing"

	"github.com/achilleasa/polaris-bvh/types"
	"github.com/stretchr/testify/assert"
)

func TestRefit(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	mesh := randomMesh(r, "mesh", 500, types.Splat(-10), types.Splat(10), 1)
	hair := randomHair(r, 20, 3, types.Splat(-10), types.Splat(10), 0.05)
	objects := objectsOf(mesh, hair)

	p := testParams()
	p.UseUnalignedNodes = true
	out, _ := mustBuild(t, objects, p)
	nodes := out.Stats.Nodes

	// Deform the mesh and move the hair.
	for i, v := range mesh.Verts {
		mesh.Verts[i] = v.Mul(2)
	}
	move := types.Translate(0, 30, 0)
	objects[1].Transform = &move

	Refit(out, objects)

	requireContainment(t, out, objects)
	expected := types.Merge(mesh.Bounds(), objects[1].Bounds())
	assert.True(t, expected.Contains(out.Root.Base().Bounds, containEpsilon))
	assert.True(t, out.Root.Base().Bounds.Contains(expected, 0.2))
	assert.Equal(t, nodes, SubtreeSize(out.Root, StatNodeCount))

	h := NewUnalignedHeuristic(objects, p.UnalignedSplitThreshold)
	refit := &refitter{bvh: out, objects: objects}
	VisitLeaves(out.Root, func(leaf *LeafNode) {
		if !leaf.IsUnaligned() {
			return
		}
		for slot := leaf.Lo; slot < leaf.Hi; slot++ {
			ref := refit.slotReference(slot)
			assert.True(t, leaf.AlignedBounds.Contains(h.ComputeAlignedPrimBounds(&ref, *leaf.AlignedSpace), containEpsilon))
		}
	})
}
