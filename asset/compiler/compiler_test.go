package compiler

import (
	"context"
	"math/rand"
	"testing"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hairSegments = 7

func testScene() *input.Scene {
	r := rand.New(rand.NewSource(42))
	mesh := input.NewMesh("mesh")
	for i := 0; i < 50; i++ {
		c := types.XYZ(r.Float32()*5, r.Float32()*5, r.Float32()*5)
		base := int32(len(mesh.Verts))
		mesh.Verts = append(mesh.Verts, c, c.Add(types.XYZ(0.2, 0, 0)), c.Add(types.XYZ(0, 0.2, 0)))
		mesh.Triangles = append(mesh.Triangles, [3]int32{base, base + 1, base + 2})
	}

	hair := input.NewHair("hair")
	keys := make([]types.Vec3, hairSegments+1)
	for i := range keys {
		keys[i] = types.XYZ(0, float32(i), -10)
	}
	hair.AddCurve(keys, 0.05)

	sc := input.NewScene()
	sc.AddObject(input.NewObject("a", mesh))
	moved := input.NewObject("b", mesh)
	transform := types.Translate(20, 0, 0)
	moved.Transform = &transform
	sc.AddObject(moved)
	sc.AddObject(input.NewObject("strand", hair))
	sc.AddObject(input.NewObject("nothing", nil))
	sc.AddObject(input.NewObject("empty", input.NewMesh("empty")))
	return sc
}

func TestCompile(t *testing.T) {
	var built []string
	onBuild := func(name string, tree *bvh.BVH) {
		built = append(built, name)
	}
	sc, err := Compile(context.Background(), testScene(), bvh.DefaultParams(), WithBuildCallback(onBuild))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "strand", ""}, built)

	require.Len(t, sc.ObjectInstanceList, 3)
	assert.Equal(t, uint32(0), sc.ObjectInstanceList[0].ObjectIndex)
	assert.Equal(t, uint32(1), sc.ObjectInstanceList[1].ObjectIndex)
	assert.Equal(t, uint32(2), sc.ObjectInstanceList[2].ObjectIndex)

	// Objects sharing a geometry share its BVH.
	assert.Equal(t, sc.ObjectInstanceList[0].BvhRoot, sc.ObjectInstanceList[1].BvhRoot)
	assert.NotEqual(t, sc.ObjectInstanceList[0].BvhRoot, sc.ObjectInstanceList[2].BvhRoot)
	assert.True(t, sc.ObjectInstanceList[0].Transform.IsIdentity())
	p := sc.ObjectInstanceList[1].Transform.Point(types.XYZ(20, 1, 2))
	assert.InDelta(t, 0, p[0], 1e-5)
	assert.InDelta(t, 1, p[1], 1e-5)

	// Two object BVHs and the top level BVH.
	assert.Len(t, sc.BuildIDs, 3)
	require.True(t, sc.TopLevelRoot > 0)

	// Every top level leaf references exactly one instance.
	instances := make(map[int32]bool)
	for i := int(sc.TopLevelRoot); i < len(sc.BvhNodeList); i++ {
		node := &sc.BvhNodeList[i]
		if !node.IsLeaf() {
			continue
		}
		first, count := node.GetPrimitives()
		require.Equal(t, uint32(1), count)
		instances[sc.PrimObject[first]] = true
	}
	assert.Equal(t, map[int32]bool{0: true, 1: true, 2: true}, instances)

	// The root of the top level BVH covers every instance in world space.
	root := sc.BvhNodeList[sc.TopLevelRoot].BBox()
	assert.True(t, root.Max[0] > 20)
	assert.True(t, root.Min[2] <= -10)
}

func TestCompileSkipsFailedObjects(t *testing.T) {
	// Fail every build over the hair segment references.
	factory := func(used, capacity int) bvh.RegionAllocator {
		if used == hairSegments {
			return bvh.NewBumpAllocator(used, 0)
		}
		return bvh.NewBumpAllocator(used, capacity)
	}

	sc, err := Compile(context.Background(), testScene(), bvh.DefaultParams(), WithBuildOptions(bvh.WithAllocator(factory)))
	require.NoError(t, err)
	require.Len(t, sc.ObjectInstanceList, 2)
	for _, inst := range sc.ObjectInstanceList {
		assert.NotEqual(t, uint32(2), inst.ObjectIndex)
	}
	assert.Len(t, sc.BuildIDs, 2)
}

func TestCompileAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compile(ctx, testScene(), bvh.DefaultParams())
	assert.ErrorIs(t, err, bvh.ErrCancelled)

	params := bvh.DefaultParams()
	params.MinLeafSize = 0
	_, err = Compile(context.Background(), testScene(), params)
	assert.ErrorIs(t, err, bvh.ErrInvalidParams)
}

func TestCompileEmptyScene(t *testing.T) {
	sc, err := Compile(context.Background(), input.NewScene(), bvh.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, int32(-1), sc.TopLevelRoot)
	assert.Empty(t, sc.BvhNodeList)
}
