package bvh

import (
	"testing"

	"github.com/achilleasa/polaris-bvh/types"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boxRef(index int32, min, max types.Vec3) Reference {
	return Reference{
		Bounds:    types.Box(min, max),
		PrimIndex: index,
		Type:      PrimTriangle,
		TimeTo:    1,
	}
}

func TestObjectBinningDegenerateCentroids(t *testing.T) {
	refs := make([]Reference, 10)
	for i := range refs {
		refs[i] = boxRef(int32(i), types.XYZ(0, 0, 0), types.XYZ(1, 1, 1))
	}
	p := DefaultParams()
	ob := newObjectBinning(refs, rangeOf(refs, 0, len(refs)), &p, nil, nil)

	assert.True(t, math32.IsInf(ob.Cost(), 1), "expected no usable split")
	assert.InDelta(t, 30, ob.leafSAH, 1e-6)

	left, right, err := ob.Split()
	require.NoError(t, err)
	assert.Equal(t, 5, left.Size)
	assert.Equal(t, 5, right.Size)
	assert.Equal(t, left.End(), right.Start)
}

func TestObjectBinningSeparatesClusters(t *testing.T) {
	refs := make([]Reference, 0, 20)
	for i := 0; i < 10; i++ {
		offset := float32(i) * 0.01
		refs = append(refs, boxRef(int32(2*i), types.XYZ(offset, 0, 0), types.XYZ(offset+0.1, 0.1, 0.1)))
		refs = append(refs, boxRef(int32(2*i+1), types.XYZ(100+offset, 0, 0), types.XYZ(100.1+offset, 0.1, 0.1)))
	}
	p := DefaultParams()
	rng := rangeOf(refs, 0, len(refs))
	ob := newObjectBinning(refs, rng, &p, nil, nil)

	require.False(t, math32.IsInf(ob.Cost(), 1))
	assert.Equal(t, 0, ob.splitDim)
	assert.Less(t, ob.splitNodeSAH(), ob.leafSAH)

	left, right, err := ob.Split()
	require.NoError(t, err)
	require.Equal(t, 10, left.Size)
	require.Equal(t, 10, right.Size)
	for i := left.Start; i < left.End(); i++ {
		assert.Less(t, refs[i].Bounds.Max[0], float32(1))
	}
	for i := right.Start; i < right.End(); i++ {
		assert.Greater(t, refs[i].Bounds.Min[0], float32(99))
	}
	assert.InDelta(t, 0.19, left.Bounds.Max[0], 1e-5)
}

func TestRangeOf(t *testing.T) {
	refs := []Reference{
		boxRef(0, types.XYZ(0, 0, 0), types.XYZ(2, 2, 2)),
		boxRef(1, types.XYZ(4, 0, 0), types.XYZ(6, 2, 2)),
		boxRef(2, types.XYZ(10, 10, 10), types.XYZ(11, 11, 11)),
	}

	rng := rangeOf(refs, 0, 2)
	assert.Equal(t, types.Box(types.XYZ(0, 0, 0), types.XYZ(6, 2, 2)), rng.Bounds)
	assert.Equal(t, types.Box(types.XYZ(1, 1, 1), types.XYZ(5, 1, 1)), rng.CentroidBounds)
	assert.Equal(t, 2, rng.End())

	empty := rangeOf(refs, 3, 0)
	assert.True(t, empty.Bounds.IsEmpty())
}
