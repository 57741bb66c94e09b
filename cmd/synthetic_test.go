package cmd

import (
	"math/rand"
	"testing"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticObjects(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	objects := syntheticObjects(r, 10, 3, 2, 5, true)
	require.Len(t, objects, 6)

	total := 0
	for _, obj := range objects[:3] {
		total += obj.Geometry.NumPrimitives()
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, input.HairGeometry, objects[3].Geometry.Type())
	assert.Equal(t, 6, objects[3].Geometry.NumPrimitives())
	assert.Equal(t, 5, objects[4].Geometry.NumPrimitives())
	assert.Equal(t, 2, objects[5].Geometry.NumPrimitives())

	assert.Empty(t, syntheticObjects(r, 0, 1, 0, 0, false))
}
