package cmd

import (
	"math/rand"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/urfave/cli"
)

// Flags for generating a random scene.
var SyntheticFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "triangles",
		Value: 100000,
		Usage: "number of random triangles",
	},
	cli.IntFlag{
		Name:  "curves",
		Value: 0,
		Usage: "number of random curves with 4 keys each",
	},
	cli.IntFlag{
		Name:  "points",
		Value: 0,
		Usage: "number of random points",
	},
	cli.IntFlag{
		Name:  "objects",
		Value: 1,
		Usage: "spread the random triangles over this many mesh objects",
	},
	cli.BoolFlag{
		Name:  "ground",
		Usage: "add a ground plane spanning the whole scene",
	},
	cli.BoolFlag{
		Name:  "top-level",
		Usage: "build a top level BVH over the scene objects",
	},
	cli.Int64Flag{
		Name:  "seed",
		Value: 1,
		Usage: "random seed",
	},
}

const syntheticExtent = 100

// Build a BVH over a random scene and display its statistics.
func BuildSynthetic(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	params, err := buildParams(ctx)
	if err != nil {
		return err
	}
	params.TopLevel = ctx.Bool("top-level")

	r := rand.New(rand.NewSource(ctx.Int64("seed")))
	objects := syntheticObjects(r, ctx.Int("triangles"), ctx.Int("objects"), ctx.Int("curves"), ctx.Int("points"), ctx.Bool("ground"))
	logger.Noticef("building BVH over %d synthetic objects", len(objects))

	runCtx, cancel := interruptContext()
	defer cancel()

	tree, err := bvh.NewBuilder(objects, params, bvh.WithProgress(&progressLogger{interval: progressLogInterval})).Run(runCtx)
	if err != nil {
		return err
	}
	logger.Noticef("BVH %s statistics:\n%s", tree.ID, tree.Stats.Table())

	if dotFile := ctx.String("dot"); dotFile != "" {
		if err = writeDot(dotFile, tree.Root); err != nil {
			return err
		}
		logger.Noticef("wrote BVH to %s", dotFile)
	}
	return nil
}

func randomPoint(r *rand.Rand, extent float32) types.Vec3 {
	return types.XYZ(
		(r.Float32()*2-1)*extent,
		r.Float32()*extent,
		(r.Float32()*2-1)*extent,
	)
}

func syntheticObjects(r *rand.Rand, triangles, meshes, curves, points int, ground bool) []*input.Object {
	var objects []*input.Object
	if meshes < 1 {
		meshes = 1
	}

	for m := 0; m < meshes && triangles > 0; m++ {
		mesh := input.NewMesh("mesh")
		for i := m; i < triangles; i += meshes {
			c := randomPoint(r, syntheticExtent)
			base := int32(len(mesh.Verts))
			for v := 0; v < 3; v++ {
				mesh.Verts = append(mesh.Verts, c.Add(randomPoint(r, 0.5)))
			}
			mesh.Triangles = append(mesh.Triangles, [3]int32{base, base + 1, base + 2})
		}
		objects = append(objects, input.NewObject(mesh.Name, mesh))
	}

	if curves > 0 {
		hair := input.NewHair("hair")
		for i := 0; i < curves; i++ {
			start := randomPoint(r, syntheticExtent)
			dir := randomPoint(r, 1)
			hair.AddCurve([]types.Vec3{start, start.Add(dir), start.Add(dir.Mul(2)), start.Add(dir.Mul(3))}, 0.02)
		}
		objects = append(objects, input.NewObject(hair.Name, hair))
	}

	if points > 0 {
		pc := input.NewPointCloud("points")
		for i := 0; i < points; i++ {
			pc.AddPoint(randomPoint(r, syntheticExtent), 0.1)
		}
		objects = append(objects, input.NewObject(pc.Name, pc))
	}

	if ground {
		plane := input.NewMesh("ground")
		e := float32(syntheticExtent)
		plane.Verts = []types.Vec3{{-e, 0, -e}, {e, 0, -e}, {e, 0, e}, {-e, 0, e}}
		plane.Triangles = [][3]int32{{0, 1, 2}, {0, 2, 3}}
		objects = append(objects, input.NewObject(plane.Name, plane))
	}
	return objects
}
