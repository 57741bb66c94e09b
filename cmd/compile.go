package cmd

import (
	"errors"
	"fmt"

	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/scene/reader"
	"github.com/achilleasa/polaris-bvh/asset/scene/writer"
	"github.com/urfave/cli"
)

// Flags of the compile command besides the build flags.
var CompileFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "out, o",
		Usage: "write the packed scene to this zip file; with multiple scenes the scene index is appended to the name",
	},
}

// Build the two level BVH of obj scenes and display the packed scene info.
func CompileScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}
	if ctx.NArg() == 0 {
		return errors.New("missing scene file")
	}

	params, err := buildParams(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := interruptContext()
	defer cancel()

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		parsed, err := reader.ReadScene(runCtx, sceneFile)
		if err != nil {
			return err
		}

		var topLevel *bvh.BVH
		onBuild := func(name string, tree *bvh.BVH) {
			if name == "" {
				name = "scene"
				topLevel = tree
			}
			logger.Infof("BVH statistics for %q:\n%s", name, tree.Stats.Table())
		}

		sc, err := compiler.Compile(
			runCtx, parsed, params,
			compiler.WithBuildCallback(onBuild),
			compiler.WithBuildOptions(bvh.WithProgress(&progressLogger{interval: progressLogInterval})),
		)
		if err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())

		if outFile := ctx.String("out"); outFile != "" {
			if ctx.NArg() > 1 {
				outFile = fmt.Sprintf("%s.%d", outFile, idx)
			}
			if err = writer.WriteScene(sc, outFile); err != nil {
				return err
			}
		}

		if dotFile := ctx.String("dot"); dotFile != "" && topLevel != nil {
			if err = writeDot(dotFile, topLevel.Root); err != nil {
				return err
			}
			logger.Noticef("wrote scene BVH to %s", dotFile)
		}
	}

	return nil
}
