package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/polaris-bvh/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "polaris-bvh"
	app.Usage = "build bounding volume hierarchies for ray tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set the log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "build a two level BVH for wavefront obj scenes",
			Description: `
Parse a scene definition from a wavefront obj file (or "-" for stdin), build a
BVH tree for each object geometry and a top level BVH over the object instances
and display statistics about the packed scene.

Faces become triangle meshes, lines become curves and points become point
clouds. Each "o" or "g" statement starts a new object.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Flags:     append(append([]cli.Flag{}, cmd.BuildFlags...), cmd.CompileFlags...),
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "display information about a packed scene written by compile",
			ArgsUsage: "scene.zip",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:  "synthetic",
			Usage: "build a BVH over a random scene",
			Description: `
Generate a random scene of triangles, curves and points and build a BVH over it.
Useful for benchmarking the builder and comparing build parameters.`,
			Flags:  append(append([]cli.Flag{}, cmd.BuildFlags...), cmd.SyntheticFlags...),
			Action: cmd.BuildSynthetic,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
