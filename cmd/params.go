package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/urfave/cli"
)

// Flags that map onto the BVH build parameters.
var BuildFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "spatial",
		Usage: "enable spatial splits",
	},
	cli.Float64Flag{
		Name:  "alpha",
		Value: 1e-5,
		Usage: "minimum child overlap, relative to the root area, for evaluating spatial splits",
	},
	cli.BoolFlag{
		Name:  "unaligned",
		Usage: "enable unaligned nodes for curves",
	},
	cli.IntFlag{
		Name:  "workers",
		Value: 0,
		Usage: "number of build workers; 0 uses all cpus",
	},
	cli.IntFlag{
		Name:  "leaf-size",
		Value: 8,
		Usage: "max number of triangles or points per leaf",
	},
	cli.IntFlag{
		Name:  "rotate",
		Value: 0,
		Usage: "number of tree rotation passes; 0 disables rotation",
	},
	cli.IntFlag{
		Name:  "motion-steps",
		Value: 0,
		Usage: "number of motion time steps per primitive type",
	},
	cli.StringFlag{
		Name:  "dot",
		Usage: "write the top level tree in graphviz format to this file",
	},
}

// Build and validate the BVH parameters selected by the command flags.
func buildParams(ctx *cli.Context) (bvh.Params, error) {
	p := bvh.DefaultParams()
	p.UseSpatialSplit = ctx.Bool("spatial")
	p.SpatialSplitAlpha = float32(ctx.Float64("alpha"))
	p.UseUnalignedNodes = ctx.Bool("unaligned")
	p.Workers = ctx.Int("workers")
	p.RotationIterations = ctx.Int("rotate")

	leafSize := ctx.Int("leaf-size")
	p.MaxTriangleLeafSize = leafSize
	p.MaxMotionTriangleLeafSize = leafSize
	p.MaxPointLeafSize = leafSize
	p.MaxMotionPointLeafSize = leafSize

	steps := ctx.Int("motion-steps")
	p.NumMotionTriangleSteps = steps
	p.NumMotionCurveSteps = steps
	p.NumMotionPointSteps = steps

	return p, p.Validate()
}

// A context that is cancelled on SIGINT.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

const progressLogInterval = time.Second

// Logs build progress at most once per interval.
type progressLogger struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func (p *progressLogger) Update(done, total int) {
	p.mu.Lock()
	now := time.Now()
	if now.Sub(p.last) < p.interval {
		p.mu.Unlock()
		return
	}
	p.last = now
	p.mu.Unlock()

	logger.Infof("placed %d/%d references", done, total)
}

func (p *progressLogger) Cancelled() bool {
	return false
}

func writeDot(path string, root bvh.Node) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = bvh.WriteDot(f, root); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
