package cmd

import (
	"errors"
	"strings"

	"github.com/achilleasa/polaris-bvh/asset/scene/reader"
	"github.com/urfave/cli"
)

// Display compiled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing compiled scene zip file")
	}

	sceneFile := ctx.Args().First()
	if !strings.HasSuffix(sceneFile, ".zip") {
		return errors.New("only compiled scene files with a .zip extension are supported")
	}

	runCtx, cancel := interruptContext()
	defer cancel()

	sc, err := reader.ReadCompiledScene(runCtx, sceneFile)
	if err != nil {
		return err
	}

	// Display compiled scene info
	logger.Noticef("scene information:\n%s", sc.Stats())
	for i, id := range sc.BuildIDs {
		logger.Infof("tree %d: build %s", i, id)
	}
	return nil
}
