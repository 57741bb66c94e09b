package writer

import (
	"archive/zip"
	"encoding/gob"
	"io"
	"time"

	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/log"
)

const (
	// Name of the archive entry holding the gob encoded scene.
	DataFile = "scene.bin"
)

type zipSceneWriter struct {
	logger log.Logger
	name   string
	out    io.Writer
}

// Create a new zip scene writer
func newZipSceneWriter(name string, out io.Writer) *zipSceneWriter {
	return &zipSceneWriter{
		logger: log.New("zip writer"),
		name:   name,
		out:    out,
	}
}

// Write scene definition to zip file.
func (w *zipSceneWriter) Write(sc *scene.Scene) error {
	w.logger.Noticef("writing compressed scene to %s", w.name)
	start := time.Now()

	zw := zip.NewWriter(w.out)

	// Write scene data
	cw, err := zw.Create(DataFile)
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(cw).Encode(sc); err != nil {
		return err
	}
	if err = zw.Close(); err != nil {
		return err
	}

	w.logger.Noticef("compressed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}
