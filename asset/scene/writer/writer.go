package writer

import (
	"io"
	"os"

	"github.com/achilleasa/polaris-bvh/asset/scene"
)

// The Writer interface is implemented by all scene writers.
type Writer interface {
	// Write scene definition
	Write(*scene.Scene) error
}

// Write packed scene to a zip archive.
func WriteScene(sc *scene.Scene, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err = newZipSceneWriter(filename, f).Write(sc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write packed scene as a zip archive to w.
func WriteSceneTo(sc *scene.Scene, w io.Writer) error {
	return newZipSceneWriter("stream", w).Write(sc)
}
