package reader

import (
	"context"
	"fmt"
	"strings"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*input.Scene, error)
}

// Read scene from a file, an http(s) url or, for "-", the standard input
// which is parsed as a wavefront obj stream.
func ReadScene(ctx context.Context, filename string) (*input.Scene, error) {
	// Select reader based on file extension
	var reader Reader
	if filename == asset.StdinName || strings.HasSuffix(strings.ToLower(filename), ".obj") {
		reader = newWavefrontReader()
	} else {
		return nil, fmt.Errorf("readScene: unsupported file format")
	}

	res, err := asset.NewResourceContext(ctx, filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return reader.Read(res)
}
