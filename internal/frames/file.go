package frames

import (
	"context"
	"fmt"
	"image"
	"os"
)

// fileBackend re-reads one image file every cycle, so an external writer can
// replace it between frames.
type fileBackend struct {
	path string
}

// NewFile returns a source backed by an image on disk.
func NewFile(path string) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("frame file path is empty")
	}
	return newSource("file", &fileBackend{path: path}), nil
}

func (f *fileBackend) grab(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (f *fileBackend) cleanup() {}
