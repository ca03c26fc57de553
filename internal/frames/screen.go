package frames

import (
	"context"
	"image"

	"github.com/vova616/screenshot"
)

// screenBackend grabs the primary display, or a region of it, for setups
// where the camera preview is mirrored on screen.
type screenBackend struct {
	region image.Rectangle
}

// NewScreen returns a screen source. An empty region captures the whole screen.
func NewScreen(region image.Rectangle) *Source {
	return newSource("screen", &screenBackend{region: region})
}

func (s *screenBackend) grab(context.Context) (image.Image, error) {
	if s.region.Empty() {
		return screenshot.CaptureScreen()
	}
	return screenshot.CaptureRect(s.region)
}

func (s *screenBackend) cleanup() {}
