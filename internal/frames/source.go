// Package frames acquires still frames from a live video source.
package frames

import (
	"context"
	"image"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
	"github.com/GriffinCanCode/platescan/internal/geometry"
)

// Frame is one captured image. The caller owns it for one pipeline cycle.
type Frame struct {
	Image      image.Image
	Seq        uint64
	CapturedAt time.Time
}

// Size returns the frame dimensions.
func (f Frame) Size() geometry.Size {
	return geometry.SizeOf(f.Image.Bounds())
}

// backend implements one way of grabbing a raw image.
type backend interface {
	grab(ctx context.Context) (image.Image, error)
	cleanup()
}

// Source wraps a backend with sequencing and error classification.
type Source struct {
	backend
	kind string

	mu  sync.Mutex
	seq uint64
	now func() time.Time
}

func newSource(kind string, b backend) *Source {
	return &Source{backend: b, kind: kind, now: time.Now}
}

// Kind names the backend.
func (s *Source) Kind() string { return s.kind }

// Acquire grabs the next frame. Every failure is a FRAME_ACQUISITION_FAILED
// AppError; callers skip the cycle and try again on the next one.
func (s *Source) Acquire(ctx context.Context) (Frame, error) {
	img, err := s.grab(ctx)
	if err != nil {
		return Frame{}, apperrors.Wrap(err, apperrors.FrameAcquisitionFailed, "grab frame").WithMetadata("source", s.kind)
	}
	if img == nil || img.Bounds().Empty() {
		return Frame{}, apperrors.New(apperrors.FrameAcquisitionFailed, "empty frame").WithMetadata("source", s.kind)
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	return Frame{Image: img, Seq: seq, CapturedAt: s.now()}, nil
}

// Close releases backend resources.
func (s *Source) Close() {
	s.cleanup()
}
