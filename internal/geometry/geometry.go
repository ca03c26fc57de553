// Package geometry maps source frames onto the display canvas and back.
//
// All rectangles are expressed in source-frame pixels unless a function says
// otherwise. Every function here is pure.
package geometry

import (
	stderrors "errors"
	"image"
	"math"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
)

// ErrInvalidDimension is returned for zero, negative or NaN sizes.
var ErrInvalidDimension = stderrors.New("invalid dimension")

// Size is a width/height pair.
type Size struct {
	W, H float64
}

// Valid reports whether both sides are strictly positive.
func (s Size) Valid() bool {
	return s.W > 0 && s.H > 0
}

// Ratio returns W/H.
func (s Size) Ratio() float64 {
	return s.W / s.H
}

// SizeOf returns the size of an image.Rectangle.
func SizeOf(r image.Rectangle) Size {
	return Size{W: float64(r.Dx()), H: float64(r.Dy())}
}

// Rect is an axis-aligned rectangle with float coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Image rounds r to integer pixels and clamps it to bounds. The result is
// never empty when bounds is non-empty.
func (r Rect) Image(bounds image.Rectangle) image.Rectangle {
	out := image.Rect(
		bounds.Min.X+int(math.Round(r.X)),
		bounds.Min.Y+int(math.Round(r.Y)),
		bounds.Min.X+int(math.Round(r.X+r.W)),
		bounds.Min.Y+int(math.Round(r.Y+r.H)),
	).Intersect(bounds)
	if out.Empty() && !bounds.Empty() {
		x := min(max(bounds.Min.X+int(r.X), bounds.Min.X), bounds.Max.X-1)
		y := min(max(bounds.Min.Y+int(r.Y), bounds.Min.Y), bounds.Max.Y-1)
		out = image.Rect(x, y, x+1, y+1)
	}
	return out
}

// GuideBox is the fixed-size overlay the user aligns text within. It is
// always centered on the canvas.
type GuideBox struct {
	W, H float64
}

// DefaultGuideBox is the overlay size in logical display units.
var DefaultGuideBox = GuideBox{W: 100, H: 40}

// Rect returns the guide box in canvas coordinates. A box larger than the
// canvas is clamped to the canvas on that axis.
func (g GuideBox) Rect(canvas Size) Rect {
	w := min(g.W, canvas.W)
	h := min(g.H, canvas.H)
	return Rect{X: (canvas.W - w) / 2, Y: (canvas.H - h) / 2, W: w, H: h}
}

// CoverCrop returns the source rectangle that, scaled to dst with its aspect
// ratio preserved, exactly fills dst. Excess source is cropped evenly from
// both sides of the longer axis.
func CoverCrop(src, dst Size) (Rect, error) {
	if err := validate("source", src); err != nil {
		return Rect{}, err
	}
	if err := validate("destination", dst); err != nil {
		return Rect{}, err
	}

	dstRatio := dst.Ratio()
	if src.Ratio() > dstRatio {
		sw := src.H * dstRatio
		return Rect{X: max(0, (src.W-sw)/2), Y: 0, W: sw, H: src.H}, nil
	}
	sh := src.W / dstRatio
	return Rect{X: 0, Y: max(0, (src.H-sh)/2), W: src.W, H: sh}, nil
}

// OCRCrop maps the guide box on a canvas showing display (the cover crop of
// the frame) back into source coordinates. Passing the display rectangle in
// keeps what is shown and what is recognized consistent by construction.
func OCRCrop(display Rect, canvas Size, guide GuideBox) (Rect, error) {
	if err := validate("display crop", Size{W: display.W, H: display.H}); err != nil {
		return Rect{}, err
	}
	if err := validate("canvas", canvas); err != nil {
		return Rect{}, err
	}
	if err := validate("guide box", Size{W: guide.W, H: guide.H}); err != nil {
		return Rect{}, err
	}

	scaleX := display.W / canvas.W
	scaleY := display.H / canvas.H
	box := guide.Rect(canvas)

	return Rect{
		X: display.X + box.X*scaleX,
		Y: display.Y + box.Y*scaleY,
		W: box.W * scaleX,
		H: box.H * scaleY,
	}, nil
}

// OCRCropForFrame computes the cover crop of frame onto canvas and then the
// guide box region inside it.
func OCRCropForFrame(frame, canvas Size, guide GuideBox) (Rect, error) {
	display, err := CoverCrop(frame, canvas)
	if err != nil {
		return Rect{}, err
	}
	return OCRCrop(display, canvas, guide)
}

func validate(name string, s Size) error {
	if s.Valid() {
		return nil
	}
	return apperrors.Wrapf(ErrInvalidDimension, apperrors.InvalidDimension,
		"%s must be positive, got %gx%g", name, s.W, s.H)
}
