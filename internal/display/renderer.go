package display

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
	"github.com/GriffinCanCode/platescan/internal/geometry"
	"github.com/GriffinCanCode/platescan/internal/pipeline"
)

// Renderer draws the display crop of a frame onto the canvas with the guide
// box overlay.
type Renderer struct {
	canvas  image.Rectangle
	quality int
}

// NewRenderer creates a renderer for a canvas of the given size.
func NewRenderer(canvas geometry.Size, quality int) *Renderer {
	if quality <= 0 || quality > 100 {
		quality = JPEGQuality
	}
	return &Renderer{
		canvas:  image.Rect(0, 0, int(math.Round(canvas.W)), int(math.Round(canvas.H))),
		quality: quality,
	}
}

// Render scales the crop region of src to fill the canvas and strokes the
// guide box green when matched, red otherwise.
func (r *Renderer) Render(src image.Image, crop geometry.Rect, state pipeline.GuideState) *image.RGBA {
	dst := image.NewRGBA(r.canvas)
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, crop.Image(src.Bounds()), draw.Src, nil)

	c := NoMatchColor
	if state.Matched {
		c = MatchColor
	}
	strokeRect(dst, state.Box.Image(dst.Bounds()), GuideStrokeWidth, c)
	return dst
}

// Encode renders and JPEG-encodes in one step.
func (r *Renderer) Encode(src image.Image, crop geometry.Rect, state pipeline.GuideState) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, r.Render(src, crop, state), &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "encode frame")
	}
	return buf.Bytes(), nil
}

func strokeRect(dst draw.Image, r image.Rectangle, width int, c color.Color) {
	u := image.NewUniform(c)
	w := min(width, r.Dx(), r.Dy())
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(dst, edge, u, image.Point{}, draw.Src)
	}
}
