package pipeline

import (
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Preprocessor transforms the cropped region before recognition.
type Preprocessor func(image.Image) image.Image

// Grayscale converts the region to gray and upscales it to at least
// MinRecognitionHeight pixels tall.
func Grayscale(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	if b.Dy() >= MinRecognitionHeight || b.Dy() == 0 {
		return gray
	}
	w := b.Dx() * MinRecognitionHeight / b.Dy()
	dst := image.NewGray(image.Rect(0, 0, max(w, 1), MinRecognitionHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), gray, b, draw.Src, nil)
	return dst
}

func cropRegion(img image.Image, r image.Rectangle) image.Image {
	return imaging.Crop(img, r)
}
