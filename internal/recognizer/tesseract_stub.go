//go:build !tesseract

package recognizer

import (
	"context"
	"image"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
)

// TesseractEngine is unavailable in builds without the tesseract tag.
type TesseractEngine struct{}

// NewTesseract reports that local OCR was not compiled in.
func NewTesseract(...string) (*TesseractEngine, error) {
	return nil, apperrors.New(apperrors.OCRInitFailed, "built without tesseract support (rebuild with -tags tesseract)")
}

// Recognize always fails.
func (*TesseractEngine) Recognize(context.Context, image.Image) (string, error) {
	return "", apperrors.New(apperrors.OCRInitFailed, "tesseract not available")
}

// Close is a no-op.
func (*TesseractEngine) Close() error { return nil }
