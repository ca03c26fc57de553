//go:build tesseract

package recognizer

import (
	"context"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
)

// TesseractEngine recognizes codes with a local Tesseract install. One
// client is held for the engine's lifetime; Close releases it.
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates an engine tuned for single-line codes.
func NewTesseract(languages ...string) (*TesseractEngine, error) {
	c := gosseract.NewClient()
	if len(languages) > 0 {
		if err := c.SetLanguage(languages...); err != nil {
			_ = c.Close()
			return nil, apperrors.Wrap(err, apperrors.OCRInitFailed, "set languages")
		}
	}
	if err := c.SetWhitelist(CodeWhitelist); err != nil {
		_ = c.Close()
		return nil, apperrors.Wrap(err, apperrors.OCRInitFailed, "set whitelist")
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		_ = c.Close()
		return nil, apperrors.Wrap(err, apperrors.OCRInitFailed, "set page segmentation")
	}
	return &TesseractEngine{client: c}, nil
}

// Recognize runs Tesseract on img.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", apperrors.Wrap(err, apperrors.Cancelled, "recognize")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.client.SetImageFromBytes(data); err != nil {
		return "", apperrors.Wrap(err, apperrors.RecognitionFailed, "set image")
	}
	text, err := e.client.Text()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.RecognitionFailed, "recognize text")
	}
	return normalize(text), nil
}

// Close releases the Tesseract client.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
