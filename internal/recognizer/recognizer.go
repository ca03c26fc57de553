// Package recognizer turns a cropped frame region into text.
package recognizer

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
)

// Engine recognizes the text in one image region.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// CodeWhitelist is every character a code can contain.
const CodeWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"

// encodePNG serializes a region for transport or for engines that take bytes.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidArgument, "encode region")
	}
	return buf.Bytes(), nil
}

// normalize collapses engine output to a single trimmed line.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
