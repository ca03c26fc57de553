// Package display renders presented frames and pushes them, with the
// confirmed catalog entry, to HTTP and WebSocket clients.
package display

import (
	"image/color"
	"time"
)

// Display configuration constants
const (
	// JPEG quality for rendered frames
	JPEGQuality = 75

	// Guide box stroke width in canvas pixels
	GuideStrokeWidth = 2

	// Per-connection limits on client messages and pushed frames
	RateLimitMessages = 10
	RateLimitWindow   = time.Second
	FramePushLimit    = 15

	// Deadline for a single WebSocket write
	WriteTimeout = 2 * time.Second

	// Default and maximum records returned by /api/history
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// Overlay colors.
var (
	MatchColor   = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	NoMatchColor = color.RGBA{R: 220, G: 0, B: 0, A: 255}
)
