package pipeline

import "time"

// Pipeline defaults.
const (
	// Hamming distance at or below which two pHashes count as the same region.
	MaxHashDistance = 3

	// Regions shorter than this are upscaled before recognition.
	MinRecognitionHeight = 48

	DefaultRecognitionTimeout = 5 * time.Second
	DefaultDisplayRate        = 10.0
)
