// Package config handles service configuration
package config

import (
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
	"github.com/GriffinCanCode/platescan/internal/frames"
)

// Recognizer backends.
const (
	RecognizerGRPC      = "grpc"
	RecognizerTesseract = "tesseract"
)

type Config struct {
	HTTPAddr            string
	Recognizer          string
	RecognizerAddr      string
	OCRListenAddr       string
	OCRLanguages        []string
	RecognitionInterval time.Duration
	RecognitionTimeout  time.Duration
	DisplayRate         float64 // Hz
	CanvasWidth         float64
	CanvasHeight        float64
	GuideWidth          float64
	GuideHeight         float64
	CatalogPath         string
	FrameSource         string
	CaptureCommand      []string
	SnapshotURL         string
	FrameFile           string
	FrameTimeout        time.Duration
	ScreenRegion        string // "x,y,w,h"; empty captures the whole screen
	SkipSimilarRegions  bool
	LogLevel            string
	HistorySize         int
}

func Load() *Config {
	return &Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8000"),
		Recognizer:          getEnv("RECOGNIZER", RecognizerGRPC),
		RecognizerAddr:      getEnv("RECOGNIZER_ADDR", "localhost:50051"),
		OCRListenAddr:       getEnv("OCR_LISTEN_ADDR", ":50051"),
		OCRLanguages:        getEnvList("OCR_LANGUAGES", []string{"eng"}),
		RecognitionInterval: getEnvMillis("RECOGNITION_INTERVAL_MS", 750),
		RecognitionTimeout:  getEnvMillis("RECOGNITION_TIMEOUT_MS", 5000),
		DisplayRate:         getEnvFloat("DISPLAY_RATE", 10),
		CanvasWidth:         getEnvFloat("CANVAS_WIDTH", 640),
		CanvasHeight:        getEnvFloat("CANVAS_HEIGHT", 480),
		GuideWidth:          getEnvFloat("GUIDE_WIDTH", 100),
		GuideHeight:         getEnvFloat("GUIDE_HEIGHT", 40),
		CatalogPath:         getEnv("CATALOG_PATH", "catalog.json"),
		FrameSource:         getEnv("FRAME_SOURCE", frames.KindCommand),
		CaptureCommand:      getEnvFields("CAPTURE_COMMAND", nil),
		SnapshotURL:         getEnv("SNAPSHOT_URL", ""),
		FrameFile:           getEnv("FRAME_FILE", ""),
		FrameTimeout:        getEnvMillis("FRAME_TIMEOUT_MS", 2000),
		ScreenRegion:        getEnv("SCREEN_REGION", ""),
		SkipSimilarRegions:  getEnvBool("SKIP_SIMILAR_REGIONS", true),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		HistorySize:         getEnvInt("HISTORY_SIZE", 50),
	}
}

// Validate reports the first setting the service cannot start with.
func (c *Config) Validate() error {
	positive := []struct {
		key string
		v   float64
	}{
		{"DISPLAY_RATE", c.DisplayRate},
		{"CANVAS_WIDTH", c.CanvasWidth},
		{"CANVAS_HEIGHT", c.CanvasHeight},
		{"GUIDE_WIDTH", c.GuideWidth},
		{"GUIDE_HEIGHT", c.GuideHeight},
		{"RECOGNITION_INTERVAL_MS", float64(c.RecognitionInterval)},
		{"RECOGNITION_TIMEOUT_MS", float64(c.RecognitionTimeout)},
		{"FRAME_TIMEOUT_MS", float64(c.FrameTimeout)},
		{"HISTORY_SIZE", float64(c.HistorySize)},
	}
	for _, p := range positive {
		if !(p.v > 0) {
			return invalid(p.key, "must be positive")
		}
	}

	switch c.Recognizer {
	case RecognizerGRPC:
		if c.RecognizerAddr == "" {
			return invalid("RECOGNIZER_ADDR", "required for the grpc recognizer")
		}
	case RecognizerTesseract:
	default:
		return invalid("RECOGNIZER", "must be grpc or tesseract")
	}

	switch c.FrameSource {
	case frames.KindCommand:
		if len(c.CaptureCommand) == 0 {
			return invalid("CAPTURE_COMMAND", "required for the command frame source")
		}
	case frames.KindSnapshot:
		if c.SnapshotURL == "" {
			return invalid("SNAPSHOT_URL", "required for the snapshot frame source")
		}
	case frames.KindFile:
		if c.FrameFile == "" {
			return invalid("FRAME_FILE", "required for the file frame source")
		}
	case frames.KindScreen:
		if _, err := c.Region(); err != nil {
			return err
		}
	default:
		return invalid("FRAME_SOURCE", "must be command, snapshot, screen or file")
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.CatalogPath == "" {
		return invalid("CATALOG_PATH", "required")
	}
	return nil
}

// Region parses ScreenRegion. An empty value yields the zero rectangle.
func (c *Config) Region() (image.Rectangle, error) {
	if c.ScreenRegion == "" {
		return image.Rectangle{}, nil
	}
	parts := strings.Split(c.ScreenRegion, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, invalid("SCREEN_REGION", "want x,y,w,h")
	}
	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, invalid("SCREEN_REGION", "want integers x,y,w,h")
		}
		n[i] = v
	}
	if n[2] <= 0 || n[3] <= 0 {
		return image.Rectangle{}, invalid("SCREEN_REGION", "width and height must be positive")
	}
	return image.Rect(n[0], n[1], n[0]+n[2], n[1]+n[3]), nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, apperrors.Wrap(err, apperrors.ConfigInvalid, "invalid LOG_LEVEL").WithMetadata("key", "LOG_LEVEL")
	}
	return level, nil
}

func invalid(key, msg string) error {
	return apperrors.Newf(apperrors.ConfigInvalid, "%s %s", key, msg).WithMetadata("key", key)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvMillis(key string, def int) time.Duration {
	return time.Duration(getEnvInt(key, def)) * time.Millisecond
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}

func getEnvFields(key string, def []string) []string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.Fields(v)
	}
	return def
}
