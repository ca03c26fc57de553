package config

import (
	"image"
	"log/slog"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
	"github.com/GriffinCanCode/platescan/internal/frames"
)

var allKeys = []string{
	"HTTP_ADDR", "RECOGNIZER", "RECOGNIZER_ADDR", "OCR_LISTEN_ADDR", "OCR_LANGUAGES",
	"RECOGNITION_INTERVAL_MS", "RECOGNITION_TIMEOUT_MS", "DISPLAY_RATE",
	"CANVAS_WIDTH", "CANVAS_HEIGHT", "GUIDE_WIDTH", "GUIDE_HEIGHT", "CATALOG_PATH",
	"FRAME_SOURCE", "CAPTURE_COMMAND", "SNAPSHOT_URL", "FRAME_FILE", "FRAME_TIMEOUT_MS",
	"SCREEN_REGION", "SKIP_SIMILAR_REGIONS", "LOG_LEVEL", "HISTORY_SIZE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8000")
	}
	if cfg.Recognizer != RecognizerGRPC {
		t.Errorf("Recognizer = %q, want %q", cfg.Recognizer, RecognizerGRPC)
	}
	if cfg.RecognizerAddr != "localhost:50051" {
		t.Errorf("RecognizerAddr = %q", cfg.RecognizerAddr)
	}
	if cfg.RecognitionInterval != 750*time.Millisecond {
		t.Errorf("RecognitionInterval = %v, want 750ms", cfg.RecognitionInterval)
	}
	if cfg.RecognitionTimeout != 5*time.Second {
		t.Errorf("RecognitionTimeout = %v, want 5s", cfg.RecognitionTimeout)
	}
	if cfg.DisplayRate != 10 {
		t.Errorf("DisplayRate = %f, want 10", cfg.DisplayRate)
	}
	if cfg.CanvasWidth != 640 || cfg.CanvasHeight != 480 {
		t.Errorf("canvas = %gx%g, want 640x480", cfg.CanvasWidth, cfg.CanvasHeight)
	}
	if cfg.GuideWidth != 100 || cfg.GuideHeight != 40 {
		t.Errorf("guide = %gx%g, want 100x40", cfg.GuideWidth, cfg.GuideHeight)
	}
	if cfg.CatalogPath != "catalog.json" {
		t.Errorf("CatalogPath = %q", cfg.CatalogPath)
	}
	if cfg.FrameSource != frames.KindCommand || cfg.CaptureCommand != nil {
		t.Errorf("frame source = %q %v", cfg.FrameSource, cfg.CaptureCommand)
	}
	if !cfg.SkipSimilarRegions {
		t.Error("SkipSimilarRegions should default to true")
	}
	if cfg.LogLevel != "info" || cfg.HistorySize != 50 {
		t.Errorf("LogLevel = %q, HistorySize = %d", cfg.LogLevel, cfg.HistorySize)
	}
	if len(cfg.OCRLanguages) != 1 || cfg.OCRLanguages[0] != "eng" {
		t.Errorf("OCRLanguages = %v", cfg.OCRLanguages)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("RECOGNIZER", "tesseract")
	t.Setenv("OCR_LANGUAGES", "eng, deu")
	t.Setenv("RECOGNITION_INTERVAL_MS", "1000")
	t.Setenv("DISPLAY_RATE", "24")
	t.Setenv("CAPTURE_COMMAND", "ffmpeg -y -i /dev/video0 -frames:v 1 {out}")
	t.Setenv("SKIP_SIMILAR_REGIONS", "false")
	t.Setenv("HISTORY_SIZE", "not-a-number")

	cfg := Load()

	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Recognizer != RecognizerTesseract {
		t.Errorf("Recognizer = %q", cfg.Recognizer)
	}
	if len(cfg.OCRLanguages) != 2 || cfg.OCRLanguages[1] != "deu" {
		t.Errorf("OCRLanguages = %v", cfg.OCRLanguages)
	}
	if cfg.RecognitionInterval != time.Second {
		t.Errorf("RecognitionInterval = %v", cfg.RecognitionInterval)
	}
	if cfg.DisplayRate != 24 {
		t.Errorf("DisplayRate = %f", cfg.DisplayRate)
	}
	if len(cfg.CaptureCommand) != 8 || cfg.CaptureCommand[0] != "ffmpeg" || cfg.CaptureCommand[7] != "{out}" {
		t.Errorf("CaptureCommand = %v", cfg.CaptureCommand)
	}
	if cfg.SkipSimilarRegions {
		t.Error("SkipSimilarRegions should be false")
	}
	if cfg.HistorySize != 50 {
		t.Errorf("unparsable HISTORY_SIZE should fall back to default, got %d", cfg.HistorySize)
	}
}

func validConfig() *Config {
	return &Config{
		HTTPAddr:            ":8000",
		Recognizer:          RecognizerGRPC,
		RecognizerAddr:      "localhost:50051",
		RecognitionInterval: 750 * time.Millisecond,
		RecognitionTimeout:  5 * time.Second,
		DisplayRate:         10,
		CanvasWidth:         640,
		CanvasHeight:        480,
		GuideWidth:          100,
		GuideHeight:         40,
		CatalogPath:         "catalog.json",
		FrameSource:         frames.KindFile,
		FrameFile:           "frame.jpg",
		FrameTimeout:        2 * time.Second,
		LogLevel:            "info",
		HistorySize:         50,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		key    string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero canvas", func(c *Config) { c.CanvasWidth = 0 }, "CANVAS_WIDTH"},
		{"negative guide", func(c *Config) { c.GuideHeight = -1 }, "GUIDE_HEIGHT"},
		{"zero interval", func(c *Config) { c.RecognitionInterval = 0 }, "RECOGNITION_INTERVAL_MS"},
		{"unknown recognizer", func(c *Config) { c.Recognizer = "cloud" }, "RECOGNIZER"},
		{"grpc without addr", func(c *Config) { c.RecognizerAddr = "" }, "RECOGNIZER_ADDR"},
		{"tesseract needs no addr", func(c *Config) { c.Recognizer = RecognizerTesseract; c.RecognizerAddr = "" }, ""},
		{"command without command", func(c *Config) { c.FrameSource = frames.KindCommand }, "CAPTURE_COMMAND"},
		{"snapshot without url", func(c *Config) { c.FrameSource = frames.KindSnapshot }, "SNAPSHOT_URL"},
		{"file without path", func(c *Config) { c.FrameFile = "" }, "FRAME_FILE"},
		{"screen full", func(c *Config) { c.FrameSource = frames.KindScreen }, ""},
		{"screen bad region", func(c *Config) { c.FrameSource = frames.KindScreen; c.ScreenRegion = "1,2,3" }, "SCREEN_REGION"},
		{"unknown source", func(c *Config) { c.FrameSource = "webcam" }, "FRAME_SOURCE"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"no catalog", func(c *Config) { c.CatalogPath = "" }, "CATALOG_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.key == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !apperrors.IsCode(err, apperrors.ConfigInvalid) {
				t.Fatalf("Validate() = %v, want CONFIG_INVALID", err)
			}
			if appErr := err.(*apperrors.AppError); appErr.Metadata["key"] != tt.key {
				t.Errorf("key = %q, want %q", appErr.Metadata["key"], tt.key)
			}
		})
	}
}

func TestValidateAcceptsEveryFrameKind(t *testing.T) {
	for _, kind := range []string{frames.KindCommand, frames.KindSnapshot, frames.KindScreen, frames.KindFile} {
		cfg := validConfig()
		cfg.FrameSource = kind
		cfg.CaptureCommand = []string{"cat", "frame.png"}
		cfg.SnapshotURL = "http://camera.local/snapshot.jpg"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v", kind, err)
		}
	}
}

func TestRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    image.Rectangle
		wantErr bool
	}{
		{"", image.Rectangle{}, false},
		{"10,20,300,100", image.Rect(10, 20, 310, 120), false},
		{" 0, 0, 50, 50 ", image.Rect(0, 0, 50, 50), false},
		{"0,0,0,10", image.Rectangle{}, true},
		{"a,b,c,d", image.Rectangle{}, true},
	}
	for _, tt := range tests {
		cfg := &Config{ScreenRegion: tt.in}
		got, err := cfg.Region()
		if (err != nil) != tt.wantErr {
			t.Errorf("Region(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Region(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError} {
		cfg := &Config{LogLevel: in}
		got, err := cfg.SlogLevel()
		if err != nil || got != want {
			t.Errorf("SlogLevel(%q) = %v, %v", in, got, err)
		}
	}
}
