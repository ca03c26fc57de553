// platescan server - samples a live video source, recognizes the code under
// the guide box, and serves the matched catalog entry over HTTP/WebSocket
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/platescan/internal/catalog"
	"github.com/GriffinCanCode/platescan/internal/config"
	"github.com/GriffinCanCode/platescan/internal/display"
	"github.com/GriffinCanCode/platescan/internal/frames"
	"github.com/GriffinCanCode/platescan/internal/geometry"
	"github.com/GriffinCanCode/platescan/internal/history"
	"github.com/GriffinCanCode/platescan/internal/metrics"
	"github.com/GriffinCanCode/platescan/internal/pipeline"
	"github.com/GriffinCanCode/platescan/internal/recognizer"
	"github.com/GriffinCanCode/platescan/internal/resilience"
)

const historyEventBuffer = 100

func main() {
	cfg := config.Load()

	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := catalog.Load(ctx, catalog.FileProvider{Path: cfg.CatalogPath})
	if err != nil {
		slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	region, _ := cfg.Region()
	src, err := frames.New(frames.Config{
		Kind:        cfg.FrameSource,
		Command:     cfg.CaptureCommand,
		SnapshotURL: cfg.SnapshotURL,
		File:        cfg.FrameFile,
		Region:      region,
		Timeout:     cfg.FrameTimeout,
	})
	if err != nil {
		slog.Error("failed to open frame source", "source", cfg.FrameSource, "error", err)
		os.Exit(1)
	}
	defer src.Close()

	m := metrics.New()

	engine, err := newEngine(cfg, m)
	if err != nil {
		slog.Error("failed to create recognizer", "recognizer", cfg.Recognizer, "error", err)
		os.Exit(1)
	}
	defer func() { _ = engine.Close() }()

	hist := history.NewStore(cfg.HistorySize, historyEventBuffer)
	canvas := geometry.Size{W: cfg.CanvasWidth, H: cfg.CanvasHeight}
	srv := display.New(display.NewRenderer(canvas, display.JPEGQuality), hist, m.Handler())

	session, err := pipeline.New(pipeline.Config{
		Canvas:      canvas,
		Guide:       geometry.GuideBox{W: cfg.GuideWidth, H: cfg.GuideHeight},
		Interval:    cfg.RecognitionInterval,
		Timeout:     cfg.RecognitionTimeout,
		SkipSimilar: cfg.SkipSimilarRegions,
	}, src, srv, engine, cat)
	if err != nil {
		slog.Error("failed to create pipeline", "error", err)
		os.Exit(1)
	}
	session.WithMetrics(m).WithHistory(hist)

	go session.Run(ctx, cfg.DisplayRate)
	go srv.BroadcastHistory(ctx, hist.Events())

	httpServer := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     srv.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("platescan starting",
			"http", cfg.HTTPAddr,
			"source", cfg.FrameSource,
			"recognizer", cfg.Recognizer,
			"catalog_entries", cat.Len(),
		)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	session.Stop()
	cancel()
	session.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
}

func newEngine(cfg *config.Config, m *metrics.Metrics) (recognizer.Engine, error) {
	switch cfg.Recognizer {
	case config.RecognizerTesseract:
		e, err := recognizer.NewTesseract(cfg.OCRLanguages...)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		client, err := recognizer.Dial(cfg.RecognizerAddr)
		if err != nil {
			return nil, err
		}
		client.Breaker().WithHook(func(_, to resilience.State) {
			m.BreakerState.Set(float64(to))
		})
		return client, nil
	}
}
