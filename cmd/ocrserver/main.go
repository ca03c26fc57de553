// OCR server - hosts the local Tesseract engine as the gRPC recognition
// service the platescan server dials. Build with -tags tesseract.
package main

import (
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/GriffinCanCode/platescan/internal/config"
	"github.com/GriffinCanCode/platescan/internal/recognizer"
)

func main() {
	cfg := config.Load()

	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	engine, err := recognizer.NewTesseract(cfg.OCRLanguages...)
	if err != nil {
		slog.Error("failed to start tesseract", "error", err)
		os.Exit(1)
	}
	defer func() { _ = engine.Close() }()

	lis, err := net.Listen("tcp", cfg.OCRListenAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.OCRListenAddr, "error", err)
		os.Exit(1)
	}

	srv := grpc.NewServer()
	recognizer.Register(srv, engine)

	go func() {
		slog.Info("ocr server starting", "addr", cfg.OCRListenAddr, "languages", cfg.OCRLanguages)
		if err := srv.Serve(lis); err != nil {
			slog.Error("grpc server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	srv.GracefulStop()
	slog.Info("shutdown complete")
}
