// Package pipeline drives one frame at a time from the frame source to the
// display, and hands the guide box region to the recognizer at a bounded rate.
package pipeline

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/platescan/internal/catalog"
	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
	"github.com/GriffinCanCode/platescan/internal/frames"
	"github.com/GriffinCanCode/platescan/internal/geometry"
	"github.com/GriffinCanCode/platescan/internal/history"
	"github.com/GriffinCanCode/platescan/internal/metrics"
	"github.com/GriffinCanCode/platescan/internal/throttle"
	"github.com/GriffinCanCode/platescan/internal/trace"
	"github.com/GriffinCanCode/platescan/internal/tracker"
)

// FrameSource yields frames. The returned frame belongs to the caller for
// one cycle.
type FrameSource interface {
	Acquire(ctx context.Context) (frames.Frame, error)
}

// GuideState describes the overlay drawn on top of a presented frame.
type GuideState struct {
	Box     geometry.Rect // canvas coordinates
	Matched bool
}

// Sink displays frames and confirmed entries.
type Sink interface {
	Present(frame frames.Frame, crop geometry.Rect, state GuideState)
	ShowEntry(entry catalog.Entry)
}

// Recognizer extracts text from a region.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Config holds session parameters.
type Config struct {
	Canvas      geometry.Size
	Guide       geometry.GuideBox
	Interval    time.Duration
	Timeout     time.Duration
	SkipSimilar bool
}

// Session owns every piece of mutable pipeline state: the throttle gate, the
// current entry and the last recognized region hash.
type Session struct {
	cfg        Config
	source     FrameSource
	sink       Sink
	recognizer Recognizer
	catalog    *catalog.Catalog
	preprocess Preprocessor
	history    history.Store
	metrics    *metrics.Metrics

	gate    *throttle.Gate
	tracker *tracker.Tracker

	hashMu   sync.Mutex
	lastHash *goimagehash.ImageHash

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup // recognitions
	runWG    sync.WaitGroup // Run loops
	launchMu sync.Mutex     // guards stopped and wg.Add
	stopped  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New creates a session. Canvas and guide box must have positive sizes.
func New(cfg Config, source FrameSource, sink Sink, rec Recognizer, cat *catalog.Catalog) (*Session, error) {
	if !cfg.Canvas.Valid() {
		return nil, apperrors.Wrapf(geometry.ErrInvalidDimension, apperrors.InvalidDimension,
			"canvas must be positive, got %gx%g", cfg.Canvas.W, cfg.Canvas.H)
	}
	if cfg.Guide == (geometry.GuideBox{}) {
		cfg.Guide = geometry.DefaultGuideBox
	}
	if !(geometry.Size{W: cfg.Guide.W, H: cfg.Guide.H}).Valid() {
		return nil, apperrors.Wrapf(geometry.ErrInvalidDimension, apperrors.InvalidDimension,
			"guide box must be positive, got %gx%g", cfg.Guide.W, cfg.Guide.H)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRecognitionTimeout
	}
	if cat == nil {
		cat = catalog.New(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:        cfg,
		source:     source,
		sink:       sink,
		recognizer: rec,
		catalog:    cat,
		preprocess: Grayscale,
		metrics:    metrics.New(),
		gate:       throttle.NewGate(cfg.Interval),
		tracker:    tracker.New(),
		ctx:        ctx,
		cancel:     cancel,
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}, nil
}

// WithMetrics replaces the session's private metrics.
func (s *Session) WithMetrics(m *metrics.Metrics) *Session {
	s.metrics = m
	return s
}

// WithHistory records every entry change into h.
func (s *Session) WithHistory(h history.Store) *Session {
	s.history = h
	return s
}

// WithPreprocessor replaces the default Grayscale step.
func (s *Session) WithPreprocessor(p Preprocessor) *Session {
	s.preprocess = p
	return s
}

// Current returns the confirmed entry, if any.
func (s *Session) Current() (catalog.Entry, bool) {
	return s.tracker.Current()
}

// Gate exposes the recognition throttle.
func (s *Session) Gate() *throttle.Gate {
	return s.gate
}

// Run calls Cycle at rate cycles per second until ctx is done or Stop is
// called.
func (s *Session) Run(ctx context.Context, rate float64) {
	s.runWG.Add(1)
	defer s.runWG.Done()

	if rate <= 0 {
		rate = DefaultDisplayRate
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Cycle(ctx)
		}
	}
}

// Stop ends Run and cancels any in-flight recognition. No recognition is
// launched after Stop returns.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.launchMu.Lock()
		s.stopped = true
		s.launchMu.Unlock()
		close(s.stopCh)
		s.cancel()
	})
}

// Wait blocks until Run has returned and every launched recognition has
// finished. Call it after Stop.
func (s *Session) Wait() {
	s.runWG.Wait()
	s.wg.Wait()
}

// Cycle processes one frame and reports the stage it ended in. Frame source
// and recognition failures never escape; they end the cycle early.
func (s *Session) Cycle(ctx context.Context) Stage {
	log := trace.Logger(ctx)

	frame, err := s.source.Acquire(ctx)
	if err != nil {
		s.metrics.AcquisitionFailures.Inc()
		log.Debug("frame acquisition failed", "error", err)
		return Idle
	}
	s.metrics.FramesAcquired.Inc()

	display, err := geometry.CoverCrop(frame.Size(), s.cfg.Canvas)
	if err != nil {
		log.Error("display crop", "error", err, "frame", frame.Seq)
		return FrameAcquired
	}
	s.sink.Present(frame, display, GuideState{
		Box:     s.cfg.Guide.Rect(s.cfg.Canvas),
		Matched: s.tracker.Matched(),
	})

	if !s.gate.TryAcquire(s.now()) {
		s.metrics.CyclesGated.Inc()
		return RecognitionGated
	}
	s.metrics.RecognitionAttempts.Inc()

	crop, err := geometry.OCRCrop(display, s.cfg.Canvas, s.cfg.Guide)
	if err != nil {
		s.gate.Release()
		log.Error("ocr crop", "error", err, "frame", frame.Seq)
		return Displayed
	}
	region := cropRegion(frame.Image, crop.Image(frame.Image.Bounds()))

	if !s.launch(ctx, frame.Seq, region) {
		s.gate.Release()
		return Displayed
	}
	return RecognitionRan
}

// launch starts a recognition unless the session has been stopped.
func (s *Session) launch(ctx context.Context, seq uint64, region image.Image) bool {
	s.launchMu.Lock()
	defer s.launchMu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	s.metrics.RecognitionInFlight.Inc()
	go s.recognize(ctx, seq, region)
	return true
}

func (s *Session) recognize(ctx context.Context, seq uint64, region image.Image) {
	defer s.wg.Done()
	defer s.metrics.RecognitionInFlight.Dec()
	defer s.gate.Release()

	ctx, span := trace.StartSpan(ctx, "recognize")
	defer span.End()
	span.SetAttr("frame", seq)
	log := trace.Logger(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	img := s.preprocess(region)

	var hash *goimagehash.ImageHash
	if s.cfg.SkipSimilar {
		hash = perceptionHash(img)
		if s.similarToLast(hash) {
			s.metrics.SimilarSkips.Inc()
			span.SetAttr("skipped", "similar")
			return
		}
	}

	start := time.Now()
	text, err := s.recognizer.Recognize(ctx, img)
	s.metrics.ObserveRecognition(time.Since(start))
	if err != nil {
		s.metrics.RecognitionFailures.Inc()
		span.SetAttr("error", err.Error())
		log.Debug("recognition failed", "error", err, "frame", seq)
		return
	}
	s.rememberHash(hash)
	span.SetAttr("text", text)

	s.apply(ctx, text)
}

// apply runs matching and state tracking on recognized text.
func (s *Session) apply(ctx context.Context, raw string) {
	if !catalog.Valid(raw) {
		s.metrics.StructuralRejects.Inc()
		return
	}
	entry, ok := s.catalog.Resolve(raw)
	if !ok {
		s.metrics.CatalogMisses.Inc()
		return
	}
	s.metrics.Matches.Inc()

	if !s.tracker.Update(&entry) {
		return
	}
	s.metrics.EntryChanges.Inc()
	trace.Logger(ctx).Info("entry changed", "number", entry.Number, "name", entry.Name, "raw", raw)

	if s.history != nil {
		s.history.Emit(s.history.Add(entry, raw))
	}
	s.sink.ShowEntry(entry)
}

func perceptionHash(img image.Image) *goimagehash.ImageHash {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil
	}
	return hash
}

func (s *Session) similarToLast(hash *goimagehash.ImageHash) bool {
	if hash == nil {
		return false
	}
	s.hashMu.Lock()
	defer s.hashMu.Unlock()
	if s.lastHash == nil {
		return false
	}
	dist, err := s.lastHash.Distance(hash)
	return err == nil && dist <= MaxHashDistance
}

func (s *Session) rememberHash(hash *goimagehash.ImageHash) {
	if hash == nil {
		return
	}
	s.hashMu.Lock()
	s.lastHash = hash
	s.hashMu.Unlock()
}
