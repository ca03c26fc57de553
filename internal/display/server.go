package display

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/platescan/internal/catalog"
	"github.com/GriffinCanCode/platescan/internal/frames"
	"github.com/GriffinCanCode/platescan/internal/geometry"
	"github.com/GriffinCanCode/platescan/internal/history"
	"github.com/GriffinCanCode/platescan/internal/pipeline"
	"github.com/GriffinCanCode/platescan/internal/trace"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

type StateMessage struct {
	Type    string         `json:"type"`
	Matched bool           `json:"matched"`
	Entry   *catalog.Entry `json:"entry,omitempty"`
}

type EntryMessage struct {
	Type  string        `json:"type"`
	Entry catalog.Entry `json:"entry"`
}

type HistoryMessage struct {
	Type   string         `json:"type"`
	Record history.Record `json:"record"`
}

type RateLimitedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HistoryReader is the read side of history.Store.
type HistoryReader interface {
	Recent(n int) []history.Record
}

// rateLimiter tracks event timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	limit      int
	mu         sync.Mutex
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{limit: limit}
}

// allow checks if an event is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= r.limit {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

type client struct {
	messages *rateLimiter
	frames   *rateLimiter
}

// Server is the pipeline's display sink and serves the rendered state.
type Server struct {
	renderer *Renderer
	history  HistoryReader
	metrics  http.Handler

	mu       sync.RWMutex
	conns    map[*websocket.Conn]*client
	frame    []byte
	frameSeq uint64
	entry    *catalog.Entry
}

// New creates a new server. hist and metrics may be nil.
func New(renderer *Renderer, hist HistoryReader, metrics http.Handler) *Server {
	return &Server{
		renderer: renderer,
		history:  hist,
		metrics:  metrics,
		conns:    make(map[*websocket.Conn]*client),
	}
}

// Present renders the frame and pushes it to connected clients.
func (s *Server) Present(frame frames.Frame, crop geometry.Rect, state pipeline.GuideState) {
	data, err := s.renderer.Encode(frame.Image, crop, state)
	if err != nil {
		slog.Error("render frame", "error", err, "frame", frame.Seq)
		return
	}

	s.mu.Lock()
	s.frame = data
	s.frameSeq = frame.Seq
	targets := make([]*websocket.Conn, 0, len(s.conns))
	for conn, c := range s.conns {
		if c.frames.allow() {
			targets = append(targets, conn)
		}
	}
	s.mu.Unlock()

	for _, conn := range targets {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
			defer cancel()
			_ = c.Write(ctx, websocket.MessageBinary, data)
		}(conn)
	}
}

// ShowEntry records the confirmed entry and broadcasts it.
func (s *Server) ShowEntry(entry catalog.Entry) {
	s.mu.Lock()
	s.entry = &entry
	s.mu.Unlock()

	s.broadcast(EntryMessage{Type: "entry", Entry: entry})
}

// Entry returns the last confirmed entry, if any.
func (s *Server) Entry() (catalog.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return catalog.Entry{}, false
	}
	return *s.entry, true
}

// BroadcastHistory forwards history records to clients until ctx is done or
// events is closed.
func (s *Server) BroadcastHistory(ctx context.Context, events <-chan history.Record) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-events:
			if !ok {
				return
			}
			s.broadcast(HistoryMessage{Type: "history", Record: r})
		}
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
			defer cancel()
			_ = wsjson.Write(ctx, c, msg)
		}(conn)
	}
	s.mu.RUnlock()
}

func (s *Server) state() StateMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg := StateMessage{Type: "state", Matched: s.entry != nil}
	if s.entry != nil {
		e := *s.entry
		msg.Entry = &e
	}
	return msg
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/frame", s.handleFrame)
	mux.HandleFunc("GET /api/entry", s.handleEntry)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	c := &client{
		messages: newRateLimiter(RateLimitMessages),
		frames:   newRateLimiter(FramePushLimit),
	}
	s.mu.Lock()
	s.conns[conn] = c
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	if err := wsjson.Write(ctx, conn, s.state()); err != nil {
		log.Debug("websocket write error", "error", err)
		return
	}

	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !c.messages.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(ctx, conn, RateLimitedMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "get_state":
			_ = wsjson.Write(ctx, conn, s.state())
		}
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	data, seq := s.frame, s.frameSeq
	s.mu.RUnlock()

	if data == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(seq, 10))
	_, _ = w.Write(data)
}

func (s *Server) handleEntry(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.state())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, MaxHistoryLimit)
	}

	records := []history.Record{}
	if s.history != nil {
		records = append(records, s.history.Recent(limit)...)
	}
	writeJSON(w, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
