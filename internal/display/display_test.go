package display

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/platescan/internal/catalog"
	"github.com/GriffinCanCode/platescan/internal/frames"
	"github.com/GriffinCanCode/platescan/internal/geometry"
	"github.com/GriffinCanCode/platescan/internal/history"
	"github.com/GriffinCanCode/platescan/internal/pipeline"
)

var (
	canvas = geometry.Size{W: 640, H: 480}
	guide  = pipeline.GuideState{Box: geometry.DefaultGuideBox.Rect(canvas)}
)

func grayFrame(w, h int) frames.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	return frames.Frame{Image: img, Seq: 7}
}

func TestRenderOverlayColor(t *testing.T) {
	r := NewRenderer(canvas, 0)
	f := grayFrame(1280, 960)
	crop := geometry.Rect{W: 1280, H: 960}

	tests := []struct {
		name    string
		matched bool
		want    color.RGBA
	}{
		{"no match is red", false, NoMatchColor},
		{"match is green", true, MatchColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := guide
			state.Matched = tt.matched
			img := r.Render(f.Image, crop, state)

			if img.Bounds() != image.Rect(0, 0, 640, 480) {
				t.Fatalf("bounds = %v", img.Bounds())
			}
			if got := img.RGBAAt(270, 220); got != tt.want {
				t.Errorf("box corner = %v, want %v", got, tt.want)
			}
			if got := img.RGBAAt(320, 240); absDiff(got.R, 128) > 2 || absDiff(got.G, 128) > 2 {
				t.Errorf("box interior = %v, want frame pixels", got)
			}
		})
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestEncodeJPEG(t *testing.T) {
	r := NewRenderer(canvas, 90)
	data, err := r.Encode(grayFrame(320, 320).Image, geometry.Rect{Y: 40, W: 320, H: 240}, guide)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Size() != image.Pt(640, 480) {
		t.Errorf("size = %v, want 640x480", img.Bounds().Size())
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3)
	for i := 0; i < 3; i++ {
		if !rl.allow() {
			t.Fatalf("event %d should be allowed", i)
		}
	}
	if rl.allow() {
		t.Error("fourth event within window should be rejected")
	}

	rl.mu.Lock()
	for i := range rl.timestamps {
		rl.timestamps[i] = rl.timestamps[i].Add(-2 * RateLimitWindow)
	}
	rl.mu.Unlock()
	if !rl.allow() {
		t.Error("events outside the window should be pruned")
	}
}

func newTestServer(hist HistoryReader) *Server {
	return New(NewRenderer(canvas, 0), hist, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	}))
}

func TestFrameEndpoint(t *testing.T) {
	s := newTestServer(nil)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/frame", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before first frame = %d, want 503", rec.Code)
	}

	s.Present(grayFrame(1280, 960), geometry.Rect{W: 1280, H: 960}, guide)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/frame", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if seq := rec.Header().Get("X-Frame-Seq"); seq != "7" {
		t.Errorf("X-Frame-Seq = %q, want 7", seq)
	}
	if _, err := jpeg.Decode(rec.Body); err != nil {
		t.Errorf("body is not a JPEG: %v", err)
	}
}

func TestEntryEndpoint(t *testing.T) {
	s := newTestServer(nil)
	h := s.Handler()

	var got StateMessage
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entry", nil))
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Matched || got.Entry != nil {
		t.Errorf("initial state = %+v", got)
	}

	s.ShowEntry(catalog.Entry{Number: "AB12", Name: "Roadster"})

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entry", nil))
	got = StateMessage{}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !got.Matched || got.Entry == nil || got.Entry.Name != "Roadster" {
		t.Errorf("state = %+v", got)
	}
	if e, ok := s.Entry(); !ok || e.Number != "AB12" {
		t.Errorf("Entry() = %+v, %v", e, ok)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	store := history.NewStore(10, 1)
	store.Add(catalog.Entry{Number: "AB12"}, "AB12-XY99")
	store.Add(catalog.Entry{Number: "CD34"}, "CD34-0001")
	h := newTestServer(store).Handler()

	tests := []struct {
		query  string
		status int
		count  int
	}{
		{"", http.StatusOK, 2},
		{"?limit=1", http.StatusOK, 1},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history"+tt.query, nil))
		if rec.Code != tt.status {
			t.Errorf("%q: status = %d, want %d", tt.query, rec.Code, tt.status)
			continue
		}
		if tt.status != http.StatusOK {
			continue
		}
		var records []history.Record
		if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
			t.Fatal(err)
		}
		if len(records) != tt.count {
			t.Errorf("%q: %d records, want %d", tt.query, len(records), tt.count)
		}
		if records[0].Entry.Number != "CD34" {
			t.Errorf("%q: newest first expected, got %s", tt.query, records[0].Entry.Number)
		}
	}
}

func TestHistoryEndpointWithoutStore(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestHealthMetricsAndCORS(t *testing.T) {
	h := newTestServer(nil).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Body.String() != "metrics" {
		t.Errorf("metrics body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/entry", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight = %d %v", rec.Code, rec.Header())
	}
}

func TestWebSocketPush(t *testing.T) {
	s := newTestServer(nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	var state StateMessage
	if err := wsjson.Read(ctx, conn, &state); err != nil {
		t.Fatalf("read state: %v", err)
	}
	if state.Type != "state" || state.Matched {
		t.Errorf("initial state = %+v", state)
	}

	s.ShowEntry(catalog.Entry{Number: "CD34", Name: "Wagon"})

	var entry EntryMessage
	if err := wsjson.Read(ctx, conn, &entry); err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if entry.Type != "entry" || entry.Entry.Name != "Wagon" {
		t.Errorf("entry message = %+v", entry)
	}

	s.Present(grayFrame(640, 480), geometry.Rect{W: 640, H: 480}, guide)

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if typ != websocket.MessageBinary {
		t.Errorf("frame message type = %v, want binary", typ)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("pushed frame is not a JPEG: %v", err)
	}

	if err := wsjson.Write(ctx, conn, Message{Type: "get_state"}); err != nil {
		t.Fatal(err)
	}
	state = StateMessage{}
	if err := wsjson.Read(ctx, conn, &state); err != nil {
		t.Fatalf("read state reply: %v", err)
	}
	if !state.Matched || state.Entry == nil || state.Entry.Number != "CD34" {
		t.Errorf("state reply = %+v", state)
	}
}

func TestBroadcastHistory(t *testing.T) {
	s := newTestServer(nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan history.Record, 1)
	go s.BroadcastHistory(ctx, events)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	var state StateMessage
	if err := wsjson.Read(ctx, conn, &state); err != nil {
		t.Fatalf("read state: %v", err)
	}

	events <- history.Record{Entry: catalog.Entry{Number: "AB12"}, Raw: "AB12-XY99"}

	var msg HistoryMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read history: %v", err)
	}
	if msg.Type != "history" || msg.Record.Raw != "AB12-XY99" {
		t.Errorf("history message = %+v", msg)
	}
}
