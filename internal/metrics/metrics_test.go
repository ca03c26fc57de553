package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.FramesAcquired.Inc()
	m.FramesAcquired.Inc()
	m.EntryChanges.Inc()

	if got := testutil.ToFloat64(m.FramesAcquired); got != 2 {
		t.Errorf("FramesAcquired = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EntryChanges); got != 1 {
		t.Errorf("EntryChanges = %v, want 1", got)
	}
}

func TestObserveRecognition(t *testing.T) {
	m := New()
	m.ObserveRecognition(120 * time.Millisecond)

	if n := testutil.CollectAndCount(m.RecognitionLatency); n != 1 {
		t.Errorf("histogram series = %d, want 1", n)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Matches.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "platescan_catalog_matches_total 1") {
		t.Errorf("metrics output missing matches counter:\n%s", body)
	}
}
