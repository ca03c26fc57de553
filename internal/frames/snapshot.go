package frames

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"
)

// maxSnapshotBytes bounds a single camera snapshot.
const maxSnapshotBytes = 32 << 20

// snapshotBackend fetches a JPEG still from an IP camera's snapshot URL.
type snapshotBackend struct {
	url    string
	client *http.Client
}

// NewSnapshot returns a source that GETs url once per frame.
func NewSnapshot(url string, timeout time.Duration) (*Source, error) {
	if url == "" {
		return nil, fmt.Errorf("snapshot url is empty")
	}
	return newSource("snapshot", &snapshotBackend{url: url, client: &http.Client{Timeout: timeout}}), nil
}

func (s *snapshotBackend) grab(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decode(data)
}

func (s *snapshotBackend) cleanup() {
	s.client.CloseIdleConnections()
}
