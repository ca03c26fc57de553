package frames

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// OutputPlaceholder in a capture command is replaced by the temp file path.
const OutputPlaceholder = "{out}"

// commandBackend runs an external tool that writes one still to a temp file,
// e.g. ffmpeg -f v4l2 -i /dev/video0 -frames:v 1 -y {out}.
type commandBackend struct {
	args    []string
	tempDir string
}

// NewCommand returns a source that runs args once per frame.
func NewCommand(args []string) (*Source, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("capture command is empty")
	}
	tmpDir, err := os.MkdirTemp("", "platescan-frames-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return newSource("command", &commandBackend{args: args, tempDir: tmpDir}), nil
}

func (c *commandBackend) grab(ctx context.Context) (image.Image, error) {
	tmpFile := filepath.Join(c.tempDir, "frame.jpg")
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, tmpFile)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("read captured frame: %w", err)
	}
	_ = os.Remove(tmpFile)
	return decode(data)
}

func (c *commandBackend) cleanup() {
	if c.tempDir == "" {
		return
	}
	if err := os.RemoveAll(c.tempDir); err != nil {
		slog.Warn("failed to remove frame temp dir", "dir", c.tempDir, "error", err)
	}
}
