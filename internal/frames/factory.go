package frames

import (
	"image"
	"time"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
)

// Source kinds accepted by New.
const (
	KindCommand  = "command"
	KindSnapshot = "snapshot"
	KindScreen   = "screen"
	KindFile     = "file"
)

// Config selects and parameterizes a frame source.
type Config struct {
	Kind        string
	Command     []string
	SnapshotURL string
	File        string
	Region      image.Rectangle
	Timeout     time.Duration
}

// New builds the source named by cfg.Kind.
func New(cfg Config) (*Source, error) {
	var (
		src *Source
		err error
	)
	switch cfg.Kind {
	case KindCommand:
		src, err = NewCommand(cfg.Command)
	case KindSnapshot:
		src, err = NewSnapshot(cfg.SnapshotURL, cfg.Timeout)
	case KindScreen:
		src = NewScreen(cfg.Region)
	case KindFile:
		src, err = NewFile(cfg.File)
	default:
		return nil, apperrors.Newf(apperrors.ConfigInvalid, "unknown frame source %q", cfg.Kind)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ConfigInvalid, "frame source").WithMetadata("kind", cfg.Kind)
	}
	return src, nil
}
