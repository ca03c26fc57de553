package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/GriffinCanCode/platescan/internal/errors"
	"github.com/GriffinCanCode/platescan/internal/trace"
)

// Provider supplies catalog entries once at startup.
type Provider interface {
	Load(ctx context.Context) ([]Entry, error)
}

// StaticProvider serves a fixed slice.
type StaticProvider []Entry

// Load returns a copy of the entries.
func (p StaticProvider) Load(context.Context) ([]Entry, error) {
	return append([]Entry(nil), p...), nil
}

// FileProvider reads a JSON or YAML list of entries. The format is chosen by
// file extension; anything other than .yaml/.yml is parsed as JSON.
type FileProvider struct {
	Path string
}

// Load reads and decodes the file.
func (p FileProvider) Load(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CatalogLoadFailed, "read catalog").WithMetadata("path", p.Path)
	}

	var entries []Entry
	switch strings.ToLower(filepath.Ext(p.Path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CatalogLoadFailed, "decode catalog").WithMetadata("path", p.Path)
	}
	return entries, nil
}

// Load builds a catalog from p and logs entries the first-match rule makes
// ambiguous.
func Load(ctx context.Context, p Provider) (*Catalog, error) {
	entries, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	c := New(entries)

	log := trace.Logger(ctx)
	if c.Dropped() > 0 {
		log.Warn("catalog entries without number dropped", "count", c.Dropped())
	}
	for _, a := range c.Ambiguities() {
		log.Warn("catalog numbers overlap, first entry wins",
			"first", a.First.Number, "second", a.Second.Number, "shadowed", a.Shadowed)
	}
	log.Info("catalog loaded", "entries", c.Len())
	return c, nil
}
