// Package render turns cached document text into raster images.
//
// Exactly one backend is active per process. It is chosen from a closed set of
// kinds at startup by New, and every backend satisfies release.Renderer.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	// Decoders for verifying backend output.
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/predb-announcer/internal/metrics"
	"github.com/JakeFAU/predb-announcer/internal/release"
)

// Kind selects a rendering backend.
type Kind string

// Supported backends.
const (
	KindBuiltin  Kind = "builtin"
	KindAnsilove Kind = "ansilove"
	KindInfekt   Kind = "infekt"
)

var (
	// ErrUnknownRenderer is returned for a kind outside the supported set.
	ErrUnknownRenderer = errors.New("unknown renderer")
	// ErrEmptyImage is returned when a backend produces no pixels.
	ErrEmptyImage = errors.New("rendered image is empty")
)

// ParseKind validates a configured backend name.
func ParseKind(name string) (Kind, error) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(name))); kind {
	case KindBuiltin, KindAnsilove, KindInfekt:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRenderer, name)
	}
}

// Config carries the settings for every backend. Only the fields of the
// selected kind are read.
type Config struct {
	Kind Kind

	// Builtin renderer. An empty FontPath selects the embedded 7x13 bitmap face.
	FontPath    string
	FontSize    float64
	FontWidth   int
	LineHeight  int
	Background  string
	Foreground  string
	JPEGQuality int

	AnsiloveBinary string
	InfektBinary   string
}

// New resolves cfg.Kind into a concrete renderer.
func New(cfg Config, logger *zap.Logger) (release.Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		backend release.Renderer
		err     error
	)
	switch cfg.Kind {
	case KindBuiltin:
		backend, err = NewBuiltin(cfg)
	case KindAnsilove:
		backend = NewAnsilove(cfg.AnsiloveBinary)
	case KindInfekt:
		backend = NewInfekt(cfg.InfektBinary)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRenderer, cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	return &verified{backend: backend, logger: logger.Named("render")}, nil
}

// verified wraps a backend with logging, timing and output validation.
type verified struct {
	backend release.Renderer
	logger  *zap.Logger
}

func (v *verified) Name() string {
	return v.backend.Name()
}

func (v *verified) Render(ctx context.Context, text string, title string) (release.Artifact, error) {
	v.logger.Info("rendering document",
		zap.String("release", title),
		zap.String("renderer", v.backend.Name()),
	)
	start := time.Now()
	artifact, err := v.backend.Render(ctx, text, title)
	metrics.ObserveRender(v.backend.Name(), time.Since(start))
	if err != nil {
		return release.Artifact{}, fmt.Errorf("render %s with %s: %w", title, v.backend.Name(), err)
	}

	width, height, err := imageBounds(artifact.Data)
	if err != nil {
		return release.Artifact{}, fmt.Errorf("render %s with %s: %w", title, v.backend.Name(), err)
	}
	artifact.Width, artifact.Height = width, height
	return artifact, nil
}

// imageBounds decodes the image header and rejects zero-sized output.
func imageBounds(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrEmptyImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode output: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, ErrEmptyImage
	}
	return cfg.Width, cfg.Height, nil
}
