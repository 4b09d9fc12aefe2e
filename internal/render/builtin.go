package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

const (
	defaultFontSize    = 12
	defaultLineHeight  = 14
	defaultJPEGQuality = 90
)

// Builtin draws the document line by line in a fixed-width face.
type Builtin struct {
	face       font.Face
	glyphWidth int
	lineHeight int
	background color.Color
	foreground color.Color
	quality    int
}

// NewBuiltin loads the configured face. The canvas is sized from the glyph
// width and line height, so proportional fonts will clip.
func NewBuiltin(cfg Config) (*Builtin, error) {
	face, err := loadFace(cfg.FontPath, cfg.FontSize)
	if err != nil {
		return nil, err
	}
	background, err := parseHexColor(cfg.Background, color.Black)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	foreground, err := parseHexColor(cfg.Foreground, color.White)
	if err != nil {
		return nil, fmt.Errorf("foreground: %w", err)
	}

	b := &Builtin{
		face:       face,
		glyphWidth: cfg.FontWidth,
		lineHeight: cfg.LineHeight,
		background: background,
		foreground: foreground,
		quality:    cfg.JPEGQuality,
	}
	if b.glyphWidth <= 0 {
		advance, _ := face.GlyphAdvance('M')
		b.glyphWidth = advance.Ceil()
	}
	if b.lineHeight <= 0 {
		b.lineHeight = defaultLineHeight
	}
	if b.quality <= 0 || b.quality > 100 {
		b.quality = defaultJPEGQuality
	}
	return b, nil
}

func loadFace(path string, size float64) (font.Face, error) {
	if path == "" {
		return basicfont.Face7x13, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	parsed, err := opentype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	if size <= 0 {
		size = defaultFontSize
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("load face %s: %w", path, err)
	}
	return face, nil
}

// Name implements release.Renderer.
func (b *Builtin) Name() string {
	return string(KindBuiltin)
}

// Render implements release.Renderer. Output is JPEG.
func (b *Builtin) Render(_ context.Context, text string, _ string) (release.Artifact, error) {
	lines := splitLines(text)
	longest := 0
	for _, line := range lines {
		if n := utf8.RuneCountInString(line); n > longest {
			longest = n
		}
	}
	width, height := b.glyphWidth*longest, b.lineHeight*len(lines)
	if width == 0 || height == 0 {
		return release.Artifact{}, ErrEmptyImage
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(b.background), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(b.foreground),
		Face: b.face,
	}
	ascent := b.face.Metrics().Ascent
	for i, line := range lines {
		drawer.Dot = fixed.Point26_6{X: 0, Y: fixed.I(i*b.lineHeight) + ascent}
		drawer.DrawString(line)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: b.quality}); err != nil {
		return release.Artifact{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return release.Artifact{
		Data:   buf.Bytes(),
		Format: release.FormatJPEG,
		Width:  width,
		Height: height,
	}, nil
}

// splitLines splits on LF and drops the CR of CRLF endings. A trailing
// newline does not produce an extra row.
func splitLines(text string) []string {
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// parseHexColor accepts "rrggbb" with an optional leading '#'.
func parseHexColor(value string, fallback color.Color) (color.Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	if value == "" {
		return fallback, nil
	}
	if len(value) != 6 {
		return nil, fmt.Errorf("invalid color %q", value)
	}
	rgb, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", value, err)
	}
	return color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xff}, nil
}
