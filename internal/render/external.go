package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/predb-announcer/internal/metadata"
	"github.com/JakeFAU/predb-announcer/internal/release"
)

const (
	defaultAnsiloveBinary = "ansilove"
	defaultInfektBinary   = "infekt-cli"

	inputName  = "document.nfo"
	outputName = "document.png"
)

var commandContext = exec.CommandContext

// Ansilove renders through the ansilove CLI. The document is handed over in
// code page 437 so block characters survive.
type Ansilove struct {
	binary string
}

// NewAnsilove returns an ansilove backend. An empty binary uses PATH lookup.
func NewAnsilove(binary string) *Ansilove {
	if binary == "" {
		binary = defaultAnsiloveBinary
	}
	return &Ansilove{binary: binary}
}

// Name implements release.Renderer.
func (a *Ansilove) Name() string {
	return string(KindAnsilove)
}

// Render implements release.Renderer. Output is PNG.
func (a *Ansilove) Render(ctx context.Context, text string, _ string) (release.Artifact, error) {
	raw, err := metadata.EncodeDocument(text)
	if err != nil {
		return release.Artifact{}, err
	}
	return handoff(ctx, raw, func(in, out string) []string {
		return []string{a.binary, "-o", out, in}
	})
}

// Infekt renders through infekt-cli with white text on black.
type Infekt struct {
	binary string
}

// NewInfekt returns an infekt backend. An empty binary uses PATH lookup.
func NewInfekt(binary string) *Infekt {
	if binary == "" {
		binary = defaultInfektBinary
	}
	return &Infekt{binary: binary}
}

// Name implements release.Renderer.
func (i *Infekt) Name() string {
	return string(KindInfekt)
}

// Render implements release.Renderer. Output is PNG.
func (i *Infekt) Render(ctx context.Context, text string, _ string) (release.Artifact, error) {
	return handoff(ctx, []byte(text), func(in, out string) []string {
		return []string{i.binary, in, "-O", out, "-T", "ffffff", "-B", "000000", "-c"}
	})
}

// handoff writes input into a scoped temporary directory, runs the command
// built by argv and reads back the PNG it produced. The directory is removed
// on every return path.
func handoff(ctx context.Context, input []byte, argv func(in, out string) []string) (release.Artifact, error) {
	dir, err := os.MkdirTemp("", "predb-render-*")
	if err != nil {
		return release.Artifact{}, fmt.Errorf("create workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, inputName)
	out := filepath.Join(dir, outputName)
	if err := os.WriteFile(in, input, 0o600); err != nil {
		return release.Artifact{}, fmt.Errorf("write document: %w", err)
	}

	args := argv(in, out)
	cmd := commandContext(ctx, args[0], args[1:]...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return release.Artifact{}, fmt.Errorf("%s: %w: %s", args[0], err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return release.Artifact{}, fmt.Errorf("read %s output: %w", args[0], err)
	}
	return release.Artifact{Data: data, Format: release.FormatPNG}, nil
}
