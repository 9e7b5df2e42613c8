// Package chart renders analysis artifacts as PNG (and SVG) files with
// go-chart. It implements ports.RendererPort and ports.DiagramPort.
package chart

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dopastat/internal"
	"dopastat/internal/errors"
)

// DefaultDPI matches the resolution the figures are published at
const DefaultDPI = 300.0

// EnsureOutputDir creates the figures directory. Call it once at process
// start, before any renderer writes.
func EnsureOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.InvalidInput("output directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.IOError(fmt.Sprintf("creating %s", dir), err)
	}
	return nil
}

// Renderer writes figures into one directory
type Renderer struct {
	dir    string
	dpi    float64
	logger *internal.Logger
}

// NewRenderer creates a renderer. The directory must already exist.
func NewRenderer(dir string, dpi float64, logger *internal.Logger) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Renderer{dir: dir, dpi: dpi, logger: logger.With("renderer")}
}

// Dir returns the output directory
func (r *Renderer) Dir() string {
	return r.dir
}

// px converts inches to pixels at the renderer's DPI
func (r *Renderer) px(inches float64) int {
	return int(inches * r.dpi)
}

// save renders into memory first so a failed render leaves no partial file
func (r *Renderer) save(ctx context.Context, name string, render func(buf *bytes.Buffer) error) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return "", errors.RenderError(name, err)
	}
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", errors.IOError(fmt.Sprintf("writing %s", path), err)
	}
	r.logger.Info("saved %s", path)
	return path, nil
}
