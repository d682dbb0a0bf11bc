package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// ErrConversionFailed is returned when the rasterizer exits with an error.
var ErrConversionFailed = errors.New("pdf: conversion failed")

// pagePattern is the mutool output template; %d is replaced by the page number.
const pagePattern = "page-%d.png"

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Conversion is the outcome of rasterizing one document.
type Conversion struct {
	// Pages are the image file names in page order, relative to the work dir.
	Pages []string
	// Images holds the PNG bytes of each page when requested.
	Images [][]byte
}

// Converter rasterizes PDFs to PNG images with mutool.
type Converter struct {
	mutool  string
	tempDir string
	runner  Runner
	logger  zerolog.Logger
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithRunner replaces the command runner.
func WithRunner(r Runner) ConverterOption {
	return func(c *Converter) { c.runner = r }
}

// WithTempDir sets the parent directory for per-conversion work dirs.
func WithTempDir(dir string) ConverterOption {
	return func(c *Converter) { c.tempDir = dir }
}

// NewConverter creates a Converter invoking the mutool binary at path.
func NewConverter(path string, logger zerolog.Logger, opts ...ConverterOption) *Converter {
	if path == "" {
		path = "mutool"
	}
	c := &Converter{
		mutool: path,
		runner: ExecRunner{},
		logger: logger.With().Str("component", "pdf_converter").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert writes content to a private work directory, runs
// "mutool convert -o <dir>/page-%d.png <dir>/document.pdf" and collects the
// produced images. The work directory is always removed.
func (c *Converter) Convert(ctx context.Context, content []byte, keepImages bool) (*Conversion, error) {
	dir, err := os.MkdirTemp(c.tempDir, "pdf-convert-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			c.logger.Warn().Err(err).Str("dir", dir).Msg("failed to remove work dir")
		}
	}()

	input := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(input, content, 0o600); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}

	out, err := c.runner.Run(ctx, c.mutool, "convert", "-o", filepath.Join(dir, pagePattern), input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s", ErrConversionFailed, err, strings.TrimSpace(string(out)))
	}

	pages, err := listPages(dir)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages produced", ErrConversionFailed)
	}

	conv := &Conversion{Pages: pages}
	if keepImages {
		for _, p := range pages {
			img, err := os.ReadFile(filepath.Join(dir, p))
			if err != nil {
				return nil, fmt.Errorf("read page %s: %w", p, err)
			}
			conv.Images = append(conv.Images, img)
		}
	}

	c.logger.Debug().Int("pages", len(pages)).Msg("pdf converted")
	return conv, nil
}

func listPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	type page struct {
		name string
		num  int
	}
	var pages []page
	for _, e := range entries {
		var n int
		if e.IsDir() {
			continue
		}
		if _, err := fmt.Sscanf(e.Name(), pagePattern, &n); err != nil {
			continue
		}
		pages = append(pages, page{name: e.Name(), num: n})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.name
	}
	return names, nil
}
