// Package pdfextract rasterizes PDF pages into images for chapter ingestion.
//
// Rasterization is delegated to the external poppler tool pdftoppm, which is
// an optional runtime dependency: callers must check Available before
// extracting, because an absent tool and a failed extraction are handled
// differently downstream (both degrade to document mode, but the former is
// expected and only logged once at startup). PDF introspection (page counts,
// structural validation) uses the ledongthuc/pdf reader and needs no
// external tool.
package pdfextract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ledongthuc/pdf"
)

// ErrEmptyPath is returned when an empty file path is provided.
var ErrEmptyPath = errors.New("empty PDF path provided")

// ErrToolUnavailable is returned when extraction is attempted while the
// rasterizer tool is not on PATH.
var ErrToolUnavailable = errors.New("pdftoppm not available")

// ErrNoPages is returned when rasterization produced no page images.
var ErrNoPages = errors.New("no pages extracted from PDF")

// DefaultDPI is the rasterization resolution when none is configured.
const DefaultDPI = 150

// toolName is the poppler rasterizer resolved on PATH.
const toolName = "pdftoppm"

// ExtractorConfig holds configuration for PDF page extraction.
type ExtractorConfig struct {
	// DPI is the rasterization resolution. Zero uses DefaultDPI.
	DPI int

	// LookPath resolves the rasterizer binary. Defaults to exec.LookPath;
	// tests override it to simulate an absent tool.
	LookPath func(file string) (string, error)
}

// Extractor converts PDF documents into ordered page images.
type Extractor struct {
	config ExtractorConfig
}

// NewExtractor creates an Extractor with the given configuration.
func NewExtractor(config ExtractorConfig) *Extractor {
	if config.DPI <= 0 {
		config.DPI = DefaultDPI
	}
	if config.LookPath == nil {
		config.LookPath = exec.LookPath
	}
	return &Extractor{config: config}
}

// NewDefaultExtractor creates an Extractor with default configuration.
func NewDefaultExtractor() *Extractor {
	return NewExtractor(ExtractorConfig{})
}

// Available reports whether the rasterizer tool can be resolved on PATH.
// Callers check this before ExtractPages; when false, PDF uploads are stored
// in document mode instead.
func (e *Extractor) Available() bool {
	_, err := e.config.LookPath(toolName)
	return err == nil
}

// ExtractPages rasterizes every page of the PDF at pdfPath into PNG images,
// returned in page order. Any failure (corrupt file, tool error, no output)
// is returned as an error for the caller to degrade to document mode.
//
// Example:
//
//	pages, err := extractor.ExtractPages(ctx, "upload.pdf")
//	if err != nil {
//	    // store the original document instead
//	}
func (e *Extractor) ExtractPages(ctx context.Context, pdfPath string) ([][]byte, error) {
	if pdfPath == "" {
		return nil, ErrEmptyPath
	}

	toolPath, err := e.config.LookPath(toolName)
	if err != nil {
		return nil, ErrToolUnavailable
	}

	tmpDir, err := os.MkdirTemp("", "pdfextract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// pdftoppm writes <prefix>-1.png, <prefix>-2.png, ... zero padded to the
	// width of the page count
	outPrefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, toolPath,
		"-png",
		"-r", strconv.Itoa(e.config.DPI),
		pdfPath,
		outPrefix,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (%s)", err, string(output))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".png" {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, ErrNoPages
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order
	sort.Strings(names)

	pages := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read extracted page %s: %w", name, err)
		}
		pages = append(pages, data)
	}

	return pages, nil
}

// PageCount returns the number of pages in the PDF at pdfPath without
// rasterizing anything.
func (e *Extractor) PageCount(pdfPath string) (int, error) {
	if pdfPath == "" {
		return 0, ErrEmptyPath
	}

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	return r.NumPage(), nil
}
