// Package pdf provides value types for PDF tool requests and results.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MaxFileSize is the default upload limit per file.
const MaxFileSize = 20 << 20

var (
	// ErrNotPDF is returned when file content does not start with a PDF header.
	ErrNotPDF = errors.New("file is not a PDF")

	// ErrEmpty is returned for zero-length uploads.
	ErrEmpty = errors.New("file is empty")
)

var pdfMagic = []byte("%PDF-")

// File is an uploaded document held in memory (value type).
type File struct {
	Name string
	Data []byte
}

// Validate checks that the file is non-empty, within size, and looks like a PDF.
func (f File) Validate(maxSize int64) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%s: %w", f.DisplayName(), ErrEmpty)
	}
	if maxSize > 0 && int64(len(f.Data)) > maxSize {
		return fmt.Errorf("%s: file too large: %d bytes (max %d)", f.DisplayName(), len(f.Data), maxSize)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(f.Data[:min(len(f.Data), 1024)], "\x00\t\r\n "), pdfMagic) {
		return fmt.Errorf("%s: %w", f.DisplayName(), ErrNotPDF)
	}
	return nil
}

// DisplayName returns a safe base name for the file.
func (f File) DisplayName() string {
	name := filepath.Base(strings.ReplaceAll(f.Name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "document.pdf"
	}
	return name
}

// Result is a processed output ready to be sent to the caller.
type Result struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Content types used for results.
const (
	ContentTypePDF = "application/pdf"
	ContentTypeZIP = "application/zip"
)

// SplitMode selects how a document is split.
type SplitMode string

const (
	SplitRanges SplitMode = "ranges"
	SplitAll    SplitMode = "all"
)

// SplitOptions configures a split (value type).
type SplitOptions struct {
	Mode   SplitMode
	Ranges string // e.g. "1-3,5-7"; "end" denotes the last page
}

// Normalize applies defaults: ranges mode, and "1-end" when no ranges are given.
func (o SplitOptions) Normalize() SplitOptions {
	out := SplitOptions{Mode: SplitRanges, Ranges: strings.ReplaceAll(strings.TrimSpace(o.Ranges), " ", "")}
	if out.Ranges == "" {
		out.Ranges = "1-end"
	}
	return out
}

// RangeList splits the ranges string into its comma separated parts.
func (o SplitOptions) RangeList() []string {
	var out []string
	for _, part := range strings.Split(o.Normalize().Ranges, ",") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CompressionLevel mirrors the remote API's compression levels.
type CompressionLevel string

const (
	CompressionExtreme     CompressionLevel = "extreme"
	CompressionRecommended CompressionLevel = "recommended"
	CompressionLow         CompressionLevel = "low"
)

// ParseCompressionLevel returns the level, defaulting to recommended.
func ParseCompressionLevel(s string) (CompressionLevel, error) {
	switch CompressionLevel(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompressionRecommended:
		return CompressionRecommended, nil
	case CompressionExtreme:
		return CompressionExtreme, nil
	case CompressionLow:
		return CompressionLow, nil
	default:
		return "", fmt.Errorf("unknown compression level %q", s)
	}
}
