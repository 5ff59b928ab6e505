// Package pdflocal implements ports.PDFProcessor in-process with pdfcpu.
package pdflocal

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/artpar/documind/domain/pdf"
	"github.com/artpar/documind/ports"
)

// Processor runs PDF tools locally.
type Processor struct {
	conf *model.Configuration
}

// New creates a local processor with pdfcpu's default configuration.
func New() *Processor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Processor{conf: conf}
}

// Merge combines files in order into one PDF.
func (p *Processor) Merge(ctx context.Context, files []pdf.File) (pdf.Result, error) {
	if err := ctx.Err(); err != nil {
		return pdf.Result{}, err
	}

	readers := make([]io.ReadSeeker, len(files))
	for i, f := range files {
		readers[i] = bytes.NewReader(f.Data)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, p.conf); err != nil {
		return pdf.Result{}, fmt.Errorf("pdfcpu merge: %w", err)
	}
	return pdf.Result{Data: out.Bytes(), ContentType: pdf.ContentTypePDF}, nil
}

// Split writes one PDF per range into a ZIP archive.
func (p *Processor) Split(ctx context.Context, file pdf.File, opts pdf.SplitOptions) (pdf.Result, error) {
	base := strings.TrimSuffix(file.DisplayName(), ".pdf")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, r := range opts.RangeList() {
		if err := ctx.Err(); err != nil {
			return pdf.Result{}, err
		}

		var part bytes.Buffer
		if err := api.Trim(bytes.NewReader(file.Data), &part, []string{PageSelection(r)}, p.conf); err != nil {
			return pdf.Result{}, fmt.Errorf("pdfcpu trim %s: %w", r, err)
		}

		w, err := zw.Create(fmt.Sprintf("%s-%s.pdf", base, r))
		if err != nil {
			return pdf.Result{}, fmt.Errorf("zip entry: %w", err)
		}
		if _, err := w.Write(part.Bytes()); err != nil {
			return pdf.Result{}, fmt.Errorf("zip write: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return pdf.Result{}, fmt.Errorf("zip close: %w", err)
	}
	return pdf.Result{Data: buf.Bytes(), ContentType: pdf.ContentTypeZIP}, nil
}

// Compress optimizes the file. pdfcpu has a single optimization pass, so
// every level produces the same output.
func (p *Processor) Compress(ctx context.Context, file pdf.File, level pdf.CompressionLevel) (pdf.Result, error) {
	if err := ctx.Err(); err != nil {
		return pdf.Result{}, err
	}

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(file.Data), &out, p.conf); err != nil {
		return pdf.Result{}, fmt.Errorf("pdfcpu optimize: %w", err)
	}
	return pdf.Result{Data: out.Bytes(), ContentType: pdf.ContentTypePDF}, nil
}

// PageSelection converts a range such as "3-end" to pdfcpu syntax ("3-").
func PageSelection(r string) string {
	switch {
	case r == "end":
		return "l"
	case strings.HasSuffix(r, "-end"):
		return strings.TrimSuffix(r, "end")
	default:
		return r
	}
}

var _ ports.PDFProcessor = (*Processor)(nil)
