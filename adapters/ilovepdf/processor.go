package ilovepdf

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/artpar/documind/domain/pdf"
	"github.com/artpar/documind/ports"
)

var zipMagic = []byte("PK\x03\x04")

// Processor adapts Client to ports.PDFProcessor.
type Processor struct {
	client *Client
}

// NewProcessor creates a remote PDF processor.
func NewProcessor(client *Client) *Processor {
	return &Processor{client: client}
}

// Merge combines files in order into one PDF.
func (p *Processor) Merge(ctx context.Context, files []pdf.File) (pdf.Result, error) {
	uploads := make([]upload, len(files))
	for i, f := range files {
		uploads[i] = upload{name: f.DisplayName(), data: f.Data}
	}
	out, err := p.client.runTask(ctx, "merge", uploads, nil)
	if err != nil {
		return pdf.Result{}, err
	}
	return pdf.Result{Data: out, ContentType: pdf.ContentTypePDF}, nil
}

// Split extracts the requested ranges. The API returns a bare PDF when the
// split yields one document; that case is wrapped so callers always get a ZIP.
func (p *Processor) Split(ctx context.Context, file pdf.File, opts pdf.SplitOptions) (pdf.Result, error) {
	opts = opts.Normalize()
	params := map[string]any{
		"split_mode": string(opts.Mode),
		"ranges":     opts.Ranges,
	}
	out, err := p.client.runTask(ctx, "split", []upload{{name: file.DisplayName(), data: file.Data}}, params)
	if err != nil {
		return pdf.Result{}, err
	}

	if !bytes.HasPrefix(out, zipMagic) {
		name := strings.TrimSuffix(file.DisplayName(), ".pdf") + "-" + opts.Ranges + ".pdf"
		if out, err = zipSingle(name, out); err != nil {
			return pdf.Result{}, err
		}
	}
	return pdf.Result{Data: out, ContentType: pdf.ContentTypeZIP}, nil
}

// Compress reduces file size at the given level.
func (p *Processor) Compress(ctx context.Context, file pdf.File, level pdf.CompressionLevel) (pdf.Result, error) {
	params := map[string]any{"compression_level": string(level)}
	out, err := p.client.runTask(ctx, "compress", []upload{{name: file.DisplayName(), data: file.Data}}, params)
	if err != nil {
		return pdf.Result{}, err
	}
	return pdf.Result{Data: out, ContentType: pdf.ContentTypePDF}, nil
}

func zipSingle(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		return nil, fmt.Errorf("zip entry: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}
	return buf.Bytes(), nil
}

var _ ports.PDFProcessor = (*Processor)(nil)
