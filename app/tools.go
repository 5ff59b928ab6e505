package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/artpar/documind/domain/pdf"
	"github.com/artpar/documind/domain/usage"
	"github.com/artpar/documind/ports"
)

// Output file names returned to callers.
const (
	MergedFileName = "merged.pdf"
	SplitFileName  = "split-files.zip"
)

// ToolService runs the gated PDF tools.
type ToolService struct {
	gate    *UsageGate
	proc    ports.PDFProcessor
	maxSize int64
	metrics ports.Metrics
	logger  zerolog.Logger
}

// NewToolService creates a new tool service.
// maxSize is the per-file upload limit in bytes; 0 uses pdf.MaxFileSize.
func NewToolService(gate *UsageGate, proc ports.PDFProcessor, maxSize int64, m ports.Metrics, logger zerolog.Logger) *ToolService {
	if maxSize <= 0 {
		maxSize = pdf.MaxFileSize
	}
	if m == nil {
		m = noopMetrics{}
	}
	return &ToolService{
		gate:    gate,
		proc:    proc,
		maxSize: maxSize,
		metrics: m,
		logger:  logger.With().Str("component", "tools").Logger(),
	}
}

// Merge combines files, in order, into merged.pdf.
func (s *ToolService) Merge(ctx context.Context, id usage.Identity, files []pdf.File) (pdf.Result, error) {
	if len(files) < 2 {
		return pdf.Result{}, invalid("Please upload at least 2 PDF files to merge.")
	}
	if err := s.validate(files...); err != nil {
		return pdf.Result{}, err
	}

	return Gated(ctx, s.gate, id, usage.ActionMerge,
		func(ctx context.Context) (pdf.Result, error) {
			res, err := s.run(usage.ActionMerge, func() (pdf.Result, error) { return s.proc.Merge(ctx, files) })
			if err != nil {
				return pdf.Result{}, err
			}
			res.FileName = MergedFileName
			res.ContentType = pdf.ContentTypePDF
			return res, nil
		},
		func(pdf.Result) json.RawMessage {
			return detailsJSON(map[string]any{"files": fileNames(files)})
		},
	)
}

// Split extracts page ranges into split-files.zip.
func (s *ToolService) Split(ctx context.Context, id usage.Identity, file pdf.File, opts pdf.SplitOptions) (pdf.Result, error) {
	if err := s.validate(file); err != nil {
		return pdf.Result{}, err
	}
	opts = opts.Normalize()

	return Gated(ctx, s.gate, id, usage.ActionSplit,
		func(ctx context.Context) (pdf.Result, error) {
			res, err := s.run(usage.ActionSplit, func() (pdf.Result, error) { return s.proc.Split(ctx, file, opts) })
			if err != nil {
				return pdf.Result{}, err
			}
			res.FileName = SplitFileName
			res.ContentType = pdf.ContentTypeZIP
			return res, nil
		},
		func(pdf.Result) json.RawMessage {
			return detailsJSON(map[string]any{"file": file.DisplayName(), "ranges": opts.Ranges})
		},
	)
}

// Compress reduces file size; the output is named compressed_<name>.
func (s *ToolService) Compress(ctx context.Context, id usage.Identity, file pdf.File, level pdf.CompressionLevel) (pdf.Result, error) {
	if err := s.validate(file); err != nil {
		return pdf.Result{}, err
	}
	if level == "" {
		level = pdf.CompressionRecommended
	}

	return Gated(ctx, s.gate, id, usage.ActionCompress,
		func(ctx context.Context) (pdf.Result, error) {
			res, err := s.run(usage.ActionCompress, func() (pdf.Result, error) { return s.proc.Compress(ctx, file, level) })
			if err != nil {
				return pdf.Result{}, err
			}
			res.FileName = "compressed_" + file.DisplayName()
			res.ContentType = pdf.ContentTypePDF
			return res, nil
		},
		func(res pdf.Result) json.RawMessage {
			return detailsJSON(map[string]any{
				"file":     file.DisplayName(),
				"level":    string(level),
				"size_in":  len(file.Data),
				"size_out": len(res.Data),
			})
		},
	)
}

func (s *ToolService) validate(files ...pdf.File) error {
	for _, f := range files {
		if err := f.Validate(s.maxSize); err != nil {
			return invalid(err.Error())
		}
	}
	return nil
}

func (s *ToolService) run(tool string, fn func() (pdf.Result, error)) (pdf.Result, error) {
	res, err := fn()
	if err != nil {
		s.metrics.PDFTask(tool, "error")
		s.logger.Error().Err(err).Str("tool", tool).Msg("pdf tool failed")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return pdf.Result{}, err
		}
		return pdf.Result{}, fmt.Errorf("%s failed: %w", tool, err)
	}
	s.metrics.PDFTask(tool, "ok")
	return res, nil
}

func fileNames(files []pdf.File) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.DisplayName()
	}
	return names
}

func detailsJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
