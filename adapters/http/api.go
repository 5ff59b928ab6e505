package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/documind/app"
	"github.com/artpar/documind/domain/chat"
	"github.com/artpar/documind/domain/pdf"
	"github.com/artpar/documind/domain/quota"
	"github.com/artpar/documind/ports"
)

// API serves the tool, chat and usage endpoints under /api.
type API struct {
	tools     *app.ToolService
	chat      *app.ChatService
	gate      *app.UsageGate
	clock     ports.Clock
	maxUpload int64
	logger    zerolog.Logger
}

// APIConfig holds API dependencies.
type APIConfig struct {
	Tools     *app.ToolService
	Chat      *app.ChatService
	Gate      *app.UsageGate
	Clock     ports.Clock
	MaxUpload int64 // total request body limit in bytes
	Logger    zerolog.Logger
}

// NewAPI creates the API handlers.
func NewAPI(cfg APIConfig) *API {
	maxUpload := cfg.MaxUpload
	if maxUpload <= 0 {
		maxUpload = 4 * pdf.MaxFileSize
	}
	return &API{
		tools:     cfg.Tools,
		chat:      cfg.Chat,
		gate:      cfg.Gate,
		clock:     cfg.Clock,
		maxUpload: maxUpload,
		logger:    cfg.Logger.With().Str("component", "http").Logger(),
	}
}

// Mount registers the API routes on r.
func (a *API) Mount(r chi.Router) {
	r.Post("/tools/merge", a.merge)
	r.Post("/tools/split", a.split)
	r.Post("/tools/compress", a.compress)
	r.Post("/ai-chat", a.aiChat)
	r.Get("/chat/history", a.listHistory)
	r.Post("/chat/history", a.appendHistory)
	r.Get("/user/usage", a.usage)
}

// -----------------------------------------------------------------------------
// Tools
// -----------------------------------------------------------------------------

func (a *API) merge(w http.ResponseWriter, r *http.Request) {
	form, err := a.parseMultipart(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	files, err := readFiles(form, "files")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.tools.Merge(r.Context(), IdentityFrom(r.Context()), files)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeFile(w, res)
}

func (a *API) split(w http.ResponseWriter, r *http.Request) {
	form, err := a.parseMultipart(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	file, err := readFile(form, "file")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	opts := pdf.SplitOptions{
		Mode:   pdf.SplitMode(formValue(form, "splitMode")),
		Ranges: formValue(form, "ranges"),
	}

	res, err := a.tools.Split(r.Context(), IdentityFrom(r.Context()), file, opts)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeFile(w, res)
}

func (a *API) compress(w http.ResponseWriter, r *http.Request) {
	form, err := a.parseMultipart(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	file, err := readFile(form, "file")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	level, err := pdf.ParseCompressionLevel(formValue(form, "level"))
	if err != nil {
		a.writeError(w, r, &app.InputError{Message: err.Error()})
		return
	}

	res, err := a.tools.Compress(r.Context(), IdentityFrom(r.Context()), file, level)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeFile(w, res)
}

// -----------------------------------------------------------------------------
// Chat
// -----------------------------------------------------------------------------

type askBody struct {
	Message string `json:"message"`
	DocID   string `json:"docId"`
}

func (a *API) aiChat(w http.ResponseWriter, r *http.Request) {
	var req app.AskRequest

	if isJSON(r) {
		var body askBody
		r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			a.writeError(w, r, &app.InputError{Message: "Invalid JSON body"})
			return
		}
		req = app.AskRequest{Message: body.Message, DocID: body.DocID}
	} else {
		form, err := a.parseMultipart(w, r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		req = app.AskRequest{Message: formValue(form, "message"), DocID: formValue(form, "docId")}
		if hasFile(form, "file") {
			doc, err := readFile(form, "file")
			if err != nil {
				a.writeError(w, r, err)
				return
			}
			req.Document = &doc
		}
	}

	ans, err := a.chat.Ask(r.Context(), IdentityFrom(r.Context()), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": ans.Text})
}

type historyBody struct {
	DocID   string    `json:"docId"`
	Role    chat.Role `json:"role"`
	Content string    `json:"content"`
}

func (a *API) listHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.chat.History(r.Context(), IdentityFrom(r.Context()), r.URL.Query().Get("docId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (a *API) appendHistory(w http.ResponseWriter, r *http.Request) {
	var body historyBody
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, r, &app.InputError{Message: "Invalid JSON body"})
		return
	}

	m, err := a.chat.AppendHistory(r.Context(), IdentityFrom(r.Context()), body.DocID, body.Role, body.Content)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": m})
}

// -----------------------------------------------------------------------------
// Usage
// -----------------------------------------------------------------------------

// UsageResponse is the body of GET /api/user/usage.
type UsageResponse struct {
	Usage     int64 `json:"usage"`
	Limit     int64 `json:"limit"`
	AIUsage   int64 `json:"ai_usage"`
	AILimit   int64 `json:"ai_limit"`
	Remaining int64 `json:"remaining"`
	IsGuest   bool  `json:"is_guest"`
}

func (a *API) usage(w http.ResponseWriter, r *http.Request) {
	s := a.gate.Snapshot(r.Context(), IdentityFrom(r.Context()))
	writeJSON(w, http.StatusOK, UsageResponse{
		Usage:     s.GeneralUsed,
		Limit:     s.GeneralLimit,
		AIUsage:   s.AIUsed,
		AILimit:   s.AILimit,
		Remaining: s.Remaining(),
		IsGuest:   s.IsGuest,
	})
}

// -----------------------------------------------------------------------------
// Request and response helpers
// -----------------------------------------------------------------------------

func (a *API) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &app.InputError{Message: fmt.Sprintf("Request too large (max %d bytes)", tooLarge.Limit)}
		}
		return nil, &app.InputError{Message: "Expected multipart/form-data body"}
	}
	return r.MultipartForm, nil
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func hasFile(form *multipart.Form, key string) bool {
	return len(form.File[key]) > 0
}

func readFile(form *multipart.Form, key string) (pdf.File, error) {
	headers := form.File[key]
	if len(headers) == 0 {
		return pdf.File{}, &app.InputError{Message: "Please upload a PDF file."}
	}
	return openPart(headers[0])
}

func readFiles(form *multipart.Form, key string) ([]pdf.File, error) {
	headers := form.File[key]
	files := make([]pdf.File, 0, len(headers))
	for _, fh := range headers {
		f, err := openPart(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func openPart(fh *multipart.FileHeader) (pdf.File, error) {
	f, err := fh.Open()
	if err != nil {
		return pdf.File{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return pdf.File{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return pdf.File{Name: fh.Filename, Data: data}, nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func writeFile(w http.ResponseWriter, res pdf.Result) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// writeError maps service errors to status codes.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *app.DeniedError
	switch {
	case errors.As(err, &denied):
		if denied.Decision.Reason == quota.ReasonLimitExceeded && a.clock != nil {
			now := a.clock.Now()
			secs := int(quota.NextReset(now).Sub(now) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
		}
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	case errors.Is(err, app.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": userMessage(err)})
	case errors.Is(err, app.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	default:
		a.logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("identity", IdentityFrom(r.Context()).String()).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// userMessage returns the caller-facing text of an input error.
func userMessage(err error) string {
	var ie *app.InputError
	if errors.As(err, &ie) {
		return ie.Message
	}
	return strings.TrimSpace(err.Error())
}
