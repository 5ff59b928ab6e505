// Package ilovepdf implements ports.PDFProcessor on the iLovePDF REST API.
//
// Every tool run is one task:
//
//	GET  {base}/v1/start/{tool}        -> {"server": "...", "task": "..."}
//	POST {server}/v1/upload            multipart task + file -> {"server_filename": "..."}
//	POST {server}/v1/process           {"task", "tool", "files": [...], ...params}
//	GET  {server}/v1/download/{task}   -> output bytes
//
// Requests carry a short-lived HS256 token signed with the project's secret key.
package ilovepdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultBaseURL is the public API entry point.
const DefaultBaseURL = "https://api.ilovepdf.com"

// Config configures the client.
type Config struct {
	PublicKey string
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
	// WorkerScheme is the scheme used for task servers (default "https").
	WorkerScheme string
}

// Client talks to the iLovePDF API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	publicKey    string
	secretKey    []byte
	workerScheme string
	now          func() time.Time
}

// NewClient creates a new API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	scheme := cfg.WorkerScheme
	if scheme == "" {
		scheme = "https"
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		publicKey:    cfg.PublicKey,
		secretKey:    []byte(cfg.SecretKey),
		workerScheme: scheme,
		now:          time.Now,
	}
}

// token returns a self-signed project token.
func (c *Client) token() (string, error) {
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    "api.ilovepdf.com",
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		ID:        c.publicKey,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// do sends a request and decodes a JSON response into result when non-nil.
func (c *Client) do(ctx context.Context, method, url, token, contentType string, body io.Reader, result interface{}) error {
	resp, err := c.send(ctx, method, url, token, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, url, token, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ilovepdf error %d: %s", e.StatusCode, e.Message)
}

type startResponse struct {
	Server string `json:"server"`
	Task   string `json:"task"`
}

type uploadResponse struct {
	ServerFilename string `json:"server_filename"`
}

type processFile struct {
	ServerFilename string `json:"server_filename"`
	Filename       string `json:"filename"`
}

// upload is one input document for a task.
type upload struct {
	name string
	data []byte
}

// runTask executes a complete task and returns the downloaded output.
func (c *Client) runTask(ctx context.Context, tool string, files []upload, params map[string]any) ([]byte, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	var start startResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/start/"+tool, token, "", nil, &start); err != nil {
		return nil, fmt.Errorf("start %s: %w", tool, err)
	}
	if start.Server == "" || start.Task == "" {
		return nil, fmt.Errorf("start %s: empty server or task", tool)
	}
	worker := c.workerScheme + "://" + start.Server + "/v1"

	processed := make([]processFile, 0, len(files))
	for _, f := range files {
		name, err := c.uploadFile(ctx, worker, token, start.Task, f)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", f.name, err)
		}
		processed = append(processed, processFile{ServerFilename: name, Filename: f.name})
	}

	body := map[string]any{
		"task":  start.Task,
		"tool":  tool,
		"files": processed,
	}
	for k, v := range params {
		body[k] = v
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal process request: %w", err)
	}
	if err := c.do(ctx, http.MethodPost, worker+"/process", token, "application/json", bytes.NewReader(data), nil); err != nil {
		return nil, fmt.Errorf("process %s: %w", tool, err)
	}

	resp, err := c.send(ctx, http.MethodGet, worker+"/download/"+start.Task, token, "", nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", tool, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	return out, nil
}

func (c *Client) uploadFile(ctx context.Context, worker, token, task string, f upload) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("task", task); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", f.name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(f.data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var res uploadResponse
	if err := c.do(ctx, http.MethodPost, worker+"/upload", token, mw.FormDataContentType(), &buf, &res); err != nil {
		return "", err
	}
	if res.ServerFilename == "" {
		return "", fmt.Errorf("empty server_filename")
	}
	return res.ServerFilename, nil
}
