// Package gemini implements ports.LanguageModel with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/artpar/documind/domain/chat"
	"github.com/artpar/documind/ports"
)

// Model answers prompts through the Gemini API.
type Model struct {
	client      *genai.Client
	timeout     time.Duration
	temperature float32
}

// New creates a Gemini-backed model client.
func New(ctx context.Context, apiKey string, timeout time.Duration) (*Model, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Model{client: client, timeout: timeout, temperature: 0.3}, nil
}

// Generate asks the named model for an answer.
func (m *Model) Generate(ctx context.Context, model string, p chat.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(m.temperature),
	}

	resp, err := m.client.Models.GenerateContent(ctx, model, buildContents(p), config)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	return resp.Text(), nil
}

// buildContents places the document (when present) before the question.
func buildContents(p chat.Prompt) []*genai.Content {
	var parts []*genai.Part
	if p.HasDocument() {
		parts = append(parts, genai.NewPartFromBytes(p.Document, p.DocumentMIME))
	}
	parts = append(parts, genai.NewPartFromText(p.Text))

	return []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
}

var _ ports.LanguageModel = (*Model)(nil)
