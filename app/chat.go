package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/documind/domain/chat"
	"github.com/artpar/documind/domain/pdf"
	"github.com/artpar/documind/domain/usage"
	"github.com/artpar/documind/ports"
)

// DefaultModels is the model fallback order used when none is configured.
var DefaultModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash",
	"gemini-1.5-flash",
}

// AskRequest is one chat question.
type AskRequest struct {
	Message  string
	DocID    string
	Document *pdf.File // optional
}

// Answer is the model's reply.
type Answer struct {
	Text  string
	Model string
}

// ChatService answers questions through a language model and keeps
// history for signed-in users.
type ChatService struct {
	gate    *UsageGate
	llm     ports.LanguageModel
	history ports.ChatHistoryStore
	ids     ports.IDGenerator
	clock   ports.Clock
	models  func() []string
	maxSize int64
	metrics ports.Metrics
	logger  zerolog.Logger
}

// ChatConfig holds ChatService dependencies.
type ChatConfig struct {
	Gate    *UsageGate
	LLM     ports.LanguageModel
	History ports.ChatHistoryStore
	IDs     ports.IDGenerator
	Clock   ports.Clock
	Models  func() []string // read per request; nil uses DefaultModels
	MaxSize int64
	Metrics ports.Metrics
	Logger  zerolog.Logger
}

// NewChatService creates a new chat service.
func NewChatService(cfg ChatConfig) *ChatService {
	s := &ChatService{
		gate:    cfg.Gate,
		llm:     cfg.LLM,
		history: cfg.History,
		ids:     cfg.IDs,
		clock:   cfg.Clock,
		models:  cfg.Models,
		maxSize: cfg.MaxSize,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With().Str("component", "chat").Logger(),
	}
	if s.models == nil {
		s.models = func() []string { return DefaultModels }
	}
	if s.maxSize <= 0 {
		s.maxSize = pdf.MaxFileSize
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	return s
}

// Ask answers a question, optionally about an attached document.
// The quota check runs before the request is validated, and a rejected
// request is not recorded.
func (s *ChatService) Ask(ctx context.Context, id usage.Identity, req AskRequest) (Answer, error) {
	ans, err := Gated(ctx, s.gate, id, usage.ActionAIChat,
		func(ctx context.Context) (Answer, error) {
			msg := strings.TrimSpace(req.Message)
			if msg == "" {
				return Answer{}, invalid("Message is required")
			}
			var doc []byte
			if req.Document != nil {
				if err := req.Document.Validate(s.maxSize); err != nil {
					return Answer{}, invalid(err.Error())
				}
				doc = req.Document.Data
			}
			return s.generate(ctx, chat.BuildPrompt(msg, doc))
		},
		func(a Answer) json.RawMessage {
			return detailsJSON(map[string]any{
				"doc_id":       chat.DocIDOrDefault(req.DocID),
				"model":        a.Model,
				"has_document": req.Document != nil,
			})
		},
	)
	if err != nil {
		return Answer{}, err
	}

	if !id.IsGuest() {
		s.saveExchange(ctx, id.UserID, req.DocID, strings.TrimSpace(req.Message), ans.Text)
	}
	return ans, nil
}

// generate tries each configured model in order until one answers.
func (s *ChatService) generate(ctx context.Context, p chat.Prompt) (Answer, error) {
	var errs []error
	for _, model := range s.models() {
		text, err := s.llm.Generate(ctx, model, p)
		if err == nil && strings.TrimSpace(text) != "" {
			s.metrics.AIRequest(model, "ok")
			return Answer{Text: text, Model: model}, nil
		}
		if err == nil {
			err = errors.New("empty response")
		}
		s.metrics.AIRequest(model, "error")
		s.logger.Warn().Err(err).Str("model", model).Msg("model failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", model, err))

		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return Answer{}, ErrAllModelsFailed
	}
	return Answer{}, fmt.Errorf("%w: %w", ErrAllModelsFailed, errors.Join(errs...))
}

func (s *ChatService) saveExchange(ctx context.Context, userID, docID, question, answer string) {
	now := s.clock.Now().UTC()
	docID = chat.DocIDOrDefault(docID)

	msgs := []chat.Message{
		{ID: s.ids.New(), UserID: userID, DocID: docID, Role: chat.RoleUser, Content: question, CreatedAt: now},
		{ID: s.ids.New(), UserID: userID, DocID: docID, Role: chat.RoleAssistant, Content: answer, CreatedAt: now.Add(time.Millisecond)},
	}
	for _, m := range msgs {
		if err := s.history.Append(ctx, m); err != nil {
			s.logger.Error().Err(err).
				Str("user_id", userID).
				Str("doc_id", docID).
				Msg("failed to save chat history")
			return
		}
	}
}

// History returns a signed-in user's messages for a document.
func (s *ChatService) History(ctx context.Context, id usage.Identity, docID string) ([]chat.Message, error) {
	if id.UserID == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(docID) == "" {
		return nil, invalid("Missing docId")
	}

	msgs, err := s.history.List(ctx, id.UserID, docID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return msgs, nil
}

// AppendHistory stores one message for a signed-in user.
func (s *ChatService) AppendHistory(ctx context.Context, id usage.Identity, docID string, role chat.Role, content string) (chat.Message, error) {
	if id.UserID == "" {
		return chat.Message{}, ErrUnauthorized
	}
	if strings.TrimSpace(docID) == "" || role == "" || strings.TrimSpace(content) == "" {
		return chat.Message{}, invalid("Missing required fields")
	}
	if !role.Valid() {
		return chat.Message{}, invalid(fmt.Sprintf("Invalid role %q", role))
	}

	m := chat.Message{
		ID:        s.ids.New(),
		UserID:    id.UserID,
		DocID:     docID,
		Role:      role,
		Content:   content,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.history.Append(ctx, m); err != nil {
		return chat.Message{}, fmt.Errorf("save chat message: %w", err)
	}
	return m, nil
}
