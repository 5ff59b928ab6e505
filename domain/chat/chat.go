// Package chat provides chat message types and prompt construction.
// All functions are pure - no side effects.
package chat

import (
	"strings"
	"time"
)

// Role of a chat message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultDocID is used when a chat is not tied to a document.
const DefaultDocID = "general"

// Valid returns true for known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one persisted chat history entry (value type).
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	DocID     string    `json:"doc_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DocIDOrDefault returns docID, or DefaultDocID when blank.
func DocIDOrDefault(docID string) string {
	if strings.TrimSpace(docID) == "" {
		return DefaultDocID
	}
	return docID
}

// Prompt is what is sent to the language model.
type Prompt struct {
	Text         string
	Document     []byte // inline PDF, optional
	DocumentMIME string
}

// HasDocument reports whether a document is attached.
func (p Prompt) HasDocument() bool {
	return len(p.Document) > 0
}

// BuildPrompt constructs the model prompt for a question.
func BuildPrompt(question string, document []byte) Prompt {
	var sb strings.Builder
	sb.WriteString("User Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\n")

	p := Prompt{}
	if len(document) > 0 {
		sb.WriteString("Using the attached document, answer the user's question. If the answer is not in the document, say so.\n")
		p.Document = document
		p.DocumentMIME = "application/pdf"
	} else {
		sb.WriteString("Answer the following question as a helpful assistant.")
	}
	p.Text = sb.String()
	return p
}
