package chat

import (
	"strings"
	"testing"
)

func TestRole_Valid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleUser, true},
		{RoleAssistant, true},
		{"system", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.want {
			t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestDocIDOrDefault(t *testing.T) {
	if got := DocIDOrDefault(""); got != DefaultDocID {
		t.Errorf("DocIDOrDefault(\"\") = %q, want %q", got, DefaultDocID)
	}
	if got := DocIDOrDefault("  "); got != DefaultDocID {
		t.Errorf("DocIDOrDefault(blank) = %q, want %q", got, DefaultDocID)
	}
	if got := DocIDOrDefault("doc-1"); got != "doc-1" {
		t.Errorf("DocIDOrDefault(doc-1) = %q", got)
	}
}

func TestBuildPrompt_WithoutDocument(t *testing.T) {
	p := BuildPrompt("What is Go?", nil)

	if !strings.HasPrefix(p.Text, "User Question: What is Go?\n\n") {
		t.Errorf("unexpected prompt prefix: %q", p.Text)
	}
	if !strings.Contains(p.Text, "helpful assistant") {
		t.Errorf("expected general assistant instruction, got %q", p.Text)
	}
	if p.HasDocument() {
		t.Error("expected no document")
	}
}

func TestBuildPrompt_WithDocument(t *testing.T) {
	doc := []byte("%PDF-1.7")
	p := BuildPrompt("Summarize", doc)

	if !strings.Contains(p.Text, "attached document") {
		t.Errorf("expected document instruction, got %q", p.Text)
	}
	if !p.HasDocument() {
		t.Fatal("expected document")
	}
	if p.DocumentMIME != "application/pdf" {
		t.Errorf("DocumentMIME = %q", p.DocumentMIME)
	}
}
