package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/documind/adapters/sqlite"
	"github.com/artpar/documind/domain/usage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "documind.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: memory\n")

	out, err := run(t, "validate", "--config", path, "--check-store")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	for _, want := range []string{"Config valid", "Store: memory", "guest 1, user 5, ai 3", "Store reachable"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidate_Invalid(t *testing.T) {
	path := writeConfig(t, "pdf:\n  engine: ilovepdf\n")

	if _, err := run(t, "validate", "--config", path); err == nil {
		t.Error("expected validation error")
	}
}

func TestUsage(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "usage.db")
	db, err := sqlite.Open(dsn)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	store := sqlite.NewUsageStore(db)
	now := time.Now()
	for i, action := range []string{usage.ActionMerge, usage.ActionSplit, usage.ActionAIChat} {
		e := usage.NewEvent(string(rune('a'+i)), usage.User("u1"), action, nil, now)
		if err := store.Append(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	path := writeConfig(t, "store:\n  driver: sqlite\n  dsn: "+dsn+"\n")

	out, err := run(t, "usage", "--config", path, "--user", "u1")
	if err != nil {
		t.Fatalf("usage: %v\n%s", err, out)
	}
	if !strings.Contains(out, "user:u1") {
		t.Errorf("output missing identity:\n%s", out)
	}
	if !strings.Contains(out, "general  2     5      3") {
		t.Errorf("general row wrong:\n%s", out)
	}
	if !strings.Contains(out, "ai-chat  1     3      2") {
		t.Errorf("ai-chat row wrong:\n%s", out)
	}
}

func TestUsage_RequiresIdentity(t *testing.T) {
	if _, err := run(t, "usage"); err == nil {
		t.Error("expected error without --user or --ip")
	}
	if _, err := run(t, "usage", "--user", "u1", "--ip", "1.2.3.4"); err == nil {
		t.Error("expected error with both --user and --ip")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "documind ") {
		t.Errorf("version output = %q", out)
	}
}
