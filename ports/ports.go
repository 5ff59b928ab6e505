// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/documind/domain/chat"
	"github.com/artpar/documind/domain/pdf"
	"github.com/artpar/documind/domain/usage"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// UsageLog is the append-only usage event log.
// Events are never updated or deleted through this interface.
type UsageLog interface {
	// Count returns the number of events matching the filter.
	Count(ctx context.Context, f usage.Filter) (int64, error)

	// Append stores one event.
	Append(ctx context.Context, e usage.Event) error
}

// ChatHistoryStore persists chat messages for authenticated users.
type ChatHistoryStore interface {
	// Append stores a message.
	Append(ctx context.Context, m chat.Message) error

	// List returns messages for a user and document, oldest first.
	List(ctx context.Context, userID, docID string) ([]chat.Message, error)
}

// Pinger reports store reachability (used by readiness checks).
type Pinger interface {
	Ping(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// PDFProcessor performs document transformations.
type PDFProcessor interface {
	// Merge combines files in order into one PDF.
	Merge(ctx context.Context, files []pdf.File) (pdf.Result, error)

	// Split extracts page ranges; the result is a ZIP archive.
	Split(ctx context.Context, file pdf.File, opts pdf.SplitOptions) (pdf.Result, error)

	// Compress reduces file size.
	Compress(ctx context.Context, file pdf.File, level pdf.CompressionLevel) (pdf.Result, error)
}

// LanguageModel generates text answers.
type LanguageModel interface {
	// Generate asks the named model for an answer.
	Generate(ctx context.Context, model string, p chat.Prompt) (string, error)
}

// IdentityVerifier validates session tokens issued by the auth provider.
type IdentityVerifier interface {
	// Verify returns the user id the token was issued for.
	Verify(token string) (string, error)
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// Metrics records service counters.
type Metrics interface {
	QuotaDecision(bucket, outcome string)
	QuotaStoreError(op string)
	UsageRecorded(action string)
	PDFTask(tool, status string)
	AIRequest(model, status string)
}
