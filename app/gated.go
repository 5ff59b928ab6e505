package app

import (
	"context"
	"encoding/json"

	"github.com/artpar/documind/domain/usage"
)

// Gated runs fn under the usage gate.
//
// A denied check returns *DeniedError without running fn. A failing fn is
// returned as is. Only a successful fn is recorded, with details(result)
// as the event payload when details is non-nil.
func Gated[T any](
	ctx context.Context,
	g *UsageGate,
	id usage.Identity,
	action string,
	fn func(context.Context) (T, error),
	details func(T) json.RawMessage,
) (T, error) {
	var zero T

	d := g.CheckAllowed(ctx, id, action)
	if !d.Allowed {
		return zero, &DeniedError{Decision: d}
	}

	out, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	var payload json.RawMessage
	if details != nil {
		payload = details(out)
	}
	g.RecordUsage(ctx, id, action, payload)
	return out, nil
}
