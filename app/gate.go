// Package app contains the application services: the usage gate and the
// PDF tool and chat services it guards.
package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/documind/domain/quota"
	"github.com/artpar/documind/domain/usage"
	"github.com/artpar/documind/ports"
)

// LimitsSource provides the current daily limits.
// Implementations may change their answer between calls (config reload).
type LimitsSource interface {
	Limits() quota.Limits
}

// StaticLimits is a fixed LimitsSource.
type StaticLimits quota.Limits

// Limits returns the fixed limits.
func (s StaticLimits) Limits() quota.Limits { return quota.Limits(s) }

// LimitsFunc adapts a function to LimitsSource.
type LimitsFunc func() quota.Limits

// Limits calls f.
func (f LimitsFunc) Limits() quota.Limits { return f() }

// Snapshot is a read-only view of today's usage for display.
type Snapshot struct {
	GeneralUsed  int64
	GeneralLimit int64
	AIUsed       int64
	AILimit      int64
	IsGuest      bool
}

// Remaining returns how many general actions are left today.
func (s Snapshot) Remaining() int64 {
	return quota.Remaining(s.GeneralUsed, s.GeneralLimit)
}

// UsageGate decides whether an identity may perform an action and records
// actions that completed. It holds no per-identity state; every call reads
// the usage log.
//
// Check and record are separate store operations, so concurrent requests
// from one identity can both pass at limit-1.
type UsageGate struct {
	log     ports.UsageLog
	clock   ports.Clock
	ids     ports.IDGenerator
	limits  LimitsSource
	metrics ports.Metrics
	logger  zerolog.Logger
}

// GateOption configures a UsageGate.
type GateOption func(*UsageGate)

// WithLimits sets the limits source. The default is quota.DefaultLimits.
func WithLimits(src LimitsSource) GateOption {
	return func(g *UsageGate) { g.limits = src }
}

// WithMetrics enables metric recording. A nil m leaves metrics off.
func WithMetrics(m ports.Metrics) GateOption {
	return func(g *UsageGate) {
		if m != nil {
			g.metrics = m
		}
	}
}

// NewUsageGate creates a usage gate over the given log.
func NewUsageGate(log ports.UsageLog, clock ports.Clock, ids ports.IDGenerator, logger zerolog.Logger, opts ...GateOption) *UsageGate {
	g := &UsageGate{
		log:     log,
		clock:   clock,
		ids:     ids,
		limits:  StaticLimits(quota.DefaultLimits()),
		metrics: noopMetrics{},
		logger:  logger.With().Str("component", "usage_gate").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckAllowed decides whether identity may perform action now.
//
// An unattributable caller is denied. A failing usage log allows the
// action with a zero count.
func (g *UsageGate) CheckAllowed(ctx context.Context, id usage.Identity, action string) quota.Decision {
	if !id.Resolved() || action == "" {
		d := quota.Unresolved()
		g.logger.Warn().
			Str("identity", id.String()).
			Str("action", action).
			Msg("quota check for unresolved caller denied")
		g.metrics.QuotaDecision("none", "denied")
		return d
	}

	limits := g.limits.Limits()
	bucket := quota.Select(id, action)
	since := quota.StartOfDay(g.clock.Now())

	count, err := g.log.Count(ctx, quota.FilterFor(id, bucket, since))
	if err != nil {
		g.logger.Error().Err(err).
			Str("identity", id.String()).
			Str("action", action).
			Str("bucket", string(bucket)).
			Msg("usage count failed, allowing request")
		g.metrics.QuotaStoreError("count")
		g.metrics.QuotaDecision(string(bucket), "fail_open")
		return quota.StoreUnavailable(bucket, limits)
	}

	d := quota.Check(bucket, count, limits)
	if d.Allowed {
		g.metrics.QuotaDecision(string(bucket), "allowed")
	} else {
		g.metrics.QuotaDecision(string(bucket), "denied")
		g.logger.Info().
			Str("identity", id.String()).
			Str("action", action).
			Str("bucket", string(bucket)).
			Int64("count", d.Count).
			Int64("limit", d.Limit).
			Msg("quota exceeded")
	}
	return d
}

// RecordUsage appends one event for a completed action.
// Failures are logged and dropped; nothing is retried or returned.
func (g *UsageGate) RecordUsage(ctx context.Context, id usage.Identity, action string, details json.RawMessage) {
	if !id.Resolved() || action == "" {
		g.logger.Warn().
			Str("identity", id.String()).
			Str("action", action).
			Msg("skipping usage record for unresolved caller")
		return
	}
	if err := ctx.Err(); err != nil {
		g.logger.Debug().Err(err).
			Str("identity", id.String()).
			Str("action", action).
			Msg("request ended before usage was recorded")
		return
	}

	e := usage.NewEvent(g.ids.New(), id, action, details, g.clock.Now())
	if err := g.log.Append(ctx, e); err != nil {
		g.logger.Error().Err(err).
			Str("identity", id.String()).
			Str("action", action).
			Str("event_id", e.ID).
			Msg("failed to record usage")
		g.metrics.QuotaStoreError("append")
		return
	}
	g.metrics.UsageRecorded(action)
}

// Snapshot returns today's usage for display. It never mutates the log.
func (g *UsageGate) Snapshot(ctx context.Context, id usage.Identity) Snapshot {
	limits := g.limits.Limits()
	since := quota.StartOfDay(g.clock.Now())

	if !id.Resolved() {
		return Snapshot{GeneralLimit: limits.Guest, AILimit: limits.Guest, IsGuest: true}
	}

	if id.IsGuest() {
		used := g.count(ctx, id, quota.BucketGuestGlobal, since)
		return Snapshot{
			GeneralUsed:  used,
			GeneralLimit: limits.Guest,
			AIUsed:       used,
			AILimit:      limits.Guest,
			IsGuest:      true,
		}
	}

	return Snapshot{
		GeneralUsed:  g.count(ctx, id, quota.BucketUserGeneral, since),
		GeneralLimit: limits.UserGeneral,
		AIUsed:       g.count(ctx, id, quota.BucketUserAIChat, since),
		AILimit:      limits.UserAIChat,
	}
}

// count reads one bucket, treating a failed read as zero.
func (g *UsageGate) count(ctx context.Context, id usage.Identity, b quota.Bucket, since time.Time) int64 {
	n, err := g.log.Count(ctx, quota.FilterFor(id, b, since))
	if err != nil {
		g.logger.Error().Err(err).
			Str("identity", id.String()).
			Str("bucket", string(b)).
			Msg("usage count failed, reporting zero")
		g.metrics.QuotaStoreError("count")
		return 0
	}
	return n
}

type noopMetrics struct{}

func (noopMetrics) QuotaDecision(string, string) {}
func (noopMetrics) QuotaStoreError(string)       {}
func (noopMetrics) UsageRecorded(string)         {}
func (noopMetrics) PDFTask(string, string)       {}
func (noopMetrics) AIRequest(string, string)     {}
