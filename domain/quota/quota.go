// Package quota provides pure functions for daily usage quota enforcement.
// All functions are deterministic with no side effects.
package quota

import (
	"fmt"
	"time"

	"github.com/artpar/documind/domain/usage"
)

// Bucket is a named quota pool with its own daily limit and counting filter.
type Bucket string

const (
	BucketGuestGlobal Bucket = "guest_global" // guests: every action, one pool
	BucketUserGeneral Bucket = "user_general" // users: every action except ai-chat
	BucketUserAIChat  Bucket = "user_ai_chat" // users: ai-chat only
)

// Reason explains a Decision.
type Reason string

const (
	ReasonOK                 Reason = "ok"
	ReasonLimitExceeded      Reason = "limit_exceeded"
	ReasonIdentityUnresolved Reason = "identity_unresolved"
	ReasonStoreUnavailable   Reason = "store_unavailable" // count failed, allowed anyway
)

// Default daily limits.
const (
	DefaultGuestLimit       = 1
	DefaultUserGeneralLimit = 5
	DefaultUserAIChatLimit  = 3
)

// Limits holds the daily limit per bucket (value type).
type Limits struct {
	Guest       int64
	UserGeneral int64
	UserAIChat  int64
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		Guest:       DefaultGuestLimit,
		UserGeneral: DefaultUserGeneralLimit,
		UserAIChat:  DefaultUserAIChatLimit,
	}
}

// For returns the limit for a bucket.
func (l Limits) For(b Bucket) int64 {
	switch b {
	case BucketGuestGlobal:
		return l.Guest
	case BucketUserAIChat:
		return l.UserAIChat
	default:
		return l.UserGeneral
	}
}

// Decision is the outcome of a quota check (value type).
type Decision struct {
	Allowed bool
	Count   int64
	Limit   int64
	Bucket  Bucket
	Reason  Reason
}

// StartOfDay returns 00:00:00 UTC of t's UTC calendar date.
// The window resets at UTC midnight; it is not a sliding 24h window.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NextReset returns the instant the current window ends.
func NextReset(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// Select returns the bucket an action counts toward for an identity.
func Select(id usage.Identity, action string) Bucket {
	if id.IsGuest() {
		return BucketGuestGlobal
	}
	if action == usage.ActionAIChat {
		return BucketUserAIChat
	}
	return BucketUserGeneral
}

// FilterFor builds the count filter for a bucket.
// Guests share one pool across every action; the two user pools are disjoint.
func FilterFor(id usage.Identity, b Bucket, since time.Time) usage.Filter {
	f := usage.Filter{
		Identity: id,
		Since:    since,
	}
	switch b {
	case BucketUserAIChat:
		f.Match = usage.MatchOnly
		f.Action = usage.ActionAIChat
	case BucketUserGeneral:
		f.Match = usage.MatchExcept
		f.Action = usage.ActionAIChat
	default:
		f.Match = usage.MatchAny
	}
	return f
}

// Check compares a count against the bucket's limit.
func Check(b Bucket, count int64, limits Limits) Decision {
	limit := limits.For(b)
	d := Decision{
		Allowed: count < limit,
		Count:   count,
		Limit:   limit,
		Bucket:  b,
		Reason:  ReasonOK,
	}
	if !d.Allowed {
		d.Reason = ReasonLimitExceeded
	}
	return d
}

// Unresolved is the fail-closed decision for a caller that cannot be attributed.
func Unresolved() Decision {
	return Decision{
		Allowed: false,
		Count:   0,
		Reason:  ReasonIdentityUnresolved,
	}
}

// StoreUnavailable is the fail-open decision used when counting fails.
func StoreUnavailable(b Bucket, limits Limits) Decision {
	return Decision{
		Allowed: true,
		Count:   0,
		Limit:   limits.For(b),
		Bucket:  b,
		Reason:  ReasonStoreUnavailable,
	}
}

// DeniedMessage returns the user-facing text for a denied decision.
func DeniedMessage(d Decision) string {
	if d.Reason == ReasonIdentityUnresolved {
		return "Unable to identify the caller for usage limits."
	}
	switch d.Bucket {
	case BucketGuestGlobal:
		return fmt.Sprintf("Guest limit reached (%d/%d). Sign in for more.", d.Limit, d.Limit)
	case BucketUserAIChat:
		return fmt.Sprintf("Daily AI limit reached (%d/%d).", d.Limit, d.Limit)
	default:
		return fmt.Sprintf("Daily limit reached (%d/%d).", d.Limit, d.Limit)
	}
}

// Remaining returns how many actions are left, never negative.
func Remaining(used, limit int64) int64 {
	if used >= limit {
		return 0
	}
	return limit - used
}
