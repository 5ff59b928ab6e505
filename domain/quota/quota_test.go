// Package quota provides pure functions for daily usage quota enforcement.
// Tests for all public functions and types.
package quota

import (
	"testing"
	"time"

	"github.com/artpar/documind/domain/usage"
)

// -----------------------------------------------------------------------------
// StartOfDay tests
// -----------------------------------------------------------------------------

func TestStartOfDay(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "midday UTC",
			in:   time.Date(2024, 6, 15, 12, 30, 45, 100, time.UTC),
			want: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly midnight",
			in:   time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "one nanosecond before midnight",
			in:   time.Date(2024, 6, 15, 23, 59, 59, 999999999, time.UTC),
			want: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-UTC input uses the UTC date",
			in:   time.Date(2024, 6, 16, 2, 0, 0, 0, time.FixedZone("UTC+5", 5*3600)),
			want: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "new year rollover",
			in:   time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC),
			want: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartOfDay(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("StartOfDay(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("StartOfDay location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestNextReset(t *testing.T) {
	now := time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC)
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if got := NextReset(now); !got.Equal(want) {
		t.Errorf("NextReset() = %v, want %v", got, want)
	}
}

// -----------------------------------------------------------------------------
// Bucket selection tests
// -----------------------------------------------------------------------------

func TestSelect(t *testing.T) {
	tests := []struct {
		name   string
		id     usage.Identity
		action string
		want   Bucket
	}{
		{"guest merge", usage.Guest("1.2.3.4"), usage.ActionMerge, BucketGuestGlobal},
		{"guest ai-chat", usage.Guest("1.2.3.4"), usage.ActionAIChat, BucketGuestGlobal},
		{"user ai-chat", usage.User("u1"), usage.ActionAIChat, BucketUserAIChat},
		{"user merge", usage.User("u1"), usage.ActionMerge, BucketUserGeneral},
		{"user unknown action", usage.User("u1"), "ocr", BucketUserGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(tt.id, tt.action); got != tt.want {
				t.Errorf("Select() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFilterFor(t *testing.T) {
	since := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		id         usage.Identity
		bucket     Bucket
		wantMatch  usage.KindMatch
		wantAction string
	}{
		{"guest global counts everything", usage.Guest("1.2.3.4"), BucketGuestGlobal, usage.MatchAny, ""},
		{"user ai counts only ai-chat", usage.User("u1"), BucketUserAIChat, usage.MatchOnly, usage.ActionAIChat},
		{"user general excludes ai-chat", usage.User("u1"), BucketUserGeneral, usage.MatchExcept, usage.ActionAIChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FilterFor(tt.id, tt.bucket, since)
			if f.Match != tt.wantMatch {
				t.Errorf("Match = %s, want %s", f.Match, tt.wantMatch)
			}
			if f.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", f.Action, tt.wantAction)
			}
			if f.Identity != tt.id {
				t.Errorf("Identity = %v, want %v", f.Identity, tt.id)
			}
			if !f.Since.Equal(since) {
				t.Errorf("Since = %v, want %v", f.Since, since)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Check function tests
// -----------------------------------------------------------------------------

func TestCheck_BelowAndAtLimit(t *testing.T) {
	limits := DefaultLimits()

	tests := []struct {
		name        string
		bucket      Bucket
		count       int64
		wantAllowed bool
		wantLimit   int64
	}{
		{"guest fresh", BucketGuestGlobal, 0, true, 1},
		{"guest used", BucketGuestGlobal, 1, false, 1},
		{"user general under", BucketUserGeneral, 4, true, 5},
		{"user general at limit", BucketUserGeneral, 5, false, 5},
		{"user general over limit", BucketUserGeneral, 7, false, 5},
		{"user ai under", BucketUserAIChat, 2, true, 3},
		{"user ai at limit", BucketUserAIChat, 3, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Check(tt.bucket, tt.count, limits)
			if d.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tt.wantAllowed)
			}
			if d.Count != tt.count {
				t.Errorf("Count = %d, want %d", d.Count, tt.count)
			}
			if d.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", d.Limit, tt.wantLimit)
			}
			if d.Bucket != tt.bucket {
				t.Errorf("Bucket = %s, want %s", d.Bucket, tt.bucket)
			}
			wantReason := ReasonOK
			if !tt.wantAllowed {
				wantReason = ReasonLimitExceeded
			}
			if d.Reason != wantReason {
				t.Errorf("Reason = %s, want %s", d.Reason, wantReason)
			}
		})
	}
}

func TestCheck_ZeroLimitDeniesEverything(t *testing.T) {
	d := Check(BucketUserAIChat, 0, Limits{UserAIChat: 0})
	if d.Allowed {
		t.Error("expected zero limit to deny")
	}
}

func TestUnresolved(t *testing.T) {
	d := Unresolved()
	if d.Allowed {
		t.Error("unresolved identity must fail closed")
	}
	if d.Count != 0 {
		t.Errorf("Count = %d, want 0", d.Count)
	}
	if d.Reason != ReasonIdentityUnresolved {
		t.Errorf("Reason = %s, want %s", d.Reason, ReasonIdentityUnresolved)
	}
}

func TestStoreUnavailable_FailsOpen(t *testing.T) {
	d := StoreUnavailable(BucketUserGeneral, DefaultLimits())
	if !d.Allowed {
		t.Error("store failure must fail open")
	}
	if d.Count != 0 {
		t.Errorf("Count = %d, want 0", d.Count)
	}
	if d.Limit != 5 {
		t.Errorf("Limit = %d, want 5", d.Limit)
	}
}

// -----------------------------------------------------------------------------
// Message and helper tests
// -----------------------------------------------------------------------------

func TestDeniedMessage(t *testing.T) {
	limits := DefaultLimits()

	tests := []struct {
		name string
		d    Decision
		want string
	}{
		{"user general", Check(BucketUserGeneral, 5, limits), "Daily limit reached (5/5)."},
		{"user ai", Check(BucketUserAIChat, 3, limits), "Daily AI limit reached (3/3)."},
		{"guest", Check(BucketGuestGlobal, 1, limits), "Guest limit reached (1/1). Sign in for more."},
		{"custom limit", Check(BucketUserGeneral, 10, Limits{UserGeneral: 10}), "Daily limit reached (10/10)."},
		{"unresolved", Unresolved(), "Unable to identify the caller for usage limits."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeniedMessage(tt.d); got != tt.want {
				t.Errorf("DeniedMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLimits_For(t *testing.T) {
	l := Limits{Guest: 2, UserGeneral: 7, UserAIChat: 4}

	if got := l.For(BucketGuestGlobal); got != 2 {
		t.Errorf("For(guest) = %d, want 2", got)
	}
	if got := l.For(BucketUserGeneral); got != 7 {
		t.Errorf("For(general) = %d, want 7", got)
	}
	if got := l.For(BucketUserAIChat); got != 4 {
		t.Errorf("For(ai) = %d, want 4", got)
	}
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		used, limit, want int64
	}{
		{0, 5, 5},
		{3, 5, 2},
		{5, 5, 0},
		{9, 5, 0},
	}

	for _, tt := range tests {
		if got := Remaining(tt.used, tt.limit); got != tt.want {
			t.Errorf("Remaining(%d, %d) = %d, want %d", tt.used, tt.limit, got, tt.want)
		}
	}
}
