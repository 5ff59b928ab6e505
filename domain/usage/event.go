// Package usage provides usage event types and the filters used to count them.
// All functions are pure - no side effects.
package usage

import (
	"encoding/json"
	"strings"
	"time"
)

// Action kinds recorded by the service.
// Any non-empty string is a valid action; only ActionAIChat is special.
const (
	ActionAIChat   = "ai-chat"
	ActionMerge    = "merge"
	ActionSplit    = "split"
	ActionCompress = "compress"
)

// Identity is the actor a quota is tracked against (value type).
// Exactly one of UserID or Address is set; the zero value is unresolved.
type Identity struct {
	UserID  string // authenticated user
	Address string // guest network address
}

// User returns an authenticated identity.
func User(userID string) Identity {
	return Identity{UserID: strings.TrimSpace(userID)}
}

// Guest returns an anonymous identity keyed by network address.
func Guest(address string) Identity {
	return Identity{Address: strings.TrimSpace(address)}
}

// IsGuest returns true if the identity is a guest.
func (i Identity) IsGuest() bool {
	return i.UserID == "" && i.Address != ""
}

// Resolved returns true if the identity can be attributed.
func (i Identity) Resolved() bool {
	return i.UserID != "" || i.Address != ""
}

// String returns a stable, loggable form ("user:<id>" or "guest:<addr>").
func (i Identity) String() string {
	switch {
	case i.UserID != "":
		return "user:" + i.UserID
	case i.Address != "":
		return "guest:" + i.Address
	default:
		return "unresolved"
	}
}

// Event represents one completed, quota-counted action (immutable value type).
type Event struct {
	ID         string
	Identity   Identity
	Action     string
	Details    json.RawMessage // opaque, never interpreted
	OccurredAt time.Time       // UTC
}

// NewEvent creates an event stamped at the given time (converted to UTC).
func NewEvent(id string, identity Identity, action string, details json.RawMessage, at time.Time) Event {
	return Event{
		ID:         id,
		Identity:   identity,
		Action:     action,
		Details:    details,
		OccurredAt: at.UTC(),
	}
}

// KindMatch selects how Filter.Action is applied.
type KindMatch int

const (
	MatchAny    KindMatch = iota // every action counts
	MatchOnly                    // only Filter.Action counts
	MatchExcept                  // everything except Filter.Action counts
)

// String returns the string representation of a kind match.
func (k KindMatch) String() string {
	switch k {
	case MatchAny:
		return "any"
	case MatchOnly:
		return "only"
	case MatchExcept:
		return "except"
	default:
		return "unknown"
	}
}

// Filter selects the events a count query matches (value type).
type Filter struct {
	Identity Identity
	Match    KindMatch
	Action   string
	Since    time.Time // inclusive lower bound
}

// Matches reports whether the event satisfies the filter.
// Guest filters never match user events, even with the same address.
func (f Filter) Matches(e Event) bool {
	if f.Identity.UserID != "" {
		if e.Identity.UserID != f.Identity.UserID {
			return false
		}
	} else {
		if e.Identity.UserID != "" || e.Identity.Address != f.Identity.Address {
			return false
		}
	}

	if e.OccurredAt.Before(f.Since) {
		return false
	}

	switch f.Match {
	case MatchOnly:
		return e.Action == f.Action
	case MatchExcept:
		return e.Action != f.Action
	default:
		return true
	}
}
