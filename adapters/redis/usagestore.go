package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/artpar/documind/domain/usage"
	"github.com/artpar/documind/ports"
)

// UsageStore implements ports.UsageLog using Redis sorted sets.
type UsageStore struct {
	c *Client
}

// NewUsageStore creates a new Redis usage store.
func NewUsageStore(c *Client) *UsageStore {
	return &UsageStore{c: c}
}

// identityKey returns the key segment for an identity.
// Users and guests live in separate namespaces.
func identityKey(id usage.Identity) string {
	if id.UserID != "" {
		return "user:" + segment(id.UserID)
	}
	return "guest:" + segment(id.Address)
}

func (s *UsageStore) allKey(id usage.Identity) string {
	return s.c.prefix + ":usage:" + identityKey(id) + ":all"
}

func (s *UsageStore) actionKey(id usage.Identity, action string) string {
	return s.c.prefix + ":usage:" + identityKey(id) + ":action:" + action
}

func (s *UsageStore) eventKey(eventID string) string {
	return s.c.prefix + ":usage:event:" + eventID
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Count returns the number of events matching the filter.
func (s *UsageStore) Count(ctx context.Context, f usage.Filter) (int64, error) {
	lo := strconv.FormatInt(f.Since.UnixMilli(), 10)
	const hi = "+inf"

	switch f.Match {
	case usage.MatchOnly:
		n, err := s.c.rdb.ZCount(ctx, s.actionKey(f.Identity, f.Action), lo, hi).Result()
		if err != nil {
			return 0, fmt.Errorf("redis zcount: %w", err)
		}
		return n, nil

	case usage.MatchExcept:
		var all, only *redis.IntCmd
		_, err := s.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			all = pipe.ZCount(ctx, s.allKey(f.Identity), lo, hi)
			only = pipe.ZCount(ctx, s.actionKey(f.Identity, f.Action), lo, hi)
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("redis zcount: %w", err)
		}
		return all.Val() - only.Val(), nil

	default:
		n, err := s.c.rdb.ZCount(ctx, s.allKey(f.Identity), lo, hi).Result()
		if err != nil {
			return 0, fmt.Errorf("redis zcount: %w", err)
		}
		return n, nil
	}
}

// Append stores one event.
func (s *UsageStore) Append(ctx context.Context, e usage.Event) error {
	member := redis.Z{Score: score(e.OccurredAt), Member: e.ID}
	allKey := s.allKey(e.Identity)
	actionKey := s.actionKey(e.Identity, e.Action)
	eventKey := s.eventKey(e.ID)

	_, err := s.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, allKey, member)
		pipe.ZAdd(ctx, actionKey, member)
		pipe.HSet(ctx, eventKey,
			"user_id", e.Identity.UserID,
			"ip_address", e.Identity.Address,
			"action", e.Action,
			"details", string(e.Details),
			"created_at", e.OccurredAt.UTC().Format(time.RFC3339Nano),
		)
		if s.c.retention > 0 {
			pipe.Expire(ctx, allKey, s.c.retention)
			pipe.Expire(ctx, actionKey, s.c.retention)
			pipe.Expire(ctx, eventKey, s.c.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append usage event: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *UsageStore) Ping(ctx context.Context) error {
	return s.c.Ping(ctx)
}

// Ensure interface compliance.
var (
	_ ports.UsageLog = (*UsageStore)(nil)
	_ ports.Pinger   = (*UsageStore)(nil)
)
