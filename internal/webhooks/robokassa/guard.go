package robokassawebhook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/energypractice/enrollment-backend/pkg/redis"
)

const guardScope = "robokassa-result"

// CallbackGuard holds a short Redis claim per payment reference so that
// overlapping deliveries of one Result notification are processed once.
// Claims expire on their own; Release drops one early when a retry should
// be allowed to run (store failures, references not yet known).
type CallbackGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

func NewCallbackGuard(store redis.IdempotencyStore, ttl time.Duration) (*CallbackGuard, error) {
	if store == nil {
		return nil, errors.New("callback guard store is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("callback guard ttl must be positive, got %s", ttl)
	}
	return &CallbackGuard{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim reports whether this delivery owns the reference. false means
// another delivery claimed it within the ttl.
func (g *CallbackGuard) Claim(ctx context.Context, invID int64) (bool, error) {
	if invID <= 0 {
		return false, fmt.Errorf("payment reference must be positive, got %d", invID)
	}
	claimed, err := g.store.SetNX(ctx, g.key(invID), g.now().UTC().Format(time.RFC3339Nano), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim payment reference %d: %w", invID, err)
	}
	return claimed, nil
}

func (g *CallbackGuard) Release(ctx context.Context, invID int64) error {
	if err := g.store.Del(ctx, g.key(invID)); err != nil {
		return fmt.Errorf("release payment reference %d: %w", invID, err)
	}
	return nil
}

func (g *CallbackGuard) key(invID int64) string {
	return g.store.IdempotencyKey(guardScope, strconv.FormatInt(invID, 10))
}
