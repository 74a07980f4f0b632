package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/little-explorers/storefront/pkg/redis"
)

var errEventID = errors.New("stripe event id is empty")

// IdempotencyGuard marks Stripe event ids in Redis for a bounded window.
// A marked id means the event was already applied.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis store is required")
	case ttl <= 0:
		return nil, fmt.Errorf("webhook idempotency ttl must be positive, got %s", ttl)
	case scope == "":
		return nil, errors.New("idempotency scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

func (g *IdempotencyGuard) key(eventID string) (string, error) {
	if eventID == "" {
		return "", errEventID
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}

// CheckAndMark returns true when eventID had been seen before.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	fresh, err := g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark stripe event %s: %w", eventID, err)
	}
	return !fresh, nil
}

// Delete forgets eventID, letting a redelivery run the handlers again.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}
