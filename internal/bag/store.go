package bag

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/redis"
)

// Store persists bags in the session store under a per-session key with a
// sliding TTL.
type Store struct {
	sessions redis.SessionStore
	ttl      time.Duration
}

func NewStore(sessions redis.SessionStore, ttl time.Duration) (*Store, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &Store{sessions: sessions, ttl: ttl}, nil
}

// Load returns the session's bag, or an empty bag when none is stored.
func (s *Store) Load(ctx context.Context, sessionID string) (*Bag, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session required")
	}
	key := s.sessions.SessionBagKey(sessionID)
	raw, err := s.sessions.Get(ctx, key)
	if redis.IsNil(err) {
		return New(), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bag")
	}

	b := New()
	if err := json.Unmarshal([]byte(raw), b); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode bag")
	}
	if err := s.sessions.Expire(ctx, key, s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh bag ttl")
	}
	return b, nil
}

// Save writes the bag. An empty bag deletes the key.
func (s *Store) Save(ctx context.Context, sessionID string, b *Bag) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session required")
	}
	if b == nil || b.IsEmpty() {
		return s.Clear(ctx, sessionID)
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode bag")
	}
	if err := s.sessions.Set(ctx, s.sessions.SessionBagKey(sessionID), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save bag")
	}
	return nil
}

// Clear destroys the session's bag.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.sessions.Del(ctx, s.sessions.SessionBagKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear bag")
	}
	return nil
}
