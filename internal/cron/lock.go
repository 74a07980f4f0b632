package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/little-explorers/storefront/pkg/redis"
)

const defaultLockTTL = 30 * time.Minute

// Lock guards a maintenance cycle across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SETNX lock keyed per deployment. Its value is a random
// token naming the holder, and the TTL frees it if a worker dies mid-cycle.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("maintenance lock needs a redis store")
	case key == "":
		return nil, errors.New("maintenance lock key is empty")
	case ttl <= 0:
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

// Acquire reports false without error when another worker holds the key.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("take %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release deletes the key only while it still carries this holder's token.
// An expired or foreign lock is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	token := l.token
	l.token = ""
	if token == "" {
		return nil
	}
	holder, err := l.store.Get(ctx, l.key)
	switch {
	case redis.IsNil(err):
		return nil
	case err != nil:
		return fmt.Errorf("read %s holder: %w", l.key, err)
	case holder != token:
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("free %s: %w", l.key, err)
	}
	return nil
}
