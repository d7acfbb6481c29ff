package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const defaultLockTTL = 25 * time.Hour

// Lock coordinates exclusive cron runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type tokenLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// RedisLock holds a single redis lock key; only the token that took the lock
// can release it.
type RedisLock struct {
	client tokenLocker
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

func NewRedisLock(client tokenLocker, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token, ok, err := l.client.AcquireLock(ctx, l.key, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return false, nil
	}
	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return nil
	}
	if err := l.client.ReleaseLock(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
