// Package locks provides short-lived mutual exclusion keyed by string, backed
// by Redis when several instances share work and by process memory otherwise.
package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// ErrNotHeld is returned by Unlock when the token does not own the lock.
var ErrNotHeld = errors.New("locks: lock not held by this token")

// Locker acquires and releases named locks. TryLock never blocks: it reports
// ok=false when someone else holds the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Compare-and-delete so an expired holder never releases a newer owner's lock.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	logger *logging.Logger
}

// NewRedisLocker creates a Redis-backed locker. Keys are namespaced by prefix.
func NewRedisLocker(client redis.UniversalClient, prefix string, logger *logging.Logger) *RedisLocker {
	if client == nil {
		panic("locks: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLocker{client: client, prefix: prefix, logger: logger}
}

func (l *RedisLocker) key(k string) string {
	return l.prefix + k
}

// TryLock attempts to take key for ttl.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("locks: setnx %s: %w", key, err)
	}
	if !ok {
		l.logger.Debug("lock busy", "key", key)
		return "", false, nil
	}
	return token, true, nil
}

// Unlock releases key if token still owns it.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	n, err := unlockScript.Run(ctx, l.client, []string{l.key(key)}, token).Int64()
	if err != nil {
		return fmt.Errorf("locks: unlock %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// LocalLocker is an in-process Locker for single-instance deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localEntry
	clock func() time.Time
}

type localEntry struct {
	token   string
	expires time.Time
}

// NewLocalLocker creates an in-memory locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localEntry), clock: time.Now}
}

// TryLock takes key unless a live entry exists.
func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

// Unlock releases key if token still owns it.
func (l *LocalLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.held[key]
	if !ok || e.token != token || !l.clock().Before(e.expires) {
		return ErrNotHeld
	}
	delete(l.held, key)
	return nil
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*LocalLocker)(nil)
)
