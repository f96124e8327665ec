package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HeaderIdempotencyKey is the request header a client sets to make a create safe to resend.
const HeaderIdempotencyKey = "Idempotency-Key"

// IdempotencyStore remembers request keys for a while.
type IdempotencyStore interface {
	// Claim records key and reports whether it was already claimed.
	Claim(ctx context.Context, key string) (bool, error)
	// Release forgets key so the request can be sent again.
	Release(ctx context.Context, key string) error
}

type redisIdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (s *redisIdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	// false => already exists => duplicate
	return !ok, nil
}

func (s *redisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

type memoryIdempotencyStore struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
}

func newMemoryIdempotencyStore(ttl time.Duration) *memoryIdempotencyStore {
	return &memoryIdempotencyStore{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: time.Now().Add(ttl),
	}
}

func (s *memoryIdempotencyStore) Claim(_ context.Context, key string) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.seen[key]; ok && exp.After(now) {
		return true, nil
	}

	s.seen[key] = now.Add(s.ttl)
	if now.After(s.nextGC) {
		for k, exp := range s.seen {
			if exp.Before(now) {
				delete(s.seen, k)
			}
		}
		s.nextGC = now.Add(s.ttl)
	}
	return false, nil
}

func (s *memoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
	return nil
}

// NewIdempotencyStore keeps keys in Redis when a client is given, in memory otherwise.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) IdempotencyStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if client == nil {
		return newMemoryIdempotencyStore(ttl)
	}
	return &redisIdempotencyStore{
		client: client,
		prefix: "idem:scheduled-task:",
		ttl:    ttl,
	}
}

// Idempotency rejects a repeated Idempotency-Key with 409 while the first
// request's key is live. Keys of failed requests are released.
// Store errors let the request through.
func Idempotency(store IdempotencyStore, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(HeaderIdempotencyKey)
			if store == nil || key == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			duplicate, err := store.Claim(ctx, key)
			if err != nil {
				logger.Warn("Idempotency store unavailable", zap.Error(err))
				return next(c)
			}
			if duplicate {
				return c.JSON(http.StatusConflict, map[string]any{
					"error": "a request with this Idempotency-Key was already received",
				})
			}

			err = next(c)
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				if relErr := store.Release(context.WithoutCancel(ctx), key); relErr != nil {
					logger.Warn("Failed to release idempotency key", zap.Error(relErr))
				}
			}
			return err
		}
	}
}
