package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/config"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/overlay"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/repository"
)

// Stores holds the storage backends chosen by configuration.
type Stores struct {
	Overlay overlay.Store
	// Redis is nil unless a server answered the ping.
	Redis   *redis.Client
	closers []func() error
}

// Close releases every opened connection.
func (s *Stores) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewRedisClient connects to Redis and pings it. It returns nil when the
// server cannot be reached so callers fall back to in-memory state.
func NewRedisClient(cfg *config.RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Pass,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, using in-memory fallback", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

// OpenStores builds the overlay store for cfg.Store.Driver. SQL drivers are
// migrated on open. The redis driver requires a reachable server.
func OpenStores(cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	s := &Stores{}
	s.Redis = NewRedisClient(&cfg.Redis, logger)
	if s.Redis != nil {
		s.closers = append(s.closers, s.Redis.Close)
	}

	switch cfg.Store.Driver {
	case config.DriverMySQL, config.DriverSQLite:
		db, err := config.NewDatabase(cfg.Store.Driver, &cfg.Database, logger)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		s.closers = append(s.closers, sqlDB.Close)
		if err := Migrate(db); err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Overlay = repository.NewOverlayRepository(db)
	case config.DriverRedis:
		if s.Redis == nil {
			return nil, fmt.Errorf("STORE_DRIVER=redis but %s is unreachable", cfg.Redis.Addr)
		}
		s.Overlay = overlay.NewRedisStore(s.Redis)
	case config.DriverMemory:
		s.Overlay = overlay.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	logger.Info("Overlay store ready", zap.String("driver", cfg.Store.Driver))
	return s, nil
}
