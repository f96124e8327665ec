package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/config"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/overlay"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/repository"
)

func TestOpenStoresSQLite(t *testing.T) {
	cfg := &config.Config{
		Store:    config.StoreConfig{Driver: config.DriverSQLite},
		Database: config.DatabaseConfig{SQLitePath: filepath.Join(t.TempDir(), "overlays.db")},
	}

	stores, err := OpenStores(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenStores() error: %v", err)
	}
	defer stores.Close()

	if _, ok := stores.Overlay.(*repository.OverlayRepository); !ok {
		t.Fatalf("expected SQL repository, got %T", stores.Overlay)
	}
	if stores.Redis != nil {
		t.Errorf("no redis address configured, client should be nil")
	}

	steps := 3
	if err := stores.Overlay.Upsert(context.Background(), "st_1", overlay.Fields{MaxAgentSteps: &steps}); err != nil {
		t.Fatalf("table should be migrated: %v", err)
	}
}

func TestOpenStoresMemoryAndRedisRequirement(t *testing.T) {
	stores, err := OpenStores(&config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenStores() error: %v", err)
	}
	if _, ok := stores.Overlay.(*overlay.MemoryStore); !ok {
		t.Errorf("expected memory store, got %T", stores.Overlay)
	}

	_, err = OpenStores(&config.Config{Store: config.StoreConfig{Driver: config.DriverRedis}}, zap.NewNop())
	if err == nil {
		t.Errorf("redis driver without a reachable server should fail")
	}
}
