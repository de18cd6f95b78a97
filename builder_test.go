package goAuthClient

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goAuthClient/store"
)

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.BaseURL = ""
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBuilderBuildsOnce(t *testing.T) {
	b := New()
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderSchedulerFollowsConfig(t *testing.T) {
	e, err := New().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	if e.scheduler == nil {
		t.Fatal("default config enables the refresh scheduler")
	}

	cfg := DefaultConfig()
	cfg.Refresh.Enabled = false
	e2, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e2.Close()
	if e2.scheduler != nil {
		t.Fatal("disabled refresh must not create a scheduler")
	}
}

func TestBuilderRedisStorage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cfg := DefaultConfig()
	cfg.Storage.Backend = StorageRedis
	cfg.Storage.RedisURL = "redis://" + mr.Addr()
	cfg.Storage.Origin = "app"

	e, err := New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()

	e.Store().SetToken("abc")
	got, err := client.Get(context.Background(), "authclient:app:auth-token").Result()
	if err != nil || got != "abc" {
		t.Fatalf("expected token in redis, got %q (%v)", got, err)
	}
}

func TestBuilderRedisStorageDialsURL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cfg := DefaultConfig()
	cfg.Storage.Backend = StorageRedis
	cfg.Storage.RedisURL = "redis://" + mr.Addr()

	e, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	e.Store().SetRefreshToken("r1")
	if v, ok := e.Store().RefreshToken(); !ok || v != "r1" {
		t.Fatal("expected refresh token round-trip through redis")
	}
}

func TestBuilderSQLiteStorageSurvivesRebuild(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = StorageSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "creds.db")

	e, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	e.Store().SetToken("persisted")
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	e2, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer e2.Close()
	if v, ok := e2.Store().Token(); !ok || v != "persisted" {
		t.Fatalf("expected token after rebuild, got %q", v)
	}
}

func TestBuilderCustomBackendWins(t *testing.T) {
	backend := store.NewMemoryBackend()
	cfg := DefaultConfig()
	cfg.Storage.Backend = StorageSQLite
	cfg.Storage.SQLitePath = "/nonexistent/dir/creds.db"

	e, err := New().WithConfig(cfg).WithBackend(backend).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	e.Store().SetToken("x")
	if backend.Len() != 1 {
		t.Fatal("expected custom backend to receive writes")
	}
}
