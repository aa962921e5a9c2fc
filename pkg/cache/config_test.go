package cache_test

import (
	"strings"
	"testing"

	"github.com/JaimeStill/lucid/pkg/cache"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := cache.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Address != "localhost:6379" {
		t.Errorf("address: got %s, want localhost:6379", cfg.Address)
	}
	if cfg.Password != "" {
		t.Errorf("password: got %s, want empty", cfg.Password)
	}
	if cfg.DB != 0 {
		t.Errorf("db: got %d, want 0", cfg.DB)
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_CACHE_ADDRESS", "redis.internal:6380")
	t.Setenv("TEST_CACHE_PASSWORD", "secret")
	t.Setenv("TEST_CACHE_DB", "3")

	env := &cache.Env{
		Address:  "TEST_CACHE_ADDRESS",
		Password: "TEST_CACHE_PASSWORD",
		DB:       "TEST_CACHE_DB",
	}

	cfg := cache.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Address != "redis.internal:6380" {
		t.Errorf("address: got %s, want redis.internal:6380", cfg.Address)
	}
	if cfg.Password != "secret" {
		t.Errorf("password: got %s, want secret", cfg.Password)
	}
	if cfg.DB != 3 {
		t.Errorf("db: got %d, want 3", cfg.DB)
	}
}

func TestFinalizeInvalidDB(t *testing.T) {
	cfg := cache.Config{DB: -1}
	err := cfg.Finalize(nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "db") {
		t.Errorf("error %q does not mention db", err.Error())
	}
}

func TestMerge(t *testing.T) {
	base := cache.Config{Address: "localhost:6379", DB: 1}
	base.Merge(&cache.Config{Address: "redis.internal:6380", Password: "secret"})

	if base.Address != "redis.internal:6380" {
		t.Errorf("address: got %s, want redis.internal:6380", base.Address)
	}
	if base.Password != "secret" {
		t.Errorf("password: got %s, want secret", base.Password)
	}
	if base.DB != 1 {
		t.Errorf("db: got %d, want 1 (zero overlay preserved)", base.DB)
	}
}
