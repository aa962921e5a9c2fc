package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/lucid/engine"
	"github.com/JaimeStill/lucid/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "15m"
shutdown_timeout = "30s"

[database]
host = "localhost"
port = 5432
name = "lucid"
user = "lucid"
password = "lucid"
ssl_mode = "disable"
max_open_conns = 25
max_idle_conns = 5
conn_max_lifetime = "15m"
conn_timeout = "5s"

[storage]
container_name = "documents"
connection_string = "DefaultEndpointsProtocol=http;AccountName=lucidstore;AccountKey=key;BlobEndpoint=http://127.0.0.1:10000/lucidstore;"

[cache]
address = "localhost:6379"
db = 1

[model]
api_key = "test-key"
name = "gpt-4o-mini"
max_tokens = 2048
temperature = 0.3
call_timeout = "90s"

[engine]
workers = 8
job_timeout = "20m"
max_attempts = 4
initial_delay = "250ms"
backoff_factor = 1.5
max_delay = "10s"
unresolved_class = "fail"
progress_ttl = "2h"

[api]
base_path = "/api"

[api.cors]
enabled = false

[api.pagination]
default_page_size = 25
max_page_size = 50
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[engine]
workers = 2
`

// minimalConfig carries only the fields validation requires; everything
// else fills in from defaults.
const minimalConfig = `
[database]
name = "lucid"
user = "lucid"

[storage]
connection_string = "conn"

[model]
api_key = "test-key"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("db host: got %s, want localhost", cfg.Database.Host)
	}
	if cfg.Storage.ContainerName != "documents" {
		t.Errorf("storage container: got %s, want documents", cfg.Storage.ContainerName)
	}
	if cfg.Cache.Address != "localhost:6379" {
		t.Errorf("cache address: got %s, want localhost:6379", cfg.Cache.Address)
	}
	if cfg.Cache.DB != 1 {
		t.Errorf("cache db: got %d, want 1", cfg.Cache.DB)
	}
	if cfg.Model.Name != "gpt-4o-mini" {
		t.Errorf("model name: got %s, want gpt-4o-mini", cfg.Model.Name)
	}
	if cfg.Model.MaxTokens != 2048 {
		t.Errorf("model max_tokens: got %d, want 2048", cfg.Model.MaxTokens)
	}
	if cfg.Model.CallTimeoutDuration() != 90*time.Second {
		t.Errorf("model call_timeout: got %v, want 90s", cfg.Model.CallTimeoutDuration())
	}
	if cfg.Engine.Workers != 8 {
		t.Errorf("engine workers: got %d, want 8", cfg.Engine.Workers)
	}
	if cfg.API.Pagination.DefaultPageSize != 25 {
		t.Errorf("pagination default_page_size: got %d, want 25", cfg.API.Pagination.DefaultPageSize)
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	chdir(t, dir)

	t.Setenv("LUCID_ENV", "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port: got %d, want 5432 (from base)", cfg.Database.Port)
	}
	if cfg.Engine.Workers != 2 {
		t.Errorf("engine workers: got %d, want 2 (from overlay)", cfg.Engine.Workers)
	}
	if cfg.Engine.MaxAttempts != 4 {
		t.Errorf("engine max_attempts: got %d, want 4 (from base)", cfg.Engine.MaxAttempts)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	t.Setenv("LUCID_VERSION", "2.0.0")
	t.Setenv("LUCID_SERVER_PORT", "3000")
	t.Setenv("LUCID_MODEL_NAME", "gpt-4o")
	t.Setenv("LUCID_ENGINE_WORKERS", "16")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s, want 2.0.0", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port: got %d, want 3000", cfg.Server.Port)
	}
	if cfg.Model.Name != "gpt-4o" {
		t.Errorf("model name: got %s, want gpt-4o", cfg.Model.Name)
	}
	if cfg.Engine.Workers != 16 {
		t.Errorf("engine workers: got %d, want 16", cfg.Engine.Workers)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("LUCID_DB_NAME", "testdb")
	t.Setenv("LUCID_DB_USER", "testuser")
	t.Setenv("LUCID_STORAGE_CONNECTION_STRING", "conn")
	t.Setenv("LUCID_MODEL_API_KEY", "test-key")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load without config.toml failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("db name from env: got %s, want testdb", cfg.Database.Name)
	}
	if cfg.Cache.Address != "localhost:6379" {
		t.Errorf("cache address default: got %s, want localhost:6379", cfg.Cache.Address)
	}
	if cfg.Engine.Workers != 4 {
		t.Errorf("engine workers default: got %d, want 4", cfg.Engine.Workers)
	}
	if cfg.Engine.UnresolvedPolicy() != engine.UnresolvedFallback {
		t.Errorf("unresolved policy default: got %s, want fallback", cfg.Engine.UnresolvedPolicy())
	}
	if cfg.Model.MaxTokens != 4096 {
		t.Errorf("model max_tokens default: got %d, want 4096", cfg.Model.MaxTokens)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", "[server\nport = {")
	chdir(t, dir)

	_, err := config.Load()
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", `
[database]
name = "lucid"
user = "lucid"

[storage]
connection_string = "conn"
`)
	chdir(t, dir)

	_, err := config.Load()
	if err == nil {
		t.Fatal("expected error without model api_key")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error %q does not mention api_key", err.Error())
	}
}

func TestEnvDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Env() != "local" {
		t.Errorf("env: got %s, want local", cfg.Env())
	}
}

func TestShutdownTimeoutDuration(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if d := cfg.ShutdownTimeoutDuration(); d != 30*time.Second {
		t.Errorf("shutdown timeout: got %v, want 30s", d)
	}
}

func TestPaginationDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", minimalConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.API.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default_page_size: got %d, want 20", cfg.API.Pagination.DefaultPageSize)
	}
	if cfg.API.Pagination.MaxPageSize != 100 {
		t.Errorf("pagination max_page_size: got %d, want 100", cfg.API.Pagination.MaxPageSize)
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	policy := cfg.Engine.RetryPolicy()
	if policy.MaxAttempts != 4 {
		t.Errorf("max attempts: got %d, want 4", policy.MaxAttempts)
	}
	if policy.InitialDelay != 250*time.Millisecond {
		t.Errorf("initial delay: got %v, want 250ms", policy.InitialDelay)
	}
	if policy.Factor != 1.5 {
		t.Errorf("factor: got %v, want 1.5", policy.Factor)
	}
	if policy.MaxDelay != 10*time.Second {
		t.Errorf("max delay: got %v, want 10s", policy.MaxDelay)
	}
	if !policy.Jitter {
		t.Error("jitter should be enabled")
	}
}

func TestEngineValidation(t *testing.T) {
	tests := []struct {
		name    string
		section string
		wantErr string
	}{
		{
			name:    "invalid unresolved_class",
			section: "[engine]\nunresolved_class = \"retry\"",
			wantErr: "invalid unresolved_class",
		},
		{
			name:    "invalid job_timeout",
			section: "[engine]\njob_timeout = \"bad\"",
			wantErr: "invalid job_timeout",
		},
		{
			name:    "invalid backoff_factor",
			section: "[engine]\nbackoff_factor = 0.5",
			wantErr: "backoff_factor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.toml", minimalConfig+"\n"+tt.section)
			chdir(t, dir)

			_, err := config.Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestServerValidation(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", minimalConfig+"\n[server]\nport = 99999")
	chdir(t, dir)

	_, err := config.Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid port") {
		t.Errorf("error %q does not contain %q", err.Error(), "invalid port")
	}
}

func TestMaxUploadSizeBytes(t *testing.T) {
	tests := []struct {
		name string
		size string
		want int64
	}{
		{"valid 50MB", "50MB", 50 * 1024 * 1024},
		{"valid 1GB", "1GB", 1024 * 1024 * 1024},
		{"invalid falls back to 50MB", "bad", 50 * 1024 * 1024},
		{"empty falls back to 50MB", "", 50 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.APIConfig{MaxUploadSize: tt.size}
			got := cfg.MaxUploadSizeBytes()
			if got != tt.want {
				t.Errorf("MaxUploadSizeBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}
