package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PRINTREADY_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxAttempts != 5 || cfg.MinBackoff != 10*time.Second || cfg.MaxBackoff != 600*time.Second || cfg.MaxDoublings != 3 {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
	if cfg.QueueName != "renders" {
		t.Fatalf("unexpected queue name %q", cfg.QueueName)
	}
	if len(cfg.SigningSecret) == 0 {
		t.Fatal("expected generated signing secret")
	}
	if cfg.LeaseTTL != 0 {
		t.Fatalf("lease should be disabled by default, got %s", cfg.LeaseTTL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "printready.yaml")
	body := `
storage_backend: gcs
output_bucket: prints-prod
concurrency: 4
min_backoff: 5s
max_backoff: 2m
lease_ttl: 15m
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRINTREADY_CONFIG", path)
	t.Setenv("PRINTREADY_CONCURRENCY", "12")
	t.Setenv("PRINTREADY_SIGNING_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageBackend != "gcs" || cfg.OutputBucket != "prints-prod" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Concurrency != 12 {
		t.Fatalf("env should override file, got %d", cfg.Concurrency)
	}
	if cfg.MinBackoff != 5*time.Second || cfg.MaxBackoff != 2*time.Minute || cfg.LeaseTTL != 15*time.Minute {
		t.Fatalf("durations not parsed: %+v", cfg)
	}
	if string(cfg.SigningSecret) != "s3cret" {
		t.Fatalf("unexpected secret %q", cfg.SigningSecret)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"backend", func(c *Config) { c.StorageBackend = "ftp" }, "storage backend"},
		{"attempts", func(c *Config) { c.MaxAttempts = 0 }, "max attempts"},
		{"backoff", func(c *Config) { c.MaxBackoff = time.Second }, "backoff window"},
		{"rate", func(c *Config) { c.DispatchRate = 0 }, "dispatch rate"},
		{"local root", func(c *Config) { c.StorageBackend = "local" }, "local root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestMissingFile(t *testing.T) {
	t.Setenv("PRINTREADY_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
