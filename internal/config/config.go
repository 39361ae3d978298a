// Package config centralizes how the render services read their settings: an
// optional YAML file first, then PRINTREADY_* environment variables on top.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents runtime configuration shared by the API, worker and CLI.
type Config struct {
	Address   string `yaml:"address"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	DatabaseURL string `yaml:"database_url"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// StorageBackend selects the blob store: "s3" (MinIO/S3), "gcs" or
	// "local" (a directory tree under LocalRoot).
	StorageBackend     string `yaml:"storage_backend"`
	S3Endpoint         string `yaml:"s3_endpoint"`
	S3AccessKey        string `yaml:"s3_access_key"`
	S3SecretKey        string `yaml:"s3_secret_key"`
	S3UseSSL           bool   `yaml:"s3_use_ssl"`
	S3Region           string `yaml:"s3_region"`
	GCSCredentialsFile string `yaml:"gcs_credentials_file"`
	LocalRoot          string `yaml:"local_root"`
	// OutputBucket receives artifacts when a payload names none.
	OutputBucket string `yaml:"output_bucket"`
	// DefaultSourceBucket resolves bare object paths found on design records.
	DefaultSourceBucket string `yaml:"default_source_bucket"`

	QueueName     string        `yaml:"queue_name"`
	Concurrency   int           `yaml:"concurrency"`
	DispatchRate  float64       `yaml:"dispatch_rate"`
	DispatchBurst int           `yaml:"dispatch_burst"`
	MaxAttempts   int           `yaml:"max_attempts"`
	MinBackoff    time.Duration `yaml:"min_backoff"`
	MaxBackoff    time.Duration `yaml:"max_backoff"`
	MaxDoublings  int           `yaml:"max_doublings"`
	// LeaseTTL > 0 enables the per-line-item lease.
	LeaseTTL time.Duration `yaml:"lease_ttl"`

	SigningSecret []byte        `yaml:"-"`
	SignedURLTTL  time.Duration `yaml:"signed_url_ttl"`
}

const (
	defaultAddress      = ":8080"
	defaultQueueName    = "renders"
	defaultConcurrency  = 10
	defaultDispatchRate = 5
	defaultMaxAttempts  = 5
	defaultMinBackoff   = 10 * time.Second
	defaultMaxBackoff   = 600 * time.Second
	defaultMaxDoublings = 3
	defaultSignedTTL    = 15 * time.Minute
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Address:        defaultAddress,
		LogLevel:       "info",
		LogFormat:      "json",
		RedisAddr:      "localhost:6379",
		StorageBackend: "s3",
		S3Endpoint:     "localhost:9000",
		S3Region:       "us-east-1",
		QueueName:      defaultQueueName,
		Concurrency:    defaultConcurrency,
		DispatchRate:   defaultDispatchRate,
		DispatchBurst:  1,
		MaxAttempts:    defaultMaxAttempts,
		MinBackoff:     defaultMinBackoff,
		MaxBackoff:     defaultMaxBackoff,
		MaxDoublings:   defaultMaxDoublings,
		SignedURLTTL:   defaultSignedTTL,
	}
}

// Load reads the optional YAML file named by PRINTREADY_CONFIG, then applies
// environment overrides and validates the result.
func Load() (*Config, error) {
	cfg := Default()
	if path := readEnv("PRINTREADY_CONFIG", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if cfg.SigningSecret == nil {
		cfg.SigningSecret = randomSecret()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: unmarshal %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Address = readEnv("PRINTREADY_ADDRESS", c.Address)
	c.LogLevel = readEnv("PRINTREADY_LOG_LEVEL", c.LogLevel)
	c.LogFormat = readEnv("PRINTREADY_LOG_FORMAT", c.LogFormat)
	c.DatabaseURL = readEnv("PRINTREADY_DATABASE_URL", c.DatabaseURL)
	c.RedisAddr = readEnv("PRINTREADY_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = readEnv("PRINTREADY_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = parseInt("PRINTREADY_REDIS_DB", c.RedisDB)
	c.StorageBackend = strings.ToLower(readEnv("PRINTREADY_STORAGE_BACKEND", c.StorageBackend))
	c.S3Endpoint = readEnv("PRINTREADY_S3_ENDPOINT", c.S3Endpoint)
	c.S3AccessKey = readEnv("PRINTREADY_S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = readEnv("PRINTREADY_S3_SECRET_KEY", c.S3SecretKey)
	c.S3UseSSL = parseBool("PRINTREADY_S3_USE_SSL", c.S3UseSSL)
	c.S3Region = readEnv("PRINTREADY_S3_REGION", c.S3Region)
	c.GCSCredentialsFile = readEnv("PRINTREADY_GCS_CREDENTIALS_FILE", c.GCSCredentialsFile)
	c.LocalRoot = readEnv("PRINTREADY_LOCAL_ROOT", c.LocalRoot)
	c.OutputBucket = readEnv("PRINTREADY_OUTPUT_BUCKET", c.OutputBucket)
	c.DefaultSourceBucket = readEnv("PRINTREADY_DEFAULT_SOURCE_BUCKET", c.DefaultSourceBucket)
	c.QueueName = readEnv("PRINTREADY_QUEUE", c.QueueName)
	c.Concurrency = parseInt("PRINTREADY_CONCURRENCY", c.Concurrency)
	c.DispatchRate = parseFloat("PRINTREADY_DISPATCH_RATE", c.DispatchRate)
	c.DispatchBurst = parseInt("PRINTREADY_DISPATCH_BURST", c.DispatchBurst)
	c.MaxAttempts = parseInt("PRINTREADY_MAX_ATTEMPTS", c.MaxAttempts)
	c.MinBackoff = parseDuration("PRINTREADY_MIN_BACKOFF", c.MinBackoff)
	c.MaxBackoff = parseDuration("PRINTREADY_MAX_BACKOFF", c.MaxBackoff)
	c.MaxDoublings = parseInt("PRINTREADY_MAX_DOUBLINGS", c.MaxDoublings)
	c.LeaseTTL = parseDuration("PRINTREADY_LEASE_TTL", c.LeaseTTL)
	c.SignedURLTTL = parseDuration("PRINTREADY_SIGNED_TTL", c.SignedURLTTL)
	if v, ok := os.LookupEnv("PRINTREADY_SIGNING_SECRET"); ok && v != "" {
		c.SigningSecret = []byte(v)
	}
}

// Validate rejects settings the queue or storage layers cannot honour.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case "s3", "gcs":
	case "local":
		if c.LocalRoot == "" {
			errs = append(errs, errors.New("local storage backend needs a local root"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage backend %q must be s3, gcs or local", c.StorageBackend))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}
	if c.DispatchRate <= 0 {
		errs = append(errs, errors.New("dispatch rate must be positive"))
	}
	if c.DispatchBurst <= 0 {
		errs = append(errs, errors.New("dispatch burst must be positive"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	if c.MinBackoff <= 0 || c.MaxBackoff < c.MinBackoff {
		errs = append(errs, fmt.Errorf("backoff window %s..%s is invalid", c.MinBackoff, c.MaxBackoff))
	}
	if c.MaxDoublings < 0 {
		errs = append(errs, errors.New("max doublings must not be negative"))
	}
	if c.LeaseTTL < 0 {
		errs = append(errs, errors.New("lease ttl must not be negative"))
	}
	if c.SignedURLTTL <= 0 {
		errs = append(errs, errors.New("signed url ttl must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte("printready-fallback-secret")
	}
	return buf
}
