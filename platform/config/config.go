// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides access-token validation settings for middleware.
// Token issuance and session handling live in the external identity service;
// this backend only verifies tokens to learn who is acting.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides settings for the payment stats cache.
type RedisConfig interface {
	GetRedisURL() string
	GetStatsCacheTTL() time.Duration
	IsRedisEnabled() bool
}

// MinIOConfig provides settings for MinIO S3-compatible proof image storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetProofImagesBucket() string
	IsMinIOEnabled() bool
}

// KafkaConfig provides settings for the optional lifecycle event stream.
type KafkaConfig interface {
	GetKafkaBrokers() []string
	GetKafkaTopic() string
	IsKafkaEnabled() bool
}

// CompensationConfig provides the global default commission and bonus rates.
type CompensationConfig interface {
	GetDefaultCommissionRate() float64
	GetDefaultBonusRate() float64
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RedisURL              string
	StatsCacheTTL         time.Duration
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinIOMaxFileSize      int64
	ProofImagesBucket     string
	KafkaBrokers          []string
	KafkaTopic            string
	DefaultCommissionRate float64
	DefaultBonusRate      float64
}

// compensationDefaultsFile is the YAML shape of the optional defaults file.
type compensationDefaultsFile struct {
	CommissionRate *float64 `yaml:"commissionRate"`
	BonusRate      *float64 `yaml:"bonusRate"`
}

// Load reads configuration from the environment (and an optional .env file).
// Compensation defaults may come from a YAML file referenced by
// COMPENSATION_DEFAULTS_FILE; explicit env vars take precedence over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	commissionRate := 10.0
	bonusRate := 5.0
	if file := getEnv("COMPENSATION_DEFAULTS_FILE", ""); file != "" {
		fileDefaults, err := loadCompensationDefaults(file)
		if err != nil {
			return nil, err
		}
		if fileDefaults.CommissionRate != nil {
			commissionRate = *fileDefaults.CommissionRate
		}
		if fileDefaults.BonusRate != nil {
			bonusRate = *fileDefaults.BonusRate
		}
	}
	commissionRate = getEnvFloat("DEFAULT_COMMISSION_RATE", commissionRate)
	bonusRate = getEnvFloat("DEFAULT_BONUS_RATE", bonusRate)

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:              getEnv("REDIS_URL", ""),
		StatsCacheTTL:         mustDuration(getEnv("STATS_CACHE_TTL", "30s")),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:      getEnvInt64("MINIO_MAX_FILE_SIZE", 10*1024*1024),
		ProofImagesBucket:     getEnv("MINIO_BUCKET_PAYMENT_PROOFS", "payment-proofs"),
		KafkaBrokers:          splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "fieldops.workorders"),
		DefaultCommissionRate: commissionRate,
		DefaultBonusRate:      bonusRate,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.DefaultCommissionRate < 0 || cfg.DefaultCommissionRate > 100 {
		return nil, fmt.Errorf("DEFAULT_COMMISSION_RATE must be between 0 and 100")
	}
	if cfg.DefaultBonusRate < 0 || cfg.DefaultBonusRate > 100 {
		return nil, fmt.Errorf("DEFAULT_BONUS_RATE must be between 0 and 100")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func loadCompensationDefaults(path string) (compensationDefaultsFile, error) {
	var defaults compensationDefaultsFile
	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("read compensation defaults file: %w", err)
	}
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return defaults, fmt.Errorf("parse compensation defaults file: %w", err)
	}
	return defaults, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string             { return c.RedisURL }
func (c *Config) GetStatsCacheTTL() time.Duration { return c.StatsCacheTTL }
func (c *Config) IsRedisEnabled() bool            { return c.RedisURL != "" }

func (c *Config) GetMinIOEndpoint() string     { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string    { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string    { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool         { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64   { return c.MinIOMaxFileSize }
func (c *Config) GetProofImagesBucket() string { return c.ProofImagesBucket }
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func (c *Config) GetKafkaBrokers() []string { return c.KafkaBrokers }
func (c *Config) GetKafkaTopic() string     { return c.KafkaTopic }
func (c *Config) IsKafkaEnabled() bool      { return len(c.KafkaBrokers) > 0 }

func (c *Config) GetDefaultCommissionRate() float64 { return c.DefaultCommissionRate }
func (c *Config) GetDefaultBonusRate() float64      { return c.DefaultBonusRate }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
