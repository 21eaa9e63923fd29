package config

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/RishiKendai/cheatcheck/internal/configs/env"
)

// Config holds all configuration for the application
type Config struct {
	// Comparison engine
	Threshold          float64
	ThresholdSet       bool
	Workers            int
	ChunksPerWorker    int
	FailFast           bool
	Timeout            time.Duration
	Algorithm          string
	CaseFold           bool
	CollapseWhitespace bool

	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentCompute int
	MaxDocuments         int

	// Logging
	LogLevel string

	// Server
	ServerPort  string
	MetricsPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Comparison engine; the threshold has no default
	cfg.Threshold, cfg.ThresholdSet = env.LookupFloat("CHEATCHECK_THRESHOLD")
	cfg.Workers = env.GetEnvInt("CHEATCHECK_WORKERS", 0)
	cfg.ChunksPerWorker = env.GetEnvInt("CHEATCHECK_CHUNKS_PER_WORKER", 4)
	cfg.FailFast = env.GetEnvBool("CHEATCHECK_FAIL_FAST", false)
	timeoutSeconds := env.GetEnvInt("CHEATCHECK_TIMEOUT_SECONDS", 0)
	cfg.Timeout = time.Duration(timeoutSeconds) * time.Second
	cfg.Algorithm = env.GetEnv("CHEATCHECK_ALGORITHM", "levenshtein")
	cfg.CaseFold = env.GetEnvBool("CHEATCHECK_CASE_FOLD", false)
	cfg.CollapseWhitespace = env.GetEnvBool("CHEATCHECK_COLLAPSE_WHITESPACE", false)

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "cheatcheck:submissions")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "cheatcheck:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "cheatcheck:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_DURATION", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "cheatcheck")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentCompute = env.GetEnvInt("MAX_CONCURRENT_COMPUTE", 2)
	cfg.MaxDocuments = env.GetEnvInt("MAX_DOCUMENTS", 2000)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", "2112")

	return cfg, nil
}

// EffectiveWorkers resolves the configured worker count, 0 meaning one per CPU.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Validate checks everything a CLI run needs, threshold included.
func (c *Config) Validate() error {
	if err := c.ValidateThreshold(); err != nil {
		return err
	}
	return c.ValidateEngine()
}

// ValidateThreshold requires CHEATCHECK_THRESHOLD to be set and within [0,1].
func (c *Config) ValidateThreshold() error {
	if !c.ThresholdSet {
		return fmt.Errorf("CHEATCHECK_THRESHOLD is required")
	}
	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("CHEATCHECK_THRESHOLD must be between 0 and 1, got %v", c.Threshold)
	}
	return nil
}

// ValidateEngine checks the worker, chunking, timeout and algorithm settings.
// The server takes its threshold from each request, so this is its engine check.
func (c *Config) ValidateEngine() error {
	if c.Workers < 0 {
		return fmt.Errorf("CHEATCHECK_WORKERS must not be negative")
	}
	if c.ChunksPerWorker <= 0 {
		return fmt.Errorf("CHEATCHECK_CHUNKS_PER_WORKER must be greater than 0")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("CHEATCHECK_TIMEOUT_SECONDS must not be negative")
	}
	switch c.Algorithm {
	case "levenshtein", "damerau-levenshtein":
	default:
		return fmt.Errorf("CHEATCHECK_ALGORITHM must be levenshtein or damerau-levenshtein, got %q", c.Algorithm)
	}
	return nil
}

// ValidateServer checks everything the HTTP service and its backing stores need.
func (c *Config) ValidateServer() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxConcurrentCompute <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_COMPUTE must be greater than 0")
	}
	if c.MaxDocuments < 2 {
		return fmt.Errorf("MAX_DOCUMENTS must be at least 2")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be greater than 0")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_DURATION must be greater than 0")
	}
	return nil
}
