// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	// APIBaseURL is where console pages and the chat sidebar reach /api.
	// Empty means this process.
	APIBaseURL      string
	GRPCPort        string
	UserIdleTTL     time.Duration
	SweepInterval   time.Duration
	Agent           AgentConfig
	RateLimit       RateLimitConfig
	Retry           RetryConfig
	ConversationLog ConversationLogConfig
}

// AgentConfig controls the Fabric Intelligence responder.
type AgentConfig struct {
	OpenAIAPIKey  string
	Model         string
	MaxToolRounds int
	Timeout       time.Duration
}

// RateLimitConfig bounds chat requests per user.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// RetryConfig controls SQLITE_BUSY retries in background workers.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// AIEnabled reports whether an OpenAI key is configured.
func (c *Config) AIEnabled() bool {
	return c.Agent.OpenAIAPIKey != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:          getEnv("PORT", "5001"),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		DBPath:        getEnv("DB_PATH", "./data/fabric.db"),
		APIBaseURL:    strings.TrimRight(getEnv("API_BASE_URL", ""), "/"),
		GRPCPort:      getEnv("GRPC_PORT", ""),
		UserIdleTTL:   getEnvDuration("USER_IDLE_TTL", 24*time.Hour),
		SweepInterval: getEnvDuration("USER_SWEEP_INTERVAL", 5*time.Minute),
		Agent: AgentConfig{
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:         getEnv("FABRIC_AGENT_MODEL", "gpt-4o-mini"),
			MaxToolRounds: getEnvInt("AGENT_MAX_TOOL_ROUNDS", 5),
			Timeout:       getEnvDuration("AGENT_TIMEOUT", 60*time.Second),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvInt("DB_RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvDuration("DB_RETRY_BASE_DELAY", 100*time.Millisecond),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	if c.Agent.Model == "" {
		return errors.New("FABRIC_AGENT_MODEL cannot be empty")
	}
	if c.Agent.MaxToolRounds <= 0 {
		return errors.New("AGENT_MAX_TOOL_ROUNDS must be > 0")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return errors.New("DB_RETRY_MAX_ATTEMPTS must be > 0")
	}
	if c.UserIdleTTL <= 0 || c.SweepInterval <= 0 {
		return errors.New("USER_IDLE_TTL and USER_SWEEP_INTERVAL must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return errors.New("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return errors.New("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
