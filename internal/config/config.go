// Package config provides environment configuration for the persona server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingRequired is wrapped by Load when required keys are unset.
var ErrMissingRequired = errors.New("missing required environment variable")

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	AllowedOrigins     []string

	// Provider credentials
	RetellAPIKey    string
	OpenAIAPIKey    string
	PineconeAPIKey  string
	AnthropicAPIKey string
	GeminiAPIKey    string

	// Voice websocket
	WSPath         string
	WSPingInterval time.Duration
	WSWriteTimeout time.Duration

	// Model settings
	ChatModel         string
	GuardrailProvider string
	GuardrailModel    string
	LLMDebug          bool
	MaxToolRounds     int
	ToolResultMaxChar int

	// Search settings
	EmbeddingProvider string
	EmbeddingModel    string
	VectorStore       string
	PineconeIndex     string
	SQLitePath        string
	SearchTopK        int

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Admin JWT
	AdminJWTSecret string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from a .env file, if present, and the
// environment. All missing required keys are reported together.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration without validating it.
func FromEnv() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		AllowedOrigins:     getListEnv("ALLOWED_ORIGINS", []string{"*"}),

		// Credentials
		RetellAPIKey:    getEnv("RETELL_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		PineconeAPIKey:  getEnv("PINECONE_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),

		// Voice websocket
		WSPath:         strings.Trim(getEnv("OBFUSCATED_WS_PATH", "ws-default"), "/"),
		WSPingInterval: getDurationEnv("WS_PING_INTERVAL", 20*time.Second),
		WSWriteTimeout: getDurationEnv("WS_WRITE_TIMEOUT", 5*time.Second),

		// Model
		ChatModel:         getEnv("CHAT_MODEL", "gpt-4o-mini"),
		GuardrailProvider: getEnv("GUARDRAIL_PROVIDER", "openai"),
		GuardrailModel:    getEnv("GUARDRAIL_MODEL", ""),
		LLMDebug:          getBoolEnv("LLM_DEBUG", false),
		MaxToolRounds:     getIntEnv("MAX_TOOL_ROUNDS", 3),
		ToolResultMaxChar: getIntEnv("TOOL_RESULT_MAX_CHARS", 0),

		// Search
		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "openai"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
		VectorStore:       getEnv("VECTOR_STORE", "pinecone"),
		PineconeIndex:     getEnv("PINECONE_INDEX", "portfolio"),
		SQLitePath:        getEnv("SQLITE_PATH", "portfolio.db"),
		SearchTopK:        getIntEnv("SEARCH_TOP_K", 3),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Admin
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate checks required credentials and provider selections.
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		key   string
		value string
	}{
		{"RETELL_API_KEY", c.RetellAPIKey},
		{"OPENAI_API_KEY", c.OpenAIAPIKey},
		{"PINECONE_API_KEY", c.PineconeAPIKey},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingRequired, r.key))
		}
	}

	if c.GuardrailProvider == "anthropic" && c.AnthropicAPIKey == "" {
		errs = append(errs, fmt.Errorf("%w: ANTHROPIC_API_KEY (GUARDRAIL_PROVIDER=anthropic)", ErrMissingRequired))
	}
	if c.EmbeddingProvider == "genai" && c.GeminiAPIKey == "" {
		errs = append(errs, fmt.Errorf("%w: GEMINI_API_KEY (EMBEDDING_PROVIDER=genai)", ErrMissingRequired))
	}
	switch c.VectorStore {
	case "pinecone", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported VECTOR_STORE %q", c.VectorStore))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
