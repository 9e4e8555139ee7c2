package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("RETELL_API_KEY", "retell")
	t.Setenv("OPENAI_API_KEY", "openai")
	t.Setenv("PINECONE_API_KEY", "pinecone")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "ws-default", cfg.WSPath)
	assert.Equal(t, "portfolio", cfg.PineconeIndex)
	assert.Equal(t, 3, cfg.SearchTopK)
	assert.Equal(t, 0, cfg.ToolResultMaxChar)
	assert.Equal(t, 20*time.Second, cfg.WSPingInterval)
	assert.False(t, cfg.LLMDebug)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("OBFUSCATED_WS_PATH", "/secret-path/")
	t.Setenv("LLM_DEBUG", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.dev, https://b.dev")
	t.Setenv("VECTOR_STORE", "sqlite")
	t.Setenv("MAX_TOOL_ROUNDS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret-path", cfg.WSPath)
	assert.True(t, cfg.LLMDebug)
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, cfg.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.VectorStore)
	assert.Equal(t, 5, cfg.MaxToolRounds)
}

func TestLoadReportsEveryMissingKey(t *testing.T) {
	t.Setenv("RETELL_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PINECONE_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingRequired))
	for _, key := range []string{"RETELL_API_KEY", "OPENAI_API_KEY", "PINECONE_API_KEY"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestValidateProviderKeys(t *testing.T) {
	cfg := &Config{
		RetellAPIKey:      "r",
		OpenAIAPIKey:      "o",
		PineconeAPIKey:    "p",
		GuardrailProvider: "anthropic",
		EmbeddingProvider: "genai",
		VectorStore:       "redis",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	assert.Contains(t, err.Error(), "VECTOR_STORE")
}
