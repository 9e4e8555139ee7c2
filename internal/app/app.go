// Package app assembles the turn orchestrator from configuration.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/config"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/guardrail"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/prompts"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/search"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/service"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/tools"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/vectorstore/pinecone"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/vectorstore/sqlite"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

// Responder is a wired ResponseService together with the resources it holds.
type Responder struct {
	*service.ResponseService
	Registry *tools.Registry
	Persona  *prompts.Persona

	index io.Closer
}

// Close releases the vector index.
func (r *Responder) Close() error {
	if r.index == nil {
		return nil
	}
	return r.index.Close()
}

// NewResponder builds the chat client, guardrail, search stack and tool
// registry described by cfg.
func NewResponder(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Responder, error) {
	persona, err := prompts.Default()
	if err != nil {
		return nil, err
	}

	chatClient, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}

	guard, err := newGuardrail(cfg, persona, log)
	if err != nil {
		return nil, err
	}

	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	index, err := openIndex(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	searcher := search.NewClient(embedder, index, log)
	registry := tools.NewRegistry(
		tools.Default(searcher, cfg.SearchTopK),
		tools.WithMaxResultChars(cfg.ToolResultMaxChar),
	)

	svc := service.NewResponseService(chatClient, guard, registry, persona, service.Config{
		Model:         cfg.ChatModel,
		MaxToolRounds: cfg.MaxToolRounds,
		Debug:         cfg.LLMDebug,
	}, log)

	return &Responder{ResponseService: svc, Registry: registry, Persona: persona, index: index}, nil
}

func newGuardrail(cfg *config.Config, persona *prompts.Persona, log *logger.Logger) (*guardrail.Classifier, error) {
	provider := llm.Provider(cfg.GuardrailProvider)
	key := cfg.OpenAIAPIKey
	model := cfg.GuardrailModel
	if provider == llm.ProviderAnthropic {
		key = cfg.AnthropicAPIKey
	} else if model == "" {
		model = cfg.ChatModel
	}

	completer, err := llm.NewCompleter(provider, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create guardrail client: %w", err)
	}
	return guardrail.New(completer, guardrail.Config{
		Model:         model,
		System:        persona.Guardrail.System,
		AllowKeywords: persona.Guardrail.AllowKeywords,
		BlockKeywords: persona.Guardrail.BlockKeywords,
	}, log), nil
}

// NewEmbedder returns the query embedder selected by EMBEDDING_PROVIDER.
func NewEmbedder(ctx context.Context, cfg *config.Config) (search.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "genai":
		return search.NewGenAIEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	default:
		return search.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	}
}

type closableIndex interface {
	search.Index
	io.Closer
}

func openIndex(ctx context.Context, cfg *config.Config) (closableIndex, error) {
	switch cfg.VectorStore {
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath)
	default:
		return pinecone.Open(ctx, cfg.PineconeAPIKey, cfg.PineconeIndex)
	}
}
