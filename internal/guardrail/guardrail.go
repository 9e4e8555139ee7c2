// Package guardrail decides whether a user utterance is on topic for the
// persona before any generation starts.
package guardrail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/metrics"
)

// ErrBlocked signals that the input was classified as a jailbreak or off topic.
var ErrBlocked = errors.New("guardrail: input blocked")

const fastPathReasoning = "Message references the persona or an allowed topic."

// Verdict is the outcome of one classification.
type Verdict struct {
	IsJailbreak bool   `json:"is_jailbreak"`
	Reasoning   string `json:"reasoning"`
	// FastPath is set when the keyword list decided without a model call.
	FastPath bool `json:"-"`
}

// Config configures a Classifier.
type Config struct {
	Model         string
	System        string
	AllowKeywords []string
	BlockKeywords []string
}

// Classifier is a two-tier topic gate: keyword allow-list first, model second.
type Classifier struct {
	completer llm.Completer
	model     string
	system    string
	allow     [][]string
	block     [][]string
	log       *logger.Logger
}

// New creates a Classifier backed by completer for ambiguous input.
func New(completer llm.Completer, cfg Config, log *logger.Logger) *Classifier {
	return &Classifier{
		completer: completer,
		model:     cfg.Model,
		system:    cfg.System,
		allow:     tokenizeAll(cfg.AllowKeywords),
		block:     tokenizeAll(cfg.BlockKeywords),
		log:       log,
	}
}

// Classify returns the verdict for the latest user utterance. A model call
// failure is returned as an error and must be treated as a block.
func (c *Classifier) Classify(ctx context.Context, text string) (Verdict, error) {
	words := tokenize(text)

	forced := containsAny(words, c.block, false)
	if !forced && containsAny(words, c.allow, true) {
		metrics.RecordGuardrail("allow", "keyword")
		return Verdict{Reasoning: fastPathReasoning, FastPath: true}, nil
	}

	verdict, err := c.classifyWithModel(ctx, text)
	if err != nil {
		metrics.RecordGuardrail("error", "model")
		return Verdict{}, err
	}

	decision := "allow"
	if verdict.IsJailbreak {
		decision = "block"
	}
	metrics.RecordGuardrail(decision, "model")
	c.log.Debug("guardrail verdict",
		zap.Bool("is_jailbreak", verdict.IsJailbreak),
		zap.Bool("block_keyword", forced),
		zap.String("reasoning", verdict.Reasoning),
	)
	return verdict, nil
}

// Check is Classify reduced to an error: nil to proceed, ErrBlocked on a
// jailbreak verdict, or the classification failure.
func (c *Classifier) Check(ctx context.Context, text string) error {
	verdict, err := c.Classify(ctx, text)
	if err != nil {
		return err
	}
	if verdict.IsJailbreak {
		return fmt.Errorf("%w: %s", ErrBlocked, verdict.Reasoning)
	}
	return nil
}

func (c *Classifier) classifyWithModel(ctx context.Context, text string) (Verdict, error) {
	resp, err := c.completer.Complete(ctx, &llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: c.system},
			{Role: llm.RoleUser, Content: text},
		},
		MaxTokens:   200,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("guardrail classification: %w", err)
	}
	return parseVerdict(resp.Content)
}

func parseVerdict(content string) (Verdict, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw struct {
		IsJailbreak *bool  `json:"is_jailbreak"`
		Reasoning   string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return Verdict{}, fmt.Errorf("guardrail classification: decode verdict: %w", err)
	}
	if raw.IsJailbreak == nil {
		return Verdict{}, errors.New("guardrail classification: verdict missing is_jailbreak")
	}
	return Verdict{IsJailbreak: *raw.IsJailbreak, Reasoning: raw.Reasoning}, nil
}

// inflections accepted after an allow keyword so "projects" and "bill's"
// match without prefix-matching unrelated words.
var inflections = []string{"", "s", "es", "'s", "ed", "ing"}

func containsAny(words []string, keywords [][]string, inflect bool) bool {
	for _, kw := range keywords {
		if matchPhrase(words, kw, inflect) {
			return true
		}
	}
	return false
}

func matchPhrase(words, phrase []string, inflect bool) bool {
	n := len(phrase)
	if n == 0 || n > len(words) {
		return false
	}
	for i := 0; i+n <= len(words); i++ {
		ok := true
		for j := 0; j < n; j++ {
			if !matchWord(words[i+j], phrase[j], inflect && j == n-1) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func matchWord(word, kw string, inflect bool) bool {
	if !inflect {
		return word == kw
	}
	rest, ok := strings.CutPrefix(word, kw)
	if !ok {
		return false
	}
	for _, suffix := range inflections {
		if rest == suffix {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func tokenizeAll(keywords []string) [][]string {
	out := make([][]string, 0, len(keywords))
	for _, kw := range keywords {
		if words := tokenize(kw); len(words) > 0 {
			out = append(out, words)
		}
	}
	return out
}
