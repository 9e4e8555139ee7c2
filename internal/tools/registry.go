// Package tools holds the callable actions the model may invoke during a turn.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/metrics"
)

// LeadInParam is the conventional argument carrying text said or shown
// while a tool runs.
const LeadInParam = "message"

// Session is the per-call context handed to every tool execution.
type Session struct {
	CallID string
	Mode   model.Mode
}

// Result is the outcome of one tool execution.
type Result struct {
	// Content is fed back to the model and announced as the tool result.
	Content string
	// Metadata, when set, is forwarded on the side channel after the result.
	Metadata map[string]any
	// EndCall ends the conversation after this tool.
	EndCall bool
}

// Tool is a named, schema-declared action.
type Tool interface {
	Name() string
	Definition() llm.ToolDefinition
	Execute(ctx context.Context, sess Session, args map[string]any) (Result, error)
}

// Registry resolves tool calls by name.
type Registry struct {
	byName         map[string]Tool
	maxResultChars int
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxResultChars truncates tool results fed back to the model. Zero
// leaves results untruncated.
func WithMaxResultChars(n int) Option {
	return func(r *Registry) {
		r.maxResultChars = n
	}
}

// NewRegistry builds a registry. Later tools with a duplicate name replace
// earlier ones.
func NewRegistry(tools []Tool, opts ...Option) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t == nil {
			continue
		}
		r.byName[t.Name()] = t
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool schemas in name order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.byName))
	for _, name := range r.Names() {
		defs = append(defs, r.byName[name].Definition())
	}
	return defs
}

// Execute runs the named tool with raw JSON arguments. Failures never
// escape as errors; they come back as "Error: ..." content so the
// conversation can continue.
func (r *Registry) Execute(ctx context.Context, sess Session, name, rawArgs string) Result {
	t, ok := r.byName[name]
	if !ok {
		metrics.RecordToolCall(name, "unknown")
		return Result{Content: fmt.Sprintf("Error: unknown tool %q", name)}
	}

	args, err := ParseArguments(rawArgs)
	if err != nil {
		metrics.RecordToolCall(name, "bad_arguments")
		return Result{Content: "Error: " + err.Error()}
	}

	res, err := t.Execute(ctx, sess, args)
	if err != nil {
		metrics.RecordToolCall(name, "error")
		return Result{Content: "Error: " + err.Error()}
	}
	metrics.RecordToolCall(name, "ok")

	res.Content = truncate(res.Content, r.maxResultChars)
	return res
}

// ParseArguments decodes a tool argument payload. An empty payload is an
// empty argument set.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// LeadIn extracts the lead-in message from raw arguments, if any.
func LeadIn(rawArgs string) string {
	args, err := ParseArguments(rawArgs)
	if err != nil {
		return ""
	}
	return stringArg(args, LeadInParam)
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil && n > 0 {
			return int(n)
		}
	}
	return fallback
}

func requireString(args map[string]any, key string) (string, error) {
	v := stringArg(args, key)
	if v == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return v, nil
}

func schema(required []string, props map[string]any) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func leadInProp() map[string]any {
	return stringProp("A short phrase said or shown to the user while this runs.")
}
