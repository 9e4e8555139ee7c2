package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/search"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

type upserter interface {
	Upsert(ctx context.Context, id string, values []float32, metadata map[string]any) error
}

func readProjects(r io.Reader) ([]model.ProjectRecord, error) {
	var projects []model.ProjectRecord
	if err := json.NewDecoder(r).Decode(&projects); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	for i, p := range projects {
		if p.ID == "" {
			return nil, fmt.Errorf("project %d: id is required", i)
		}
		if p.Name == "" && p.Summary == "" {
			return nil, fmt.Errorf("project %s: name or summary is required", p.ID)
		}
	}
	return projects, nil
}

// embedText is the text a project is indexed under.
func embedText(p model.ProjectRecord) string {
	parts := []string{p.Name, p.Summary, p.Details}
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(part)
	}
	return b.String()
}

func metadata(p model.ProjectRecord) map[string]any {
	md := map[string]any{"name": p.Name, "summary": p.Summary}
	for key, v := range map[string]string{"details": p.Details, "github": p.GitHub, "demo": p.Demo} {
		if v != "" {
			md[key] = v
		}
	}
	return md
}

func seed(ctx context.Context, embedder search.Embedder, store upserter, projects []model.ProjectRecord, log *logger.Logger) (int, error) {
	seeded := 0
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return seeded, err
		}
		values, err := embedder.Embed(ctx, embedText(p))
		if err != nil {
			return seeded, fmt.Errorf("embed project %s: %w", p.ID, err)
		}
		if len(values) == 0 {
			return seeded, fmt.Errorf("embed project %s: empty embedding", p.ID)
		}
		if err := store.Upsert(ctx, p.ID, values, metadata(p)); err != nil {
			return seeded, fmt.Errorf("upsert project %s: %w", p.ID, err)
		}
		log.Debug("project seeded", zap.String("project_id", p.ID), zap.Int("dims", len(values)))
		seeded++
	}
	return seeded, nil
}
