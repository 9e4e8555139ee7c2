// Package search embeds queries and ranks portfolio projects against a
// vector index.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

// ErrNotFound is returned when a project id is absent from the index.
var ErrNotFound = errors.New("project not found")

// DefaultTopK is the number of search results when the caller passes zero.
const DefaultTopK = 3

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is one record returned by an Index.
type Match struct {
	ID       string
	Score    float64
	Values   []float32
	Metadata map[string]any
}

// Index is a read-only nearest-neighbour store. Fetch returns (nil, nil)
// when the id is absent.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	Fetch(ctx context.Context, id string) (*Match, error)
}

// Client answers project queries. It is safe for concurrent use and shared
// across sessions.
type Client struct {
	embedder Embedder
	index    Index
	log      *logger.Logger
}

// NewClient creates a search client.
func NewClient(embedder Embedder, index Index, log *logger.Logger) *Client {
	return &Client{embedder: embedder, index: index, log: log}
}

// SearchProjects returns up to topK projects ranked by descending score.
func (c *Client) SearchProjects(ctx context.Context, query string, topK int) ([]model.ProjectRecord, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := c.index.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	records := make([]model.ProjectRecord, 0, len(matches))
	for _, m := range matches {
		records = append(records, toRecord(m, true))
	}
	rank(records)
	if len(records) > topK {
		records = records[:topK]
	}

	c.log.Debug("project search",
		zap.String("query", query),
		zap.Int("top_k", topK),
		zap.Int("results", len(records)),
	)
	return records, nil
}

// GetProject fetches one project including its full details.
func (c *Client) GetProject(ctx context.Context, id string) (*model.ProjectRecord, error) {
	m, err := c.index.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch project %s: %w", id, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	record := toRecord(*m, true)
	record.Score = 0
	return &record, nil
}

// FindSimilar returns up to topK projects closest to the given project,
// excluding the project itself.
func (c *Client) FindSimilar(ctx context.Context, id string, topK int) ([]model.ProjectRecord, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	source, err := c.index.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch project %s: %w", id, err)
	}
	if source == nil || len(source.Values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	matches, err := c.index.Query(ctx, source.Values, topK+1)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	records := make([]model.ProjectRecord, 0, len(matches))
	for _, m := range matches {
		if m.ID == id {
			continue
		}
		records = append(records, toRecord(m, false))
	}
	rank(records)
	if len(records) > topK {
		records = records[:topK]
	}
	return records, nil
}

func rank(records []model.ProjectRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})
}

// RoundScore rounds a similarity score to three decimal places.
func RoundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}

func toRecord(m Match, withDetails bool) model.ProjectRecord {
	r := model.ProjectRecord{
		ID:      m.ID,
		Name:    stringField(m.Metadata, "name", "Unknown Project"),
		Summary: stringField(m.Metadata, "summary", "No summary available"),
		Score:   RoundScore(m.Score),
		GitHub:  stringField(m.Metadata, "github", ""),
		Demo:    stringField(m.Metadata, "demo", ""),
	}
	if withDetails {
		r.Details = stringField(m.Metadata, "details", "No details available")
	}
	return r
}

func stringField(md map[string]any, key, fallback string) string {
	if v, ok := md[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
