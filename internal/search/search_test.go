package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

type fakeEmbedder struct {
	err error
}

func (f fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeIndex struct {
	matches  []Match
	records  map[string]*Match
	err      error
	lastTopK int
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int) ([]Match, error) {
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeIndex) Fetch(_ context.Context, id string) (*Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[id], nil
}

func TestSearchProjectsRanksAndRounds(t *testing.T) {
	index := &fakeIndex{matches: []Match{
		{ID: "c", Score: 0.42, Metadata: map[string]any{"name": "C"}},
		{ID: "a", Score: 0.95, Metadata: map[string]any{"name": "A", "github": "https://github.com/x/a"}},
		{ID: "b", Score: 0.80, Metadata: map[string]any{"name": "B"}},
	}}
	c := NewClient(fakeEmbedder{}, index, logger.Nop())

	got, err := c.SearchProjects(context.Background(), "x", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 3, index.lastTopK)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, []float64{0.95, 0.8, 0.42}, []float64{got[0].Score, got[1].Score, got[2].Score})
	assert.Equal(t, "https://github.com/x/a", got[0].GitHub)
}

func TestSearchProjectsRoundsToThreePlaces(t *testing.T) {
	index := &fakeIndex{matches: []Match{{ID: "a", Score: 0.123456}, {ID: "b", Score: 0.98765}}}
	c := NewClient(fakeEmbedder{}, index, logger.Nop())

	got, err := c.SearchProjects(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, index.lastTopK)
	assert.Equal(t, 0.988, got[0].Score)
	assert.Equal(t, 0.123, got[1].Score)
}

func TestSearchProjectsDefaults(t *testing.T) {
	index := &fakeIndex{matches: []Match{{ID: "bare", Score: 0.5}}}
	c := NewClient(fakeEmbedder{}, index, logger.Nop())

	got, err := c.SearchProjects(context.Background(), "x", 1)
	require.NoError(t, err)
	assert.Equal(t, "Unknown Project", got[0].Name)
	assert.Equal(t, "No summary available", got[0].Summary)
	assert.Equal(t, "No details available", got[0].Details)
	assert.Empty(t, got[0].GitHub)
}

func TestSearchProjectsErrors(t *testing.T) {
	c := NewClient(fakeEmbedder{err: errors.New("quota")}, &fakeIndex{}, logger.Nop())
	_, err := c.SearchProjects(context.Background(), "x", 3)
	assert.ErrorContains(t, err, "embed query")

	c = NewClient(fakeEmbedder{}, &fakeIndex{err: errors.New("down")}, logger.Nop())
	_, err = c.SearchProjects(context.Background(), "x", 3)
	assert.ErrorContains(t, err, "query index")
}

func TestGetProject(t *testing.T) {
	index := &fakeIndex{records: map[string]*Match{
		"gitpt": {ID: "gitpt", Metadata: map[string]any{"name": "GitPT", "details": "Summarizes repos", "demo": "https://gitpt.dev"}},
	}}
	c := NewClient(fakeEmbedder{}, index, logger.Nop())

	p, err := c.GetProject(context.Background(), "gitpt")
	require.NoError(t, err)
	assert.Equal(t, "GitPT", p.Name)
	assert.Equal(t, "Summarizes repos", p.Details)
	assert.Equal(t, "https://gitpt.dev", p.Demo)

	_, err = c.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindSimilarExcludesSource(t *testing.T) {
	index := &fakeIndex{
		records: map[string]*Match{"a": {ID: "a", Values: []float32{1, 0}}},
		matches: []Match{
			{ID: "a", Score: 1.0},
			{ID: "b", Score: 0.7},
			{ID: "c", Score: 0.9},
		},
	}
	c := NewClient(fakeEmbedder{}, index, logger.Nop())

	got, err := c.FindSimilar(context.Background(), "a", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, index.lastTopK)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Empty(t, got[0].Details)

	_, err = c.FindSimilar(context.Background(), "zzz", 2)
	assert.ErrorIs(t, err, ErrNotFound)
}
