package pinecone

import (
	"context"
	"errors"
	"testing"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeConn struct {
	query    *pinecone.QueryVectorsResponse
	fetch    *pinecone.FetchVectorsResponse
	err      error
	lastTopK uint32
}

func (f *fakeConn) QueryByVectorValues(_ context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	f.lastTopK = in.TopK
	return f.query, f.err
}

func (f *fakeConn) FetchVectors(_ context.Context, _ []string) (*pinecone.FetchVectorsResponse, error) {
	return f.fetch, f.err
}

func (f *fakeConn) Close() error { return nil }

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestQueryMapsMatches(t *testing.T) {
	fake := &fakeConn{query: &pinecone.QueryVectorsResponse{
		Matches: []*pinecone.ScoredVector{
			{Vector: &pinecone.Vector{Id: "gitpt", Metadata: mustStruct(t, map[string]any{"name": "GitPT"})}, Score: 0.9},
			nil,
			{Vector: &pinecone.Vector{Id: "dispatch-ai"}, Score: 0.5},
		},
	}}
	s := &Store{conn: fake}

	matches, err := s.Query(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, uint32(3), fake.lastTopK)
	assert.Equal(t, "gitpt", matches[0].ID)
	assert.Equal(t, "GitPT", matches[0].Metadata["name"])
	assert.InDelta(t, 0.9, matches[0].Score, 1e-6)
	assert.Nil(t, matches[1].Metadata)
}

func TestFetch(t *testing.T) {
	fake := &fakeConn{fetch: &pinecone.FetchVectorsResponse{
		Vectors: map[string]*pinecone.Vector{
			"gitpt": {Id: "gitpt", Values: []float32{0.1, 0.2}, Metadata: mustStruct(t, map[string]any{"summary": "repo summarizer"})},
		},
	}}
	s := &Store{conn: fake}

	m, err := s.Fetch(context.Background(), "gitpt")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, []float32{0.1, 0.2}, m.Values)
	assert.Equal(t, "repo summarizer", m.Metadata["summary"])

	m, err = s.Fetch(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestErrorsPropagate(t *testing.T) {
	s := &Store{conn: &fakeConn{err: errors.New("unavailable")}}

	_, err := s.Query(context.Background(), nil, 1)
	assert.Error(t, err)
	_, err = s.Fetch(context.Background(), "x")
	assert.Error(t, err)
}
