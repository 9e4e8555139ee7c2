// Package pinecone adapts a Pinecone index to search.Index.
package pinecone

import (
	"context"
	"errors"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/search"
)

// conn is the subset of *pinecone.IndexConnection the store uses.
type conn interface {
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error)
	Close() error
}

// Store is a read-only view over one Pinecone index.
type Store struct {
	conn conn
}

// Open resolves the index host and opens a data-plane connection.
func Open(ctx context.Context, apiKey, indexName string) (*Store, error) {
	if apiKey == "" {
		return nil, errors.New("pinecone api key is required")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	idx, err := pc.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("describe index %s: %w", indexName, err)
	}

	ic, err := pc.Index(pinecone.NewIndexConnParams{Host: idx.Host})
	if err != nil {
		return nil, fmt.Errorf("connect index %s: %w", indexName, err)
	}
	return &Store{conn: ic}, nil
}

// Query returns the topK nearest vectors with metadata.
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]search.Match, error) {
	resp, err := s.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]search.Match, 0, len(resp.Matches))
	for _, sv := range resp.Matches {
		if sv == nil || sv.Vector == nil {
			continue
		}
		matches = append(matches, search.Match{
			ID:       sv.Vector.Id,
			Score:    float64(sv.Score),
			Metadata: metadataMap(sv.Vector.Metadata),
		})
	}
	return matches, nil
}

// Fetch returns one vector with its values, or nil when absent.
func (s *Store) Fetch(ctx context.Context, id string) (*search.Match, error) {
	resp, err := s.conn.FetchVectors(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	v, ok := resp.Vectors[id]
	if !ok || v == nil {
		return nil, nil
	}
	return &search.Match{
		ID:       v.Id,
		Values:   v.Values,
		Metadata: metadataMap(v.Metadata),
	}, nil
}

// Close releases the index connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func metadataMap(md *pinecone.Metadata) map[string]any {
	if md == nil {
		return nil
	}
	return md.AsMap()
}
