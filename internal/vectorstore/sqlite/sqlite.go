// Package sqlite is a local search.Index backed by a SQLite file. Vectors are
// stored as JSON and ranked by cosine similarity in process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/search"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id        TEXT PRIMARY KEY,
	embedding TEXT NOT NULL,
	metadata  TEXT NOT NULL DEFAULT '{}'
)`

// Store is a SQLite-backed vector index.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces a project vector.
func (s *Store) Upsert(ctx context.Context, id string, values []float32, metadata map[string]any) error {
	emb, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	md, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, embedding, metadata) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding, metadata = excluded.metadata`,
		id, string(emb), string(md))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	return nil
}

// Query ranks every stored vector against vector and returns the topK best.
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]search.Match, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding, metadata FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var matches []search.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		m.Score = cosineSimilarity(vector, m.Values)
		m.Values = nil
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Fetch returns one project with its vector, or nil when absent.
func (s *Store) Fetch(ctx context.Context, id string) (*search.Match, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, embedding, metadata FROM projects WHERE id = ?`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (search.Match, error) {
	var id, emb, md string
	if err := row.Scan(&id, &emb, &md); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return search.Match{}, err
		}
		return search.Match{}, fmt.Errorf("scan project: %w", err)
	}

	m := search.Match{ID: id}
	if err := json.Unmarshal([]byte(emb), &m.Values); err != nil {
		return search.Match{}, fmt.Errorf("decode embedding for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(md), &m.Metadata); err != nil {
		return search.Match{}, fmt.Errorf("decode metadata for %s: %w", id, err)
	}
	return m, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
