package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/dishpal/coupon-core/internal/domain/repository"
)

// VectorStore keeps discount embeddings in the vector database.
// The pool must be created with WithVectorTypes.
type VectorStore struct {
	pool *pgxpool.Pool
	dim  int
}

func NewVectorStore(pool *pgxpool.Pool, dim int) *VectorStore {
	return &VectorStore{pool: pool, dim: dim}
}

func (s *VectorStore) check(vec []float32) error {
	if len(vec) != s.dim {
		return fmt.Errorf("vector dimension %d, want %d", len(vec), s.dim)
	}
	return nil
}

// VerifySchema compares the dimension of the migrated embedding column with
// the configured one. pgvector stores the dimension as the column typmod.
func (s *VectorStore) VerifySchema(ctx context.Context) error {
	var column int
	err := s.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'discount_vectors'::regclass AND attname = 'embedding'
	`).Scan(&column)
	if err != nil {
		return fmt.Errorf("read embedding column: %w", mapErr(err))
	}
	return matchDimension(column, s.dim)
}

func matchDimension(column, configured int) error {
	if column != configured {
		return fmt.Errorf("discount_vectors.embedding is vector(%d) but VECTOR_DIMENSION is %d; migrate the column or change the setting", column, configured)
	}
	return nil
}

func (s *VectorStore) Upsert(ctx context.Context, id int64, vec []float32) error {
	if err := s.check(vec); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO discount_vectors (id, embedding, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = now()
	`, id, pgvector.NewVector(vec))
	return mapErr(err)
}

// Search returns the k nearest embeddings by L2 distance.
func (s *VectorStore) Search(ctx context.Context, vec []float32, k int) ([]repository.VectorMatch, error) {
	if err := s.check(vec); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, embedding <-> $1 AS distance
		FROM discount_vectors
		ORDER BY embedding <-> $1
		LIMIT $2
	`, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []repository.VectorMatch
	for rows.Next() {
		var m repository.VectorMatch
		if err := rows.Scan(&m.ID, &m.Distance); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}

func (s *VectorStore) Delete(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM discount_vectors WHERE id = $1`, id)
	return mapErr(err)
}

var _ repository.VectorStore = (*VectorStore)(nil)
