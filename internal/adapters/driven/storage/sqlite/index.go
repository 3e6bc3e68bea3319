package sqlite

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// ==================== Lexical Index ====================

// lexicalIndex implements driven.TemporalLexicalIndex over FTS5.
type lexicalIndex struct {
	store *Store
}

var _ driven.TemporalLexicalIndex = (*lexicalIndex)(nil)

// Search returns the k best chunks for the terms, any term matching.
func (x *lexicalIndex) Search(ctx context.Context, terms []string, k int) ([]driven.LexicalHit, error) {
	return x.search(ctx, terms, k, nil)
}

// SearchAsAt returns the k best chunks in force on asAt.
func (x *lexicalIndex) SearchAsAt(
	ctx context.Context, terms []string, k int, asAt time.Time,
) ([]driven.LexicalHit, error) {
	return x.search(ctx, terms, k, &asAt)
}

func (x *lexicalIndex) search(ctx context.Context, terms []string, k int, asAt *time.Time) ([]driven.LexicalHit, error) {
	match := matchExpression(terms)
	if match == "" || k <= 0 {
		return []driven.LexicalHit{}, nil
	}

	// bm25() is lower-is-better; negate so higher is better.
	query := `
		SELECT c.id, -bm25(chunks_fts) AS score
		FROM chunks_fts JOIN chunks c ON c.rowid = chunks_fts.rowid
		WHERE chunks_fts MATCH ?`
	args := []any{match}
	if asAt != nil {
		day := formatDate(*asAt)
		query += ` AND c.effective_start <= ? AND (c.effective_end IS NULL OR c.effective_end >= ?)`
		args = append(args, day, day)
	}
	query += ` ORDER BY score DESC, c.id ASC LIMIT ?`
	args = append(args, k)

	rows, err := x.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: fts query: %w", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	hits := make([]driven.LexicalHit, 0, k)
	for rows.Next() {
		var h driven.LexicalHit
		if err := rows.Scan(&h.ChunkID, &h.Score); err != nil {
			return nil, fmt.Errorf("%w: scanning hit: %w", domain.ErrIndexUnavailable, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating hits: %w", domain.ErrIndexUnavailable, err)
	}
	return hits, nil
}

// matchExpression quotes every term and joins them with OR, so FTS5
// operators inside terms are never interpreted.
func matchExpression(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// ==================== Dense Index ====================

// denseIndex implements driven.TemporalDenseIndex by scanning stored
// embeddings. Exact search; suited to corpora that fit one table scan.
type denseIndex struct {
	store *Store
}

var _ driven.TemporalDenseIndex = (*denseIndex)(nil)

// Search finds the k chunks most similar to the query vector.
func (x *denseIndex) Search(ctx context.Context, embedding []float32, k int) ([]driven.DenseHit, error) {
	return x.search(ctx, embedding, k, nil)
}

// SearchAsAt finds the k most similar chunks in force on asAt.
func (x *denseIndex) SearchAsAt(
	ctx context.Context, embedding []float32, k int, asAt time.Time,
) ([]driven.DenseHit, error) {
	return x.search(ctx, embedding, k, &asAt)
}

func (x *denseIndex) search(ctx context.Context, embedding []float32, k int, asAt *time.Time) ([]driven.DenseHit, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return []driven.DenseHit{}, nil
	}

	query := `SELECT id, embedding FROM chunks WHERE embedding IS NOT NULL`
	var args []any
	if asAt != nil {
		day := formatDate(*asAt)
		query += ` AND effective_start <= ? AND (effective_end IS NULL OR effective_end >= ?)`
		args = append(args, day, day)
	}

	rows, err := x.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding scan: %w", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var hits []driven.DenseHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning embedding: %w", domain.ErrIndexUnavailable, err)
		}
		vec := bytesToFloat32Slice(blob)
		if len(vec) != len(embedding) {
			return nil, fmt.Errorf("%w: chunk %s has %d dimensions, query has %d",
				domain.ErrInvalidInput, id, len(vec), len(embedding))
		}
		hits = append(hits, driven.DenseHit{ChunkID: id, Similarity: cosine(embedding, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating embeddings: %w", domain.ErrIndexUnavailable, err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	if hits == nil {
		hits = []driven.DenseHit{}
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
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
