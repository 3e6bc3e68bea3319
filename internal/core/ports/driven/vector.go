package driven

import (
	"context"
	"time"
)

// DenseIndex provides embedding similarity search over chunks.
// It never computes embeddings; the query vector is supplied by the caller.
//
// Ordering and uniqueness guarantees match LexicalIndex.
type DenseIndex interface {
	// Search finds the k chunks most similar to the query vector.
	Search(ctx context.Context, embedding []float32, k int) ([]DenseHit, error)
}

// TemporalDenseIndex is implemented by dense indexes that can push the
// effective-date filter into the index query.
type TemporalDenseIndex interface {
	DenseIndex

	// SearchAsAt finds the k most similar chunks in force on asAt.
	SearchAsAt(ctx context.Context, embedding []float32, k int, asAt time.Time) ([]DenseHit, error)
}

// DenseHit represents a similarity search result.
type DenseHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score.
	Similarity float64
}
