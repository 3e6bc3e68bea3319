package driven

import (
	"context"
	"time"
)

// LexicalIndex provides term-frequency (BM25-style) search over chunks.
// Terms are already normalised by the caller.
//
// Results are ordered by decreasing score, contain no duplicate chunk IDs
// and hold at most k hits. An unavailable index returns an error wrapping
// domain.ErrIndexUnavailable, never a silent empty result.
type LexicalIndex interface {
	// Search returns the k best chunks for the terms.
	Search(ctx context.Context, terms []string, k int) ([]LexicalHit, error)
}

// TemporalLexicalIndex is implemented by lexical indexes that can push the
// effective-date filter into the index query.
type TemporalLexicalIndex interface {
	LexicalIndex

	// SearchAsAt returns the k best chunks in force on asAt.
	SearchAsAt(ctx context.Context, terms []string, k int, asAt time.Time) ([]LexicalHit, error)
}

// LexicalHit represents a lexical search result.
type LexicalHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the relevance score (higher is better).
	Score float64
}
