package domain

import (
	"fmt"
	"strings"
	"time"
)

// QueryContext is the caller-supplied input of one query.
// It is treated as immutable for the duration of the query.
type QueryContext struct {
	// Text is the natural-language query.
	Text string

	// Terms are pre-normalised lexical terms. When empty the engine
	// normalises Text itself.
	Terms []string

	// Embedding is the query vector. When nil the engine asks the
	// embedding service, if one is configured.
	Embedding []float32

	// AsAt restricts results to chunks in force on this date.
	AsAt *time.Time

	// TopK is the number of results to return. Zero uses the configured default.
	TopK int

	// TimeBudget bounds the whole query. Zero uses the configured default.
	TimeBudget time.Duration
}

// Validate checks the query against the engine limits.
func (q *QueryContext) Validate(maxTopK int) error {
	if strings.TrimSpace(q.Text) == "" && len(q.Terms) == 0 && len(q.Embedding) == 0 {
		return fmt.Errorf("%w: query text, terms or embedding required", ErrInvalidQuery)
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative, got %d", ErrInvalidQuery, q.TopK)
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		return fmt.Errorf("%w: top_k %d exceeds maximum %d", ErrInvalidQuery, q.TopK, maxTopK)
	}
	if q.TimeBudget < 0 {
		return fmt.Errorf("%w: time budget must not be negative", ErrInvalidQuery)
	}
	for i, term := range q.Terms {
		if strings.TrimSpace(term) == "" {
			return fmt.Errorf("%w: term %d is blank", ErrInvalidQuery, i)
		}
	}
	return nil
}

// RankedCandidate is the per-query ranking state of one chunk.
// It only lives for the duration of a single query.
type RankedCandidate struct {
	// ChunkID identifies the chunk.
	ChunkID string

	// LexicalScore is set when the lexical index returned the chunk.
	LexicalScore *float64

	// LexicalRank is the 1-based lexical rank, 0 when absent.
	LexicalRank int

	// DenseScore is set when the dense index returned the chunk.
	DenseScore *float64

	// DenseRank is the 1-based dense rank, 0 when absent.
	DenseRank int

	// FusedScore is the reciprocal rank fusion score.
	FusedScore float64

	// FusedRank is the 1-based position after fusion.
	FusedRank int

	// RerankScore is set when the reranker scored the chunk.
	// Scores are only comparable within one query.
	RerankScore *float64
}

// Reranked returns true if the reranker scored this candidate.
func (c *RankedCandidate) Reranked() bool {
	return c.RerankScore != nil
}

// ResultItem is one ranked passage, expanded to its parent when possible.
type ResultItem struct {
	// Chunk is the retrieved passage.
	Chunk Chunk

	// ParentDocID is the verified parent ID, empty when unresolved.
	ParentDocID string

	// Parent is the expanded parent document. Nil when unexpandable.
	Parent *ParentDocument

	// Expandable is false when no verified parent exists; composition
	// may still use the chunk text alone.
	Expandable bool

	// Candidate carries the ranking scores.
	Candidate RankedCandidate
}

// RankedResult is the outbound value of a query.
type RankedResult struct {
	// QueryID uniquely identifies this query execution.
	QueryID string

	// Items are ordered best first.
	Items []ResultItem

	// Confidence drives the composition contract.
	Confidence ConfidenceLabel

	// Directive tells the composer how to proceed.
	Directive Directive

	// Decision records the gate inputs.
	Decision GateDecision

	// Degradations lists every non-fatal fallback taken.
	Degradations []Degradation

	// MappingVersion is the parent mapping version used for expansion.
	MappingVersion string

	// Elapsed is the wall-clock duration of the query.
	Elapsed time.Duration
}

// Degraded returns true if the given degradation occurred.
func (r *RankedResult) Degraded(d Degradation) bool {
	for _, got := range r.Degradations {
		if got == d {
			return true
		}
	}
	return false
}

// Degradation names a non-fatal fallback taken during a query.
type Degradation string

const (
	// DegradedLexical means the lexical index failed and dense results were used alone.
	DegradedLexical Degradation = "lexical_unavailable"

	// DegradedDense means the dense index failed and lexical results were used alone.
	DegradedDense Degradation = "dense_unavailable"

	// DegradedEmbedding means no query embedding was available.
	DegradedEmbedding Degradation = "embedding_unavailable"

	// DegradedRerankPartial means only a prefix of the window was reranked.
	DegradedRerankPartial Degradation = "rerank_partial"

	// DegradedRerankTimeout means the reranker hit its budget.
	DegradedRerankTimeout Degradation = "rerank_timeout"

	// DegradedRerankFailed means the rerank model returned an error.
	DegradedRerankFailed Degradation = "rerank_failed"

	// DegradedRerankEarlyStop means reranking stopped on a decisive leader.
	DegradedRerankEarlyStop Degradation = "rerank_early_stop"

	// DegradedBudget means the query budget ran out before reranking.
	DegradedBudget Degradation = "budget_exhausted"

	// DegradedMappingStale means a stale parent mapping was used while rebuilding.
	DegradedMappingStale Degradation = "mapping_stale"

	// DegradedParentUnresolved means at least one item could not be linked
	// to its parent document and is marked unexpandable.
	DegradedParentUnresolved Degradation = "parent_unresolved"

	// DegradedChunkMissing means a retrieved chunk was absent from the chunk store.
	DegradedChunkMissing Degradation = "chunk_missing"
)
