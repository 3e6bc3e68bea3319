package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidQuery indicates a malformed QueryContext.
	// It is one of the two failures that propagate out of a query.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidConfig indicates an EngineConfig that fails validation.
	ErrInvalidConfig = errors.New("invalid engine config")

	// Retrieval Errors.

	// ErrIndexUnavailable indicates a lexical or dense index could not serve a search.
	// Adapters wrap it; the engine degrades to the index that did respond.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrRetrievalUnavailable indicates that every index failed for a query.
	// No partial or fabricated result accompanies it.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured or failed.
	// Dense search is skipped for the query.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Ranking Errors.

	// ErrRerankTimeout indicates the reranker ran out of its time budget.
	// Non-fatal: the unscored tail keeps its fused order.
	ErrRerankTimeout = errors.New("rerank timeout")

	// ErrRerankerUnavailable indicates the rerank model could not be reached.
	ErrRerankerUnavailable = errors.New("reranker unavailable")

	// Mapping Errors.

	// ErrParentMappingMiss indicates a chunk has no verified parent document.
	// Non-fatal: the chunk is kept and marked unexpandable.
	ErrParentMappingMiss = errors.New("parent mapping miss")

	// ErrStaleMapping indicates the document store changed since the mapping was built.
	ErrStaleMapping = errors.New("stale parent mapping")

	// ErrMappingNotBuilt indicates no mapping snapshot exists yet.
	ErrMappingNotBuilt = errors.New("parent mapping not built")
)

// IndexUnavailableError reports which index failed and why.
// It matches ErrIndexUnavailable with errors.Is.
type IndexUnavailableError struct {
	// Index is "lexical" or "dense".
	Index string

	// Err is the underlying cause.
	Err error
}

// NewIndexUnavailableError wraps err as an unavailability of the named index.
func NewIndexUnavailableError(index string, err error) *IndexUnavailableError {
	return &IndexUnavailableError{Index: index, Err: err}
}

func (e *IndexUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s index unavailable", e.Index)
	}
	return fmt.Sprintf("%s index unavailable: %v", e.Index, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IndexUnavailableError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIndexUnavailable.
func (e *IndexUnavailableError) Is(target error) bool {
	return target == ErrIndexUnavailable
}
