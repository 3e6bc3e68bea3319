package driving

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// QueryService answers legal queries with a ranked, expanded and labelled result.
type QueryService interface {
	// Query runs the hybrid retrieval and ranking pipeline.
	// Only invalid input (domain.ErrInvalidQuery) and total retrieval failure
	// (domain.ErrRetrievalUnavailable) are returned as errors.
	Query(ctx context.Context, q domain.QueryContext) (*domain.RankedResult, error)
}
