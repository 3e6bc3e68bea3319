package driven

import "context"

// RerankModel scores query/passage pairs with a cross-encoder or similar model.
// This is an optional service - when nil, fused order is final.
//
// Scores must be comparable within one call sequence for one query;
// they need not be comparable across queries. Implementations should
// honour ctx cancellation, but the engine never waits past its budget
// even when they do not.
type RerankModel interface {
	// Score returns one relevance score per passage, aligned with passages.
	Score(ctx context.Context, query string, passages []string) ([]float64, error)

	// ModelName returns the model identifier for logging.
	ModelName() string

	// Ping checks the model is reachable.
	Ping(ctx context.Context) error
}
