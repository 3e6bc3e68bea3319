package domain

import (
	"fmt"
	"time"
)

// Pinned ranking defaults. Evaluation runs depend on these values;
// change them only together with the evaluation baseline.
const (
	// DefaultRRFK is the reciprocal rank fusion constant.
	DefaultRRFK = 60

	// DefaultFusionWidth is the fused list length kept before reranking.
	DefaultFusionWidth = 100

	// DefaultRerankWindow is the number of fused candidates offered to the reranker.
	DefaultRerankWindow = 50

	// DefaultRerankBatchSize is the number of passages scored per model call.
	DefaultRerankBatchSize = 8

	// DefaultRerankBudget is the reranker wall-clock budget.
	DefaultRerankBudget = 800 * time.Millisecond

	// DefaultTimeBudget is the whole-query budget.
	DefaultTimeBudget = 2 * time.Second

	// DefaultTemporalWidening multiplies k when the date filter runs after retrieval.
	DefaultTemporalWidening = 3

	// DefaultHighThreshold is the minimum top rerank score for High confidence.
	DefaultHighThreshold = 0.80

	// DefaultMarginThreshold is the minimum lead over the runner-up for High confidence.
	DefaultMarginThreshold = 0.10

	// DefaultMediumThreshold is the minimum top rerank score for Medium confidence.
	DefaultMediumThreshold = 0.50

	// DefaultEarlyStopThreshold is the leader score that allows reranking to stop early.
	DefaultEarlyStopThreshold = 0.95

	// DefaultEarlyStopMargin is the lead over the runner-up required to stop early.
	DefaultEarlyStopMargin = 0.30

	// DefaultEarlyStopMinScored is the number of passages scored before an early stop.
	DefaultEarlyStopMinScored = 8

	// DefaultTopK is the result count when the query does not specify one.
	DefaultTopK = 10

	// DefaultMaxTopK caps the requested result count.
	DefaultMaxTopK = 100

	// DefaultMappingHeartbeat is the minimum interval between staleness checks.
	DefaultMappingHeartbeat = 30 * time.Second

	// DefaultExpandConcurrency bounds concurrent parent document fetches.
	DefaultExpandConcurrency = 4
)

// EngineConfig holds every ranking constant and threshold of the engine.
// It is passed explicitly to the query service constructor.
type EngineConfig struct {
	RRFK               int
	FusionWidth        int
	RerankWindow       int
	RerankBatchSize    int
	RerankBudget       time.Duration
	DefaultTimeBudget  time.Duration
	TemporalWidening   int
	HighThreshold      float64
	MarginThreshold    float64
	MediumThreshold    float64
	EarlyStopThreshold float64
	EarlyStopMargin    float64
	EarlyStopMinScored int
	DefaultTopK        int
	MaxTopK            int
	MappingHeartbeat   time.Duration
	ExpandConcurrency  int
	StopWords          []string
}

// DefaultEngineConfig returns the pinned defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RRFK:               DefaultRRFK,
		FusionWidth:        DefaultFusionWidth,
		RerankWindow:       DefaultRerankWindow,
		RerankBatchSize:    DefaultRerankBatchSize,
		RerankBudget:       DefaultRerankBudget,
		DefaultTimeBudget:  DefaultTimeBudget,
		TemporalWidening:   DefaultTemporalWidening,
		HighThreshold:      DefaultHighThreshold,
		MarginThreshold:    DefaultMarginThreshold,
		MediumThreshold:    DefaultMediumThreshold,
		EarlyStopThreshold: DefaultEarlyStopThreshold,
		EarlyStopMargin:    DefaultEarlyStopMargin,
		EarlyStopMinScored: DefaultEarlyStopMinScored,
		DefaultTopK:        DefaultTopK,
		MaxTopK:            DefaultMaxTopK,
		MappingHeartbeat:   DefaultMappingHeartbeat,
		ExpandConcurrency:  DefaultExpandConcurrency,
	}
}

// Validate checks internal consistency of the configuration.
func (c *EngineConfig) Validate() error {
	switch {
	case c.RRFK <= 0:
		return fmt.Errorf("%w: rrf_k must be positive", ErrInvalidConfig)
	case c.FusionWidth <= 0:
		return fmt.Errorf("%w: fusion_width must be positive", ErrInvalidConfig)
	case c.RerankWindow < 0:
		return fmt.Errorf("%w: rerank_window must not be negative", ErrInvalidConfig)
	case c.RerankWindow > c.FusionWidth:
		return fmt.Errorf("%w: rerank_window %d exceeds fusion_width %d",
			ErrInvalidConfig, c.RerankWindow, c.FusionWidth)
	case c.RerankBatchSize <= 0:
		return fmt.Errorf("%w: rerank_batch_size must be positive", ErrInvalidConfig)
	case c.RerankBudget < 0 || c.DefaultTimeBudget <= 0:
		return fmt.Errorf("%w: budgets must be positive", ErrInvalidConfig)
	case c.TemporalWidening < 1:
		return fmt.Errorf("%w: temporal_widening must be at least 1", ErrInvalidConfig)
	case c.MediumThreshold > c.HighThreshold:
		return fmt.Errorf("%w: medium_threshold above high_threshold", ErrInvalidConfig)
	case c.MarginThreshold < 0 || c.EarlyStopMargin < 0:
		return fmt.Errorf("%w: margins must not be negative", ErrInvalidConfig)
	case c.DefaultTopK <= 0 || c.MaxTopK < c.DefaultTopK:
		return fmt.Errorf("%w: default_top_k must be positive and at most max_top_k", ErrInvalidConfig)
	case c.ExpandConcurrency <= 0:
		return fmt.Errorf("%w: expand_concurrency must be positive", ErrInvalidConfig)
	}
	return nil
}
