package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/logger"
)

// RerankOutcome is the result of one reranking pass.
type RerankOutcome struct {
	// Candidates holds the scored prefix sorted by rerank score, followed
	// by every unscored candidate in fused order.
	Candidates []domain.RankedCandidate

	// Scored is the number of candidates that received a rerank score.
	Scored int

	// Window is the number of candidates offered for scoring.
	Window int

	// Degradations lists the fallbacks taken.
	Degradations []domain.Degradation

	// Err is the non-fatal cause of a partial pass, if any.
	Err error
}

// Reranker reorders the head of a fused list with a slower relevance model.
//
// Scoring proceeds in batches, in fused order, and checks the deadline
// between batches. A model call still running at the deadline is abandoned;
// its goroutine is left to finish on its own. Whatever was scored by then is
// sorted; the rest keeps its fused order. Rerank never returns an error.
type Reranker struct {
	model              driven.RerankModel
	window             int
	batchSize          int
	earlyStopThreshold float64
	earlyStopMargin    float64
	earlyStopMinScored int
}

// NewReranker creates a reranker. A nil model makes Rerank a no-op.
func NewReranker(model driven.RerankModel, cfg domain.EngineConfig) *Reranker {
	batch := cfg.RerankBatchSize
	if batch <= 0 {
		batch = domain.DefaultRerankBatchSize
	}
	return &Reranker{
		model:              model,
		window:             cfg.RerankWindow,
		batchSize:          batch,
		earlyStopThreshold: cfg.EarlyStopThreshold,
		earlyStopMargin:    cfg.EarlyStopMargin,
		earlyStopMinScored: cfg.EarlyStopMinScored,
	}
}

// Enabled returns true when a model is configured.
func (r *Reranker) Enabled() bool {
	return r != nil && r.model != nil
}

// Rerank scores up to the configured window of candidates within budget.
// passages maps chunk IDs to the text sent to the model.
func (r *Reranker) Rerank(
	ctx context.Context,
	query string,
	candidates []domain.RankedCandidate,
	passages map[string]string,
	budget time.Duration,
) RerankOutcome {
	out := make([]domain.RankedCandidate, len(candidates))
	copy(out, candidates)

	window := min(r.window, len(out))
	outcome := RerankOutcome{Candidates: out, Window: window}
	if !r.Enabled() || window == 0 {
		return outcome
	}
	if budget <= 0 {
		outcome.Degradations = append(outcome.Degradations, domain.DegradedRerankTimeout)
		outcome.Err = domain.ErrRerankTimeout
		return outcome
	}

	defer logger.Stage("rerank")()

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	scored := 0
	for scored < window {
		if ctx.Err() != nil {
			outcome.Err = fmt.Errorf("%w: after %d of %d", domain.ErrRerankTimeout, scored, window)
			break
		}

		end := min(scored+r.batchSize, window)
		texts := make([]string, 0, end-scored)
		for _, c := range out[scored:end] {
			texts = append(texts, passages[c.ChunkID])
		}

		scores, err := r.scoreBatch(ctx, query, texts)
		if err != nil {
			if ctx.Err() != nil {
				outcome.Err = fmt.Errorf("%w: after %d of %d", domain.ErrRerankTimeout, scored, window)
			} else {
				outcome.Err = err
			}
			break
		}

		for i, s := range scores {
			score := s
			out[scored+i].RerankScore = &score
		}
		scored = end

		if r.decisive(out[:scored]) {
			logger.Debug("rerank: early stop after %d of %d", scored, window)
			outcome.Degradations = append(outcome.Degradations, domain.DegradedRerankEarlyStop)
			break
		}
	}

	outcome.Scored = scored
	if outcome.Err != nil {
		if errors.Is(outcome.Err, domain.ErrRerankTimeout) {
			logger.Warn("rerank: budget %s exhausted, %d of %d scored", budget, scored, window)
			outcome.Degradations = append(outcome.Degradations, domain.DegradedRerankTimeout)
		} else {
			logger.Warn("rerank: model failed after %d of %d: %v", scored, window, outcome.Err)
			outcome.Degradations = append(outcome.Degradations, domain.DegradedRerankFailed)
		}
		if scored > 0 {
			outcome.Degradations = append(outcome.Degradations, domain.DegradedRerankPartial)
		}
	}

	sortScoredPrefix(out[:scored])
	return outcome
}

type batchResult struct {
	scores []float64
	err    error
}

// scoreBatch calls the model but never waits past ctx.
func (r *Reranker) scoreBatch(ctx context.Context, query string, texts []string) ([]float64, error) {
	ch := make(chan batchResult, 1)
	go func() {
		scores, err := r.model.Score(ctx, query, texts)
		ch <- batchResult{scores: scores, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("%s: %w", r.model.ModelName(), res.err)
		}
		if len(res.scores) != len(texts) {
			return nil, fmt.Errorf("%w: %s returned %d scores for %d passages",
				domain.ErrRerankerUnavailable, r.model.ModelName(), len(res.scores), len(texts))
		}
		for _, s := range res.scores {
			if math.IsNaN(s) {
				return nil, fmt.Errorf("%w: %s returned NaN", domain.ErrRerankerUnavailable, r.model.ModelName())
			}
		}
		return res.scores, nil
	}
}

// decisive reports whether the best scored candidate is far enough ahead
// that no later candidate is expected to overtake it.
func (r *Reranker) decisive(scored []domain.RankedCandidate) bool {
	if r.earlyStopThreshold <= 0 || len(scored) < max(r.earlyStopMinScored, 1) {
		return false
	}
	best, second := math.Inf(-1), math.Inf(-1)
	for _, c := range scored {
		s := *c.RerankScore
		switch {
		case s > best:
			best, second = s, best
		case s > second:
			second = s
		}
	}
	return atLeast(best, r.earlyStopThreshold) && atLeast(best-second, r.earlyStopMargin)
}

// sortScoredPrefix orders scored candidates by rerank score, falling back
// to fused rank on ties.
func sortScoredPrefix(scored []domain.RankedCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		si, sj := *scored[i].RerankScore, *scored[j].RerankScore
		if si != sj {
			return si > sj
		}
		return scored[i].FusedRank < scored[j].FusedRank
	})
}
