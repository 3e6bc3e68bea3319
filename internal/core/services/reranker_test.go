package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// --- Mock implementations ---

// mockRerankModel implements driven.RerankModel for testing.
// Passages are scored from the scores map (default 0.1) unless scoreFn is set.
// When block is set, every call from blockAfter on waits for block to close
// and ignores ctx, like a model that never returns.
type mockRerankModel struct {
	mu         sync.Mutex
	calls      int
	scores     map[string]float64
	scoreFn    func(call int, passages []string) ([]float64, error)
	block      chan struct{}
	blockAfter int
}

func (m *mockRerankModel) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.mu.Unlock()

	if m.block != nil && call >= m.blockAfter {
		<-m.block
		return nil, errors.New("released")
	}
	if m.scoreFn != nil {
		return m.scoreFn(call, passages)
	}
	out := make([]float64, len(passages))
	for i, p := range passages {
		out[i] = 0.1
		if s, ok := m.scores[p]; ok {
			out[i] = s
		}
	}
	return out, nil
}

func (m *mockRerankModel) ModelName() string {
	return "mock-rerank"
}

func (m *mockRerankModel) Ping(_ context.Context) error {
	return nil
}

func (m *mockRerankModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// blockingModel never returns until the test ends.
func blockingModel(t *testing.T, after int) *mockRerankModel {
	t.Helper()
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	return &mockRerankModel{block: block, blockAfter: after}
}

// fusedCandidates returns n candidates c00..c(n-1) in fused order and the
// passage text of each, which is "passage cNN".
func fusedCandidates(n int) ([]domain.RankedCandidate, map[string]string) {
	cs := make([]domain.RankedCandidate, n)
	passages := make(map[string]string, n)
	for i := range cs {
		id := fmt.Sprintf("c%02d", i)
		cs[i] = domain.RankedCandidate{ChunkID: id, FusedScore: 1 / float64(61+i), FusedRank: i + 1}
		passages[id] = "passage " + id
	}
	return cs, passages
}

func rerankConfig(window, batch int) domain.EngineConfig {
	cfg := domain.DefaultEngineConfig()
	cfg.RerankWindow = window
	cfg.RerankBatchSize = batch
	return cfg
}

func TestReranker_ScoresAndSorts(t *testing.T) {
	model := &mockRerankModel{scores: map[string]float64{
		"passage c00": 0.2,
		"passage c01": 0.9,
		"passage c02": 0.5,
		"passage c03": 0.5,
	}}
	cs, passages := fusedCandidates(5)
	r := NewReranker(model, rerankConfig(4, 2))

	out := r.Rerank(context.Background(), "q", cs, passages, time.Second)

	assert.Equal(t, []string{"c01", "c02", "c03", "c00", "c04"}, candidateIDs(out.Candidates))
	assert.Equal(t, 4, out.Scored)
	assert.Equal(t, 4, out.Window)
	assert.Empty(t, out.Degradations)
	assert.NoError(t, out.Err)
	assert.Equal(t, 2, model.Calls())
	assert.Nil(t, out.Candidates[4].RerankScore)
	require.NotNil(t, out.Candidates[0].RerankScore)
	assert.Equal(t, 0.9, *out.Candidates[0].RerankScore)
}

func TestReranker_DoesNotMutateInput(t *testing.T) {
	cs, passages := fusedCandidates(3)
	r := NewReranker(&mockRerankModel{scores: map[string]float64{"passage c02": 0.9}}, rerankConfig(3, 8))

	out := r.Rerank(context.Background(), "q", cs, passages, time.Second)

	assert.Equal(t, "c02", out.Candidates[0].ChunkID)
	assert.Equal(t, []string{"c00", "c01", "c02"}, candidateIDs(cs))
	for _, c := range cs {
		assert.Nil(t, c.RerankScore)
	}
}

func TestReranker_WindowLimitsScoring(t *testing.T) {
	model := &mockRerankModel{scores: map[string]float64{"passage c04": 0.99}}
	cs, passages := fusedCandidates(5)

	out := NewReranker(model, rerankConfig(2, 8)).Rerank(context.Background(), "q", cs, passages, time.Second)

	assert.Equal(t, 2, out.Scored)
	assert.Equal(t, []string{"c00", "c01", "c02", "c03", "c04"}, candidateIDs(out.Candidates))
	assert.Nil(t, out.Candidates[4].RerankScore)
}

func TestReranker_NeverReturningModel(t *testing.T) {
	cs, passages := fusedCandidates(10)
	r := NewReranker(blockingModel(t, 0), rerankConfig(10, 8))

	start := time.Now()
	out := r.Rerank(context.Background(), "q", cs, passages, 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 0, out.Scored)
	assert.Equal(t, []domain.Degradation{domain.DegradedRerankTimeout}, out.Degradations)
	assert.ErrorIs(t, out.Err, domain.ErrRerankTimeout)
	assert.Equal(t, candidateIDs(cs), candidateIDs(out.Candidates))
}

func TestReranker_PartialBeforeDeadline(t *testing.T) {
	model := blockingModel(t, 1)
	model.scores = map[string]float64{"passage c00": 0.2, "passage c01": 0.9}
	cs, passages := fusedCandidates(6)
	r := NewReranker(model, rerankConfig(6, 2))

	out := r.Rerank(context.Background(), "q", cs, passages, 50*time.Millisecond)

	assert.Equal(t, 2, out.Scored)
	assert.Equal(t, []string{"c01", "c00", "c02", "c03", "c04", "c05"}, candidateIDs(out.Candidates))
	assert.Equal(t, []domain.Degradation{domain.DegradedRerankTimeout, domain.DegradedRerankPartial}, out.Degradations)
}

func TestReranker_EarlyStop(t *testing.T) {
	cfg := rerankConfig(6, 2)
	cfg.EarlyStopMinScored = 2

	t.Run("decisive leader stops", func(t *testing.T) {
		model := &mockRerankModel{scores: map[string]float64{"passage c00": 0.99, "passage c01": 0.1}}
		cs, passages := fusedCandidates(6)

		out := NewReranker(model, cfg).Rerank(context.Background(), "q", cs, passages, time.Second)

		assert.Equal(t, 1, model.Calls())
		assert.Equal(t, 2, out.Scored)
		assert.Equal(t, []domain.Degradation{domain.DegradedRerankEarlyStop}, out.Degradations)
		assert.NoError(t, out.Err)
	})

	t.Run("close runner-up continues", func(t *testing.T) {
		model := &mockRerankModel{scores: map[string]float64{"passage c00": 0.99, "passage c01": 0.8}}
		cs, passages := fusedCandidates(6)

		out := NewReranker(model, cfg).Rerank(context.Background(), "q", cs, passages, time.Second)

		assert.Equal(t, 3, model.Calls())
		assert.Equal(t, 6, out.Scored)
		assert.Empty(t, out.Degradations)
	})

	t.Run("needs minimum scored", func(t *testing.T) {
		cfg := rerankConfig(6, 2)
		cfg.EarlyStopMinScored = 4
		model := &mockRerankModel{scores: map[string]float64{"passage c00": 0.99}}
		cs, passages := fusedCandidates(6)

		out := NewReranker(model, cfg).Rerank(context.Background(), "q", cs, passages, time.Second)

		assert.Equal(t, 2, model.Calls())
		assert.Equal(t, 4, out.Scored)
	})
}

func TestReranker_ModelFailure(t *testing.T) {
	t.Run("first batch", func(t *testing.T) {
		model := &mockRerankModel{scoreFn: func(int, []string) ([]float64, error) {
			return nil, errors.New("connection refused")
		}}
		cs, passages := fusedCandidates(4)

		out := NewReranker(model, rerankConfig(4, 2)).Rerank(context.Background(), "q", cs, passages, time.Second)

		assert.Equal(t, 0, out.Scored)
		assert.Equal(t, []domain.Degradation{domain.DegradedRerankFailed}, out.Degradations)
		assert.ErrorContains(t, out.Err, "connection refused")
		assert.NotErrorIs(t, out.Err, domain.ErrRerankTimeout)
		assert.Equal(t, candidateIDs(cs), candidateIDs(out.Candidates))
	})

	t.Run("later batch keeps scored prefix", func(t *testing.T) {
		model := &mockRerankModel{scoreFn: func(call int, passages []string) ([]float64, error) {
			if call > 0 {
				return nil, errors.New("overloaded")
			}
			return []float64{0.3, 0.7}, nil
		}}
		cs, passages := fusedCandidates(4)

		out := NewReranker(model, rerankConfig(4, 2)).Rerank(context.Background(), "q", cs, passages, time.Second)

		assert.Equal(t, 2, out.Scored)
		assert.Equal(t, []string{"c01", "c00", "c02", "c03"}, candidateIDs(out.Candidates))
		assert.Equal(t, []domain.Degradation{domain.DegradedRerankFailed, domain.DegradedRerankPartial}, out.Degradations)
	})
}

func TestReranker_InvalidScores(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
	}{
		{"NaN", []float64{0.5, math.NaN()}},
		{"too few", []float64{0.5}},
		{"too many", []float64{0.5, 0.4, 0.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &mockRerankModel{scoreFn: func(int, []string) ([]float64, error) {
				return tt.scores, nil
			}}
			cs, passages := fusedCandidates(2)

			out := NewReranker(model, rerankConfig(2, 2)).Rerank(context.Background(), "q", cs, passages, time.Second)

			assert.Equal(t, 0, out.Scored)
			assert.ErrorIs(t, out.Err, domain.ErrRerankerUnavailable)
			assert.Equal(t, []domain.Degradation{domain.DegradedRerankFailed}, out.Degradations)
		})
	}
}

func TestReranker_NoModel(t *testing.T) {
	r := NewReranker(nil, domain.DefaultEngineConfig())
	cs, passages := fusedCandidates(3)

	out := r.Rerank(context.Background(), "q", cs, passages, time.Second)

	assert.False(t, r.Enabled())
	assert.Equal(t, candidateIDs(cs), candidateIDs(out.Candidates))
	assert.Empty(t, out.Degradations)
	assert.Zero(t, out.Scored)
}

func TestReranker_NoBudget(t *testing.T) {
	model := &mockRerankModel{}
	cs, passages := fusedCandidates(3)

	out := NewReranker(model, domain.DefaultEngineConfig()).Rerank(context.Background(), "q", cs, passages, 0)

	assert.Zero(t, model.Calls())
	assert.Equal(t, []domain.Degradation{domain.DegradedRerankTimeout}, out.Degradations)
}
