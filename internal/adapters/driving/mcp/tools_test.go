package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

func rankedResult() *domain.RankedResult {
	end := time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC)
	score := 0.91
	return &domain.RankedResult{
		QueryID:      "q-1",
		Confidence:   domain.ConfidenceHigh,
		Directive:    domain.DirectiveCompose,
		Decision:     domain.GateDecision{TopScore: 0.91, Margin: 0.4, Reason: domain.ReasonStrongLeader},
		Degradations: []domain.Degradation{domain.DegradedRerankPartial},
		Items: []domain.ResultItem{
			{
				Chunk: domain.Chunk{
					ID:             "ert-s86-2010",
					Text:           "An employer shall give not less than one week's notice.",
					SourceType:     domain.SourceStatute,
					EffectiveStart: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
					EffectiveEnd:   &end,
				},
				ParentDocID: "0006d13eb254abcd",
				Parent: &domain.ParentDocument{
					ID:       "0006d13eb254abcd",
					Title:    "Employment Rights Act 1996",
					Citation: "ERA 1996, s.86",
				},
				Expandable: true,
				Candidate:  domain.RankedCandidate{ChunkID: "ert-s86-2010", RerankScore: &score},
			},
			{
				Chunk: domain.Chunk{
					ID:             "orphan",
					Text:           "Unattributed passage.",
					SourceType:     domain.SourceJudgment,
					EffectiveStart: time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC),
				},
				Candidate: domain.RankedCandidate{ChunkID: "orphan"},
			},
		},
	}
}

func TestServer_handleQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked passages with directive", func(t *testing.T) {
		mockQuery := &mockQueryService{result: rankedResult()}
		server, err := NewServer(&Ports{Query: mockQuery})
		require.NoError(t, err)

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Query: "notice period", TopK: 5})

		require.NoError(t, err)
		assert.Equal(t, "q-1", output.QueryID)
		assert.Equal(t, "high", output.Confidence)
		assert.Equal(t, "compose", output.Directive)
		assert.Equal(t, "strong_leader", output.Reason)
		assert.Equal(t, []string{"rerank_partial"}, output.Degradations)
		require.Equal(t, 2, output.Count)

		first := output.Passages[0]
		assert.Equal(t, "ert-s86-2010", first.ChunkID)
		assert.Equal(t, "statute", first.SourceType)
		assert.Equal(t, "2010-01-01", first.EffectiveStart)
		assert.Equal(t, "2015-12-31", first.EffectiveEnd)
		assert.Equal(t, "0006d13eb254abcd", first.ParentDocID)
		assert.Equal(t, "ERA 1996, s.86", first.Citation)
		assert.True(t, first.Expandable)
		require.NotNil(t, first.RerankScore)
		assert.InDelta(t, 0.91, *first.RerankScore, 1e-9)

		second := output.Passages[1]
		assert.False(t, second.Expandable)
		assert.Empty(t, second.EffectiveEnd)
		assert.Empty(t, second.ParentDocID)
		assert.Nil(t, second.RerankScore)

		assert.Equal(t, "notice period", mockQuery.got.Text)
		assert.Equal(t, 5, mockQuery.got.TopK)
		assert.Nil(t, mockQuery.got.AsAt)
	})

	t.Run("passes as_at and budget", func(t *testing.T) {
		mockQuery := &mockQueryService{}
		server, err := NewServer(&Ports{Query: mockQuery})
		require.NoError(t, err)

		_, output, err := server.handleQuery(ctx, nil, QueryInput{Query: "q", AsAt: "2012-06-01", BudgetMS: 250})

		require.NoError(t, err)
		assert.Equal(t, "clarify", output.Directive)
		assert.Equal(t, 0, output.Count)
		require.NotNil(t, mockQuery.got.AsAt)
		assert.Equal(t, "2012-06-01", mockQuery.got.AsAt.Format(domain.DateLayout))
		assert.Equal(t, 250*time.Millisecond, mockQuery.got.TimeBudget)
	})

	t.Run("rejects malformed as_at", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{}})
		require.NoError(t, err)

		_, _, err = server.handleQuery(ctx, nil, QueryInput{Query: "q", AsAt: "01/06/2012"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("rejects negative budget", func(t *testing.T) {
		server, err := NewServer(&Ports{Query: &mockQueryService{}})
		require.NoError(t, err)

		_, _, err = server.handleQuery(ctx, nil, QueryInput{Query: "q", BudgetMS: -1})

		assert.Error(t, err)
	})

	t.Run("returns error on query failure", func(t *testing.T) {
		mockQuery := &mockQueryService{err: domain.ErrRetrievalUnavailable}
		server, err := NewServer(&Ports{Query: mockQuery})
		require.NoError(t, err)

		_, _, err = server.handleQuery(ctx, nil, QueryInput{Query: "q"})

		assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
	})
}

func TestServer_handleRefreshMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("returns rebuilt stats", func(t *testing.T) {
		mockMapping := &mockMappingService{stats: driving.MappingStats{
			Version: "v7", Documents: 2, Aliases: 1, Chunks: 3, Conflicts: 1, Built: true,
		}}
		server, err := NewServer(&Ports{Query: &mockQueryService{}, Mapping: mockMapping})
		require.NoError(t, err)

		_, output, err := server.handleRefreshMapping(ctx, nil, RefreshMappingInput{})

		require.NoError(t, err)
		assert.Equal(t, 1, mockMapping.refreshed)
		assert.Equal(t, RefreshMappingOutput{Version: "v7", Documents: 2, Aliases: 1, Chunks: 3, Conflicts: 1}, output)
	})

	t.Run("returns error on refresh failure", func(t *testing.T) {
		mockMapping := &mockMappingService{err: errors.New("store offline")}
		server, err := NewServer(&Ports{Query: &mockQueryService{}, Mapping: mockMapping})
		require.NoError(t, err)

		_, _, err = server.handleRefreshMapping(ctx, nil, RefreshMappingInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "store offline")
	})
}
