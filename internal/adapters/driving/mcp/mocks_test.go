package mcp

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	result *domain.RankedResult
	err    error
	got    domain.QueryContext
}

func (m *mockQueryService) Query(_ context.Context, q domain.QueryContext) (*domain.RankedResult, error) {
	m.got = q
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.RankedResult{
			Confidence: domain.ConfidenceLow,
			Directive:  domain.DirectiveClarify,
			Decision:   domain.GateDecision{Reason: domain.ReasonEmpty},
		}, nil
	}
	return m.result, nil
}

// mockMappingService is a mock implementation of driving.MappingService.
type mockMappingService struct {
	stats     driving.MappingStats
	err       error
	refreshed int
}

func (m *mockMappingService) Refresh(_ context.Context) (driving.MappingStats, error) {
	m.refreshed++
	return m.stats, m.err
}

func (m *mockMappingService) Stats() driving.MappingStats {
	return m.stats
}
