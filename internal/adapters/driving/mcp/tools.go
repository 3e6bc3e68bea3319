package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// QueryInput is the input schema for the legal_query tool.
type QueryInput struct {
	Query    string `json:"query" jsonschema:"the legal question in natural language"`
	AsAt     string `json:"as_at,omitempty" jsonschema:"only use text in force on this date, YYYY-MM-DD"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of passages to return (default from server config)"`
	BudgetMS int    `json:"budget_ms,omitempty" jsonschema:"time budget for the query in milliseconds"`
}

// QueryOutput is the output schema for the legal_query tool.
type QueryOutput struct {
	QueryID      string       `json:"query_id"`
	Confidence   string       `json:"confidence"`
	Directive    string       `json:"directive"`
	Reason       string       `json:"reason"`
	TopScore     float64      `json:"top_score"`
	Margin       float64      `json:"margin"`
	Degradations []string     `json:"degradations,omitempty"`
	Passages     []PassageOut `json:"passages"`
	Count        int          `json:"count"`
}

// PassageOut is a single ranked passage.
type PassageOut struct {
	ChunkID        string   `json:"chunk_id"`
	Text           string   `json:"text"`
	SourceType     string   `json:"source_type"`
	EffectiveStart string   `json:"effective_start"`
	EffectiveEnd   string   `json:"effective_end,omitempty"`
	ParentDocID    string   `json:"parent_doc_id,omitempty"`
	Title          string   `json:"title,omitempty"`
	Citation       string   `json:"citation,omitempty"`
	Expandable     bool     `json:"expandable"`
	RerankScore    *float64 `json:"rerank_score,omitempty"`
}

// RefreshMappingInput is the input schema for the refresh_mapping tool.
type RefreshMappingInput struct{}

// RefreshMappingOutput is the output schema for the refresh_mapping tool.
type RefreshMappingOutput struct {
	Version   string `json:"version"`
	Documents int    `json:"documents"`
	Aliases   int    `json:"aliases"`
	Chunks    int    `json:"chunks"`
	Conflicts int    `json:"conflicts"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "legal_query",
		Description: "Retrieve ranked statute and case law passages for a legal question. " +
			"Follow the returned directive before composing an answer.",
	}, s.handleQuery)

	if s.ports.Mapping != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "refresh_mapping",
			Description: "Rebuild the chunk to parent document mapping from the document store",
		}, s.handleRefreshMapping)
	}
}

// handleQuery handles the legal_query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	if input.BudgetMS < 0 {
		return nil, QueryOutput{}, errors.New("budget_ms must not be negative")
	}

	q := domain.QueryContext{
		Text:       input.Query,
		TopK:       input.TopK,
		TimeBudget: time.Duration(input.BudgetMS) * time.Millisecond,
	}
	if input.AsAt != "" {
		asAt, err := domain.ParseDate(input.AsAt)
		if err != nil {
			return nil, QueryOutput{}, err
		}
		q.AsAt = &asAt
	}

	result, err := s.ports.Query.Query(ctx, q)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	return nil, newQueryOutput(result), nil
}

// handleRefreshMapping handles the refresh_mapping tool invocation.
func (s *Server) handleRefreshMapping(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RefreshMappingInput,
) (*mcp.CallToolResult, RefreshMappingOutput, error) {
	stats, err := s.ports.Mapping.Refresh(ctx)
	if err != nil {
		return nil, RefreshMappingOutput{}, err
	}
	return nil, RefreshMappingOutput{
		Version:   stats.Version,
		Documents: stats.Documents,
		Aliases:   stats.Aliases,
		Chunks:    stats.Chunks,
		Conflicts: stats.Conflicts,
	}, nil
}

func newQueryOutput(result *domain.RankedResult) QueryOutput {
	output := QueryOutput{
		QueryID:    result.QueryID,
		Confidence: result.Confidence.String(),
		Directive:  string(result.Directive),
		Reason:     string(result.Decision.Reason),
		TopScore:   result.Decision.TopScore,
		Margin:     result.Decision.Margin,
		Passages:   make([]PassageOut, len(result.Items)),
		Count:      len(result.Items),
	}
	for _, d := range result.Degradations {
		output.Degradations = append(output.Degradations, string(d))
	}

	for i := range result.Items {
		item := &result.Items[i]
		p := PassageOut{
			ChunkID:        item.Chunk.ID,
			Text:           item.Chunk.Text,
			SourceType:     item.Chunk.SourceType.String(),
			EffectiveStart: item.Chunk.EffectiveStart.Format(domain.DateLayout),
			ParentDocID:    item.ParentDocID,
			Expandable:     item.Expandable,
			RerankScore:    item.Candidate.RerankScore,
		}
		if item.Chunk.EffectiveEnd != nil {
			p.EffectiveEnd = item.Chunk.EffectiveEnd.Format(domain.DateLayout)
		}
		if item.Parent != nil {
			p.Title = item.Parent.Title
			p.Citation = item.Parent.Citation
		}
		output.Passages[i] = p
	}

	return output
}
