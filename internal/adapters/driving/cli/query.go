package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/juris/internal/core/domain"
)

var (
	queryAsAt   string
	queryTopK   int
	queryBudget time.Duration
	queryJSON   bool
)

// snippetLength bounds the passage text printed per result.
const snippetLength = 240

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Answer a legal query",
	Long: `Runs the hybrid retrieval pipeline for a legal question.
Combines lexical (FTS5) and dense (vector) retrieval with reciprocal rank
fusion, reranks the top of the list and labels the result with a confidence.

Use --as-at to only consider text in force on a given date.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryAsAt, "as-at", "", "only text in force on this date (YYYY-MM-DD)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "n", 0, "number of results (default from config)")
	queryCmd.Flags().DurationVar(&queryBudget, "budget", 0, "time budget for the whole query (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	q := domain.QueryContext{
		Text:       args[0],
		TopK:       queryTopK,
		TimeBudget: queryBudget,
	}
	if queryAsAt != "" {
		asAt, err := domain.ParseDate(queryAsAt)
		if err != nil {
			return err
		}
		q.AsAt = &asAt
	}

	result, err := queryService.Query(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, result)
	}
	return outputQueryTable(cmd, result)
}

// queryResultJSON is the --json representation of a ranked result.
type queryResultJSON struct {
	QueryID        string           `json:"query_id"`
	Confidence     string           `json:"confidence"`
	Directive      string           `json:"directive"`
	Reason         string           `json:"reason"`
	TopScore       float64          `json:"top_score"`
	Margin         float64          `json:"margin"`
	Degradations   []string         `json:"degradations,omitempty"`
	MappingVersion string           `json:"mapping_version,omitempty"`
	ElapsedMS      int64            `json:"elapsed_ms"`
	Items          []resultItemJSON `json:"items"`
}

type resultItemJSON struct {
	ChunkID        string   `json:"chunk_id"`
	Text           string   `json:"text"`
	SourceType     string   `json:"source_type"`
	EffectiveStart string   `json:"effective_start"`
	EffectiveEnd   string   `json:"effective_end,omitempty"`
	ParentDocID    string   `json:"parent_doc_id,omitempty"`
	ParentTitle    string   `json:"parent_title,omitempty"`
	Citation       string   `json:"citation,omitempty"`
	Expandable     bool     `json:"expandable"`
	FusedScore     float64  `json:"fused_score"`
	FusedRank      int      `json:"fused_rank"`
	RerankScore    *float64 `json:"rerank_score,omitempty"`
}

func newQueryResultJSON(result *domain.RankedResult) queryResultJSON {
	out := queryResultJSON{
		QueryID:        result.QueryID,
		Confidence:     result.Confidence.String(),
		Directive:      string(result.Directive),
		Reason:         string(result.Decision.Reason),
		TopScore:       result.Decision.TopScore,
		Margin:         result.Decision.Margin,
		MappingVersion: result.MappingVersion,
		ElapsedMS:      result.Elapsed.Milliseconds(),
		Items:          make([]resultItemJSON, len(result.Items)),
	}
	for _, d := range result.Degradations {
		out.Degradations = append(out.Degradations, string(d))
	}

	for i := range result.Items {
		item := &result.Items[i]
		j := resultItemJSON{
			ChunkID:        item.Chunk.ID,
			Text:           item.Chunk.Text,
			SourceType:     item.Chunk.SourceType.String(),
			EffectiveStart: item.Chunk.EffectiveStart.Format(domain.DateLayout),
			ParentDocID:    item.ParentDocID,
			Expandable:     item.Expandable,
			FusedScore:     item.Candidate.FusedScore,
			FusedRank:      item.Candidate.FusedRank,
			RerankScore:    item.Candidate.RerankScore,
		}
		if item.Chunk.EffectiveEnd != nil {
			j.EffectiveEnd = item.Chunk.EffectiveEnd.Format(domain.DateLayout)
		}
		if item.Parent != nil {
			j.ParentTitle = item.Parent.Title
			j.Citation = item.Parent.Citation
		}
		out.Items[i] = j
	}
	return out
}

func outputQueryJSON(cmd *cobra.Command, result *domain.RankedResult) error {
	data, err := json.MarshalIndent(newQueryResultJSON(result), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, result *domain.RankedResult) error {
	cmd.Printf("Confidence: %s (%s)\n", result.Confidence, result.Directive)
	cmd.Printf("  top %.2f, margin %.2f, %s\n", result.Decision.TopScore, result.Decision.Margin, result.Decision.Reason)
	if len(result.Degradations) > 0 {
		names := make([]string, len(result.Degradations))
		for i, d := range result.Degradations {
			names[i] = string(d)
		}
		cmd.Printf("Degraded: %s\n", strings.Join(names, ", "))
	}
	cmd.Println()

	if len(result.Items) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range result.Items {
		item := &result.Items[i]

		// Format: [N] Citation - Title (Score)
		heading := item.Chunk.ID
		if item.Parent != nil {
			heading = item.Parent.Title
			if item.Parent.Citation != "" {
				heading = item.Parent.Citation
			}
		}

		score := item.Candidate.FusedScore
		if item.Candidate.Reranked() {
			score = *item.Candidate.RerankScore
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, heading, score)
		cmd.Printf("      %s, in force %s\n", item.Chunk.SourceType, effectivePeriod(&item.Chunk))
		if !item.Expandable {
			cmd.Println("      Parent: unverified")
		}
		if snippet := truncate(item.Chunk.Text, snippetLength); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}

func effectivePeriod(c *domain.Chunk) string {
	start := c.EffectiveStart.Format(domain.DateLayout)
	if c.EffectiveEnd == nil {
		return "from " + start
	}
	return start + " to " + c.EffectiveEnd.Format(domain.DateLayout)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
