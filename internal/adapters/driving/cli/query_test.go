package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func resetQueryFlags() {
	queryAsAt = ""
	queryTopK = 0
	queryBudget = 0
	queryJSON = false
}

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [text]", queryCmd.Use)
}

func TestQueryCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestQueryCmd_HasFlags(t *testing.T) {
	flag := queryCmd.Flags().Lookup("top-k")
	require.NotNil(t, flag, "top-k flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)

	assert.NotNil(t, queryCmd.Flags().Lookup("as-at"))
	assert.NotNil(t, queryCmd.Flags().Lookup("budget"))
	assert.NotNil(t, queryCmd.Flags().Lookup("json"))
}

func TestQueryCmd_ErrorsWithoutService(t *testing.T) {
	old := queryService
	queryService = nil
	defer func() { queryService = old }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "notice period"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestQueryCmd_PrintsResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "notice period for dismissal"})
	defer func() {
		rootCmd.SetArgs(nil)
		resetQueryFlags()
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Confidence: high (compose)")
	assert.Contains(t, out, "strong_leader")
	assert.Contains(t, out, "[1] ERA 1996, s.86 (0.91)")
	assert.Contains(t, out, "statute, in force from 2016-01-01")
	assert.Contains(t, out, "one week's notice")
	assert.Equal(t, "notice period for dismissal", testQueryService.got.Text)
	assert.Nil(t, testQueryService.got.AsAt)
}

func TestQueryCmd_PassesFlags(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "--as-at", "2012-06-01", "-n", "5", "--budget", "1500ms", "notice"})
	defer func() {
		rootCmd.SetArgs(nil)
		resetQueryFlags()
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	got := testQueryService.got
	require.NotNil(t, got.AsAt)
	assert.Equal(t, time.Date(2012, 6, 1, 0, 0, 0, 0, time.UTC), *got.AsAt)
	assert.Equal(t, 5, got.TopK)
	assert.Equal(t, 1500*time.Millisecond, got.TimeBudget)
}

func TestQueryCmd_InvalidDate(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "--as-at", "June 2012", "notice"})
	defer func() {
		rootCmd.SetArgs(nil)
		resetQueryFlags()
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testQueryService.err = domain.ErrRetrievalUnavailable

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "notice"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
	assert.Contains(t, err.Error(), "query failed")
}

func TestQueryCmd_EmptyResult(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	testQueryService.result = &domain.RankedResult{
		Confidence:   domain.ConfidenceLow,
		Directive:    domain.DirectiveClarify,
		Decision:     domain.GateDecision{Reason: domain.ReasonEmpty},
		Degradations: []domain.Degradation{domain.DegradedDense, domain.DegradedEmbedding},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "notice"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Confidence: low (clarify)")
	assert.Contains(t, buf.String(), "Degraded: dense_unavailable, embedding_unavailable")
	assert.Contains(t, buf.String(), "No results found.")
}

func TestQueryCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "--json", "notice"})
	defer func() {
		rootCmd.SetArgs(nil)
		resetQueryFlags()
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	var out queryResultJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "q-1", out.QueryID)
	assert.Equal(t, "high", out.Confidence)
	assert.Equal(t, "compose", out.Directive)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "ert-s86-2016", out.Items[0].ChunkID)
	assert.Equal(t, "0006d13eb254abcd", out.Items[0].ParentDocID)
	assert.Equal(t, "Employment Rights Act 1996", out.Items[0].ParentTitle)
	assert.Equal(t, "2016-01-01", out.Items[0].EffectiveStart)
	assert.Empty(t, out.Items[0].EffectiveEnd)
	require.NotNil(t, out.Items[0].RerankScore)
	assert.InDelta(t, 0.91, *out.Items[0].RerankScore, 1e-9)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short text", truncate("short   text\n", 20))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "§§§...", truncate("§§§§", 3))
}

func TestEffectivePeriod(t *testing.T) {
	end := time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC)
	c := domain.Chunk{EffectiveStart: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), EffectiveEnd: &end}
	assert.Equal(t, "2010-01-01 to 2015-12-31", effectivePeriod(&c))

	c.EffectiveEnd = nil
	assert.Equal(t, "from 2010-01-01", effectivePeriod(&c))
}
