// Package tei provides a rerank model adapter for Text Embeddings Inference
// servers that host a cross-encoder behind the /rerank endpoint.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure RerankModel implements the interface.
var _ driven.RerankModel = (*RerankModel)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultModel   = "BAAI/bge-reranker-base"
	DefaultTimeout = 5 * time.Second
)

// Config holds configuration for the TEI rerank model.
type Config struct {
	// BaseURL is the TEI server URL (default: http://localhost:8080).
	BaseURL string

	// Model is reported in logs. TEI serves exactly one model per server.
	Model string

	// Timeout bounds one HTTP request (default: 5s). The engine applies its
	// own, usually shorter, rerank budget on top.
	Timeout time.Duration

	// RequestsPerSecond throttles requests. Zero means unlimited.
	RequestsPerSecond float64
}

// RerankModel scores passages with a TEI-hosted cross-encoder.
type RerankModel struct {
	client  *http.Client
	baseURL string
	model   string
	limiter *rate.Limiter
}

// rerankRequest is the TEI /rerank request format.
type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

// rerankResponse is a single TEI /rerank result.
type rerankResponse struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewRerankModel creates a new TEI rerank model client.
func NewRerankModel(cfg Config) *RerankModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	m := &RerankModel{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
	if cfg.RequestsPerSecond > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return m
}

// Score returns one normalised relevance score per passage, aligned with passages.
// TEI returns results sorted by score; they are put back in input order.
func (m *RerankModel) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("tei: rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(rerankRequest{
		Query:    query,
		Texts:    passages,
		Truncate: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("tei error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("tei error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var results []rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	scores := make([]float64, len(passages))
	seen := make([]bool, len(passages))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(passages) {
			return nil, fmt.Errorf("tei: result index %d out of range", r.Index)
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("tei: no score for passage %d", i)
		}
	}
	return scores, nil
}

// ModelName returns the configured model name.
func (m *RerankModel) ModelName() string {
	return m.model
}

// Ping checks the /health endpoint.
func (m *RerankModel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("tei: failed to create ping request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("tei: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tei: health returned status %d", resp.StatusCode)
	}
	return nil
}
