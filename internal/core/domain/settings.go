package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a model service provider for embeddings or reranking.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI embeddings API or a compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderTEI is a Text Embeddings Inference server exposing /rerank.
	AIProviderTEI AIProvider = "tei"

	// AIProviderOverlap is the built-in lexical overlap scorer. It needs no service.
	AIProviderOverlap AIProvider = "overlap"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderTEI, AIProviderOverlap:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs on the local machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderTEI || p == AIProviderOverlap
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderTEI:
		return "Text Embeddings Inference (cross-encoder)"
	case AIProviderOverlap:
		return "Term overlap (built-in)"
	default:
		return unknownDescription
	}
}

// StoreSettings locates the corpus database.
type StoreSettings struct {
	// DataDir holds corpus.db. Empty means ~/.juris/data.
	DataDir string

	// Watch enables the file watcher that triggers mapping staleness checks.
	Watch bool
}

// EmbeddingSettings holds query embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider. Empty disables query embedding.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size. It must match the stored vectors.
	Dimensions int

	// RequestsPerSecond throttles calls to the provider. Zero means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderOllama && e.Provider != AIProviderOpenAI {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// RerankerSettings holds rerank model configuration.
type RerankerSettings struct {
	// Provider is the rerank model provider. Empty disables reranking.
	Provider AIProvider

	// Model is the cross-encoder model name, informational for TEI.
	Model string

	// BaseURL is the TEI endpoint.
	BaseURL string

	// RequestsPerSecond throttles calls to the provider. Zero means unlimited.
	RequestsPerSecond float64

	// Timeout bounds a single HTTP call to the provider.
	Timeout time.Duration
}

// IsConfigured returns true if a rerank model is set up.
func (r RerankerSettings) IsConfigured() bool {
	switch r.Provider {
	case AIProviderOverlap:
		return true
	case AIProviderTEI:
		return r.BaseURL != ""
	default:
		return false
	}
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Ranking holds the engine constants and thresholds.
	Ranking EngineConfig

	// Store locates the corpus database.
	Store StoreSettings

	// Embedding holds query embedding settings.
	Embedding EmbeddingSettings

	// Reranker holds rerank model settings.
	Reranker RerankerSettings
}

// Validate checks the settings for internal consistency.
func (s *AppSettings) Validate() error {
	if err := s.Ranking.Validate(); err != nil {
		return err
	}
	if s.Embedding.Provider != "" && !s.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not fully configured",
			ErrInvalidConfig, s.Embedding.Provider)
	}
	if s.Embedding.Dimensions < 0 {
		return fmt.Errorf("%w: embedding dimensions must not be negative", ErrInvalidConfig)
	}
	if s.Reranker.Provider != "" && !s.Reranker.IsConfigured() {
		return fmt.Errorf("%w: reranker provider %q is not fully configured",
			ErrInvalidConfig, s.Reranker.Provider)
	}
	if s.Embedding.RequestsPerSecond < 0 || s.Reranker.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// DefaultAppSettings returns settings with sensible defaults.
// Query embedding is left unconfigured; the built-in overlap scorer reranks
// so the confidence gate has scores to work with out of the box.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Ranking: DefaultEngineConfig(),
		Store: StoreSettings{
			Watch: true,
		},
		Embedding: EmbeddingSettings{
			Dimensions: 768, // nomic-embed-text default
		},
		Reranker: RerankerSettings{
			Provider: AIProviderOverlap,
			Timeout:  5 * time.Second,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllRerankProviders returns providers that can score passages.
func AllRerankProviders() []AIProvider {
	return []AIProvider{
		AIProviderTEI,
		AIProviderOverlap,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultRerankModels returns default models for each rerank provider.
func DefaultRerankModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderTEI:     "BAAI/bge-reranker-base",
		AIProviderOverlap: "term-overlap",
	}
}

// DefaultBaseURLs returns the endpoint used when none is configured.
func DefaultBaseURLs() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "http://localhost:11434",
		AIProviderTEI:    "http://localhost:8080",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
