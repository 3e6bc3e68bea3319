// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/juris/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/juris/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/juris/internal/adapters/driven/rerank/overlap"
	"github.com/custodia-labs/juris/internal/adapters/driven/rerank/tei"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'juris config set embedding.provider' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'juris config show' to check",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateRerankModel creates a rerank model and validates connectivity.
// Returns the model if successful, or an error with guidance.
func CreateAndValidateRerankModel(settings *domain.RerankerSettings) (driven.RerankModel, error) {
	model, err := CreateRerankModel(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'juris config set reranker.provider' to fix",
			domain.ErrRerankerUnavailable, err)
	}
	if model == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := model.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'juris config show' to check",
			domain.ErrRerankerUnavailable, err)
	}

	return model, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// This is intended for use by 'juris config set' to reject unreachable providers.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateRerankerConfig validates a reranker configuration by creating a model and pinging it.
func ValidateRerankerConfig(settings *domain.RerankerSettings) error {
	model, err := CreateRerankModel(settings)
	if err != nil {
		return err
	}
	if model == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return model.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateRerankModel creates the appropriate rerank model based on settings.
// Returns nil if the provider is not configured.
func CreateRerankModel(settings *domain.RerankerSettings) (driven.RerankModel, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderTEI:
		return tei.NewRerankModel(tei.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			RequestsPerSecond: settings.RequestsPerSecond,
		}), nil

	case domain.AIProviderOverlap:
		return overlap.NewRerankModel(), nil

	default:
		return nil, fmt.Errorf("unsupported rerank provider: %s", settings.Provider)
	}
}

// embeddingDimensions prefers the configured size, then the model catalogue.
func embeddingDimensions(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := embeddingDimensions(settings)
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        dimensions,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        embeddingDimensions(settings),
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}
