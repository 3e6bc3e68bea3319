package driven

import "github.com/custodia-labs/juris/internal/core/domain"

// AIConfigValidator validates model provider configurations.
// Implementations verify that configurations are valid by testing connectivity
// to the underlying services.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateReranker validates a reranker configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateReranker(config *domain.RerankerSettings) error
}
