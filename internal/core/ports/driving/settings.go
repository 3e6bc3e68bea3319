package driving

import "github.com/custodia-labs/juris/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, defaults filled in.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetValue parses raw according to the type of key and stores it.
	// Unknown keys are rejected.
	SetValue(key, raw string) error

	// SetEmbeddingProvider configures the query embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetRerankProvider configures the rerank model provider.
	SetRerankProvider(provider domain.AIProvider, model, baseURL string) error

	// Validate checks the stored settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Keys returns every recognised settings key, sorted.
	Keys() []string

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateRerankerConfig validates the current reranker configuration by pinging the provider.
	ValidateRerankerConfig() error
}
