package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

func TestNewConfigValidator(t *testing.T) {
	validator := NewConfigValidator()

	require.NotNil(t, validator)
}

func TestConfigValidator_ImplementsInterface(t *testing.T) {
	var _ driven.AIConfigValidator = (*ConfigValidator)(nil)
}

func TestConfigValidator_ValidateEmbedding_NilConfig(t *testing.T) {
	// nil config returns nil, there is nothing to validate
	assert.NoError(t, NewConfigValidator().ValidateEmbedding(nil))
}

func TestConfigValidator_ValidateEmbedding_UnconfiguredProvider(t *testing.T) {
	config := &domain.EmbeddingSettings{
		Provider: "",
		Model:    "test-model",
	}

	assert.NoError(t, NewConfigValidator().ValidateEmbedding(config))
}

func TestConfigValidator_ValidateEmbedding_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := NewConfigValidator().ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})

	assert.Error(t, err)
}

func TestConfigValidator_ValidateReranker_NilConfig(t *testing.T) {
	assert.NoError(t, NewConfigValidator().ValidateReranker(nil))
}

func TestConfigValidator_ValidateReranker_Overlap(t *testing.T) {
	config := &domain.RerankerSettings{Provider: domain.AIProviderOverlap}

	assert.NoError(t, NewConfigValidator().ValidateReranker(config))
}
