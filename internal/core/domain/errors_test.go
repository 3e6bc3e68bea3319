package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all domain errors are defined
func TestErrors_Existence(t *testing.T) {
	all := []error{
		ErrNotFound, ErrInvalidInput, ErrInvalidQuery, ErrInvalidConfig,
		ErrIndexUnavailable, ErrRetrievalUnavailable, ErrEmbeddingUnavailable,
		ErrRerankTimeout, ErrRerankerUnavailable,
		ErrParentMappingMiss, ErrStaleMapping, ErrMappingNotBuilt,
	}
	for _, err := range all {
		require.Error(t, err)
		assert.NotEmpty(t, err.Error())
	}
}

func TestErrors_Uniqueness(t *testing.T) {
	all := []error{
		ErrNotFound, ErrInvalidInput, ErrInvalidQuery, ErrInvalidConfig,
		ErrIndexUnavailable, ErrRetrievalUnavailable, ErrEmbeddingUnavailable,
		ErrRerankTimeout, ErrRerankerUnavailable,
		ErrParentMappingMiss, ErrStaleMapping, ErrMappingNotBuilt,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

func TestErrors_WithWrapping(t *testing.T) {
	wrapped := fmt.Errorf("resolving chunk c1: %w", ErrParentMappingMiss)
	assert.ErrorIs(t, wrapped, ErrParentMappingMiss)
	assert.Contains(t, wrapped.Error(), "parent mapping miss")
}

func TestIndexUnavailableError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewIndexUnavailableError("dense", cause)

	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dense index unavailable: connection refused", err.Error())

	var target *IndexUnavailableError
	require.True(t, errors.As(fmt.Errorf("query: %w", err), &target))
	assert.Equal(t, "dense", target.Index)

	assert.Equal(t, "lexical index unavailable", NewIndexUnavailableError("lexical", nil).Error())
}
