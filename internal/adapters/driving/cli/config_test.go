package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func TestConfigCmd_HasSubcommands(t *testing.T) {
	commands := configCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	for _, name := range []string{"show", "init", "set", "keys", "embedding", "reranker"} {
		assert.Contains(t, commandNames, name)
	}
}

func TestConfigShowCmd_Defaults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "RRF k: 60")
	assert.Contains(t, out, "Rerank window: 50 (batches of 8)")
	assert.Contains(t, out, "Rerank budget: 800ms")
	assert.Contains(t, out, "high >= 0.80 with margin >= 0.10, medium >= 0.50")
	assert.Contains(t, out, "Term overlap (built-in)")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestConfigSetCmd_UpdatesValue(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "set", "ranking.rerank_budget", "500ms"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ranking.rerank_budget = 500ms")

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, "500ms", settings.Ranking.RerankBudget.String())
}

func TestConfigSetCmd_UnknownKey(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"config", "set", "ranking.nope", "1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, buf.String(), "juris config keys")
}

func TestConfigSetCmd_InvalidValueKeepsPrevious(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"config", "set", "ranking.medium_threshold", "0.9"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.InDelta(t, domain.DefaultMediumThreshold, settings.Ranking.MediumThreshold, 1e-9)
}

func TestConfigSetCmd_RequiresTwoArgs(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"config", "set", "ranking.rrf_k"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestConfigKeysCmd_ListsKeys(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "keys"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ranking.rrf_k\n")
	assert.Contains(t, buf.String(), "reranker.provider\n")
	assert.Contains(t, buf.String(), "store.data_dir\n")
}

func TestConfigInitCmd_KeepsProviders(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, settingsService.SetValue("ranking.rrf_k", "30"))
	require.NoError(t, settingsService.SetValue("reranker.provider", "none"))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "init"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRRFK, settings.Ranking.RRFK)
	assert.Equal(t, domain.AIProvider(""), settings.Reranker.Provider)
}

func TestConfigRerankerCmd_Overlap(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	require.NoError(t, settingsService.SetValue("reranker.provider", "none"))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "reranker", "overlap"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Validating configuration... OK")
	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOverlap, settings.Reranker.Provider)
}

func TestConfigEmbeddingCmd_RequiresAPIKey(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"config", "embedding", "openai"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--api-key")
}

func TestConfigEmbeddingCmd_RejectsRerankProvider(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"config", "embedding", "tei"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support embeddings")
}

func TestConfigCmd_ErrorsWithoutService(t *testing.T) {
	old := settingsService
	settingsService = nil
	defer func() { settingsService = old }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"config", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk-1...cdef", maskAPIKey("sk-1234567890abcdef"))
}
