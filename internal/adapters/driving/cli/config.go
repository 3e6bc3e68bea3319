package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/juris/internal/core/domain"
)

var (
	configModel   string
	configAPIKey  string
	configBaseURL string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change ranking constants, the corpus store location and the
embedding and rerank providers.

Settings are stored in config.toml in the configuration directory.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long:  `Write every setting with its default value, keeping configured providers.`,
	RunE:  runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a single configuration value. Run 'juris config keys' to list keys.

Examples:
  juris config set ranking.rerank_budget 500ms
  juris config set ranking.high_threshold 0.85
  juris config set reranker.provider none`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	RunE:  runConfigKeys,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding [provider]",
	Short: "Configure the query embedding provider",
	Long: `Configure the provider used to embed query text for dense retrieval.

Providers: ollama, openai.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigEmbedding,
}

var configRerankerCmd = &cobra.Command{
	Use:   "reranker [provider]",
	Short: "Configure the rerank model",
	Long: `Configure the cross-encoder used to rerank fused candidates.

Providers: tei, overlap.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigReranker,
}

func init() {
	configEmbeddingCmd.Flags().StringVar(&configModel, "model", "", "model name (default per provider)")
	configEmbeddingCmd.Flags().StringVar(&configAPIKey, "api-key", "", "API key for cloud providers")
	configRerankerCmd.Flags().StringVar(&configModel, "model", "", "model name (default per provider)")
	configRerankerCmd.Flags().StringVar(&configBaseURL, "base-url", "", "rerank server URL")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configRerankerCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	r := settings.Ranking
	cmd.Println("[Ranking]")
	cmd.Printf("  RRF k: %d\n", r.RRFK)
	cmd.Printf("  Fusion width: %d\n", r.FusionWidth)
	cmd.Printf("  Rerank window: %d (batches of %d)\n", r.RerankWindow, r.RerankBatchSize)
	cmd.Printf("  Rerank budget: %s\n", r.RerankBudget)
	cmd.Printf("  Query budget: %s\n", r.DefaultTimeBudget)
	cmd.Printf("  Temporal widening: x%d\n", r.TemporalWidening)
	cmd.Printf("  Confidence: high >= %.2f with margin >= %.2f, medium >= %.2f\n",
		r.HighThreshold, r.MarginThreshold, r.MediumThreshold)
	cmd.Printf("  Early stop: leader >= %.2f, margin >= %.2f, after %d scored\n",
		r.EarlyStopThreshold, r.EarlyStopMargin, r.EarlyStopMinScored)
	cmd.Printf("  Top k: %d (max %d)\n", r.DefaultTopK, r.MaxTopK)
	cmd.Printf("  Mapping heartbeat: %s\n", r.MappingHeartbeat)
	cmd.Println()

	cmd.Println("[Store]")
	dir := settings.Store.DataDir
	if dir == "" {
		dir = "(default)"
	}
	cmd.Printf("  Data dir: %s\n", dir)
	cmd.Printf("  Watch: %t\n", settings.Store.Watch)
	cmd.Println()

	e := settings.Embedding
	cmd.Println("[Embedding]")
	if e.Provider == "" {
		cmd.Println("  Provider: (disabled)")
	} else {
		cmd.Printf("  Provider: %s\n", e.Provider.Description())
		cmd.Printf("  Model: %s\n", e.Model)
		if e.Provider.IsLocal() {
			cmd.Printf("  Base URL: %s\n", e.BaseURL)
		}
		if e.Provider.RequiresAPIKey() {
			if e.APIKey != "" {
				cmd.Printf("  API Key: %s\n", maskAPIKey(e.APIKey))
			} else {
				cmd.Printf("  API Key: (not set)\n")
			}
		}
		cmd.Printf("  Dimensions: %d\n", e.Dimensions)
		cmd.Printf("  Status: %s\n", configuredStatus(e.IsConfigured()))
	}
	cmd.Println()

	rr := settings.Reranker
	cmd.Println("[Reranker]")
	if rr.Provider == "" {
		cmd.Println("  Provider: (disabled)")
	} else {
		cmd.Printf("  Provider: %s\n", rr.Provider.Description())
		if rr.Provider == domain.AIProviderTEI {
			cmd.Printf("  Model: %s\n", rr.Model)
			cmd.Printf("  Base URL: %s\n", rr.BaseURL)
			cmd.Printf("  Timeout: %s\n", rr.Timeout)
		}
		cmd.Printf("  Status: %s\n", configuredStatus(rr.IsConfigured()))
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'juris config set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	current, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	settings := settingsService.GetDefaults()
	settings.Store = current.Store
	settings.Embedding = current.Embedding
	settings.Reranker = current.Reranker

	if err := settingsService.Save(&settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Println("Configuration written with default ranking settings.")
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.SetValue(key, value); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			cmd.Println("Run 'juris config keys' to list valid keys.")
		}
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(args[0])
	if provider.RequiresAPIKey() && configAPIKey == "" {
		return fmt.Errorf("provider %s requires --api-key", provider)
	}

	if err := settingsService.SetEmbeddingProvider(provider, configModel, configAPIKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s\n", provider.Description())
	return nil
}

func runConfigReranker(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(args[0])
	if err := settingsService.SetRerankProvider(provider, configModel, configBaseURL); err != nil {
		return fmt.Errorf("failed to configure rerank model: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateRerankerConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("reranker configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Rerank model configured: %s\n", provider.Description())
	return nil
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
