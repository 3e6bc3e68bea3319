package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyRRFK               = "ranking.rrf_k"
	keyFusionWidth        = "ranking.fusion_width"
	keyRerankWindow       = "ranking.rerank_window"
	keyRerankBatchSize    = "ranking.rerank_batch_size"
	keyRerankBudget       = "ranking.rerank_budget"
	keyTimeBudget         = "ranking.time_budget"
	keyTemporalWidening   = "ranking.temporal_widening"
	keyHighThreshold      = "ranking.high_threshold"
	keyMarginThreshold    = "ranking.margin_threshold"
	keyMediumThreshold    = "ranking.medium_threshold"
	keyEarlyStopThreshold = "ranking.early_stop_threshold"
	keyEarlyStopMargin    = "ranking.early_stop_margin"
	keyEarlyStopMinScored = "ranking.early_stop_min_scored"
	keyDefaultTopK        = "ranking.default_top_k"
	keyMaxTopK            = "ranking.max_top_k"
	keyMappingHeartbeat   = "ranking.mapping_heartbeat"
	keyExpandConcurrency  = "ranking.expand_concurrency"
	keyStopWords          = "ranking.stop_words"
	keyStoreDataDir       = "store.data_dir"
	keyStoreWatch         = "store.watch"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDimensions    = "embedding.dimensions"
	keyEmbedRate          = "embedding.requests_per_second"
	keyRerankProvider     = "reranker.provider"
	keyRerankModel        = "reranker.model"
	keyRerankBaseURL      = "reranker.base_url"
	keyRerankRate         = "reranker.requests_per_second"
	keyRerankTimeout      = "reranker.timeout"
)

// providerNone is stored to switch a provider off explicitly.
const providerNone = "none"

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindStringSlice
)

var settingKinds = map[string]settingKind{
	keyRRFK:               kindInt,
	keyFusionWidth:        kindInt,
	keyRerankWindow:       kindInt,
	keyRerankBatchSize:    kindInt,
	keyRerankBudget:       kindDuration,
	keyTimeBudget:         kindDuration,
	keyTemporalWidening:   kindInt,
	keyHighThreshold:      kindFloat,
	keyMarginThreshold:    kindFloat,
	keyMediumThreshold:    kindFloat,
	keyEarlyStopThreshold: kindFloat,
	keyEarlyStopMargin:    kindFloat,
	keyEarlyStopMinScored: kindInt,
	keyDefaultTopK:        kindInt,
	keyMaxTopK:            kindInt,
	keyMappingHeartbeat:   kindDuration,
	keyExpandConcurrency:  kindInt,
	keyStopWords:          kindStringSlice,
	keyStoreDataDir:       kindString,
	keyStoreWatch:         kindBool,
	keyEmbedProvider:      kindString,
	keyEmbedModel:         kindString,
	keyEmbedBaseURL:       kindString,
	keyEmbedAPIKey:        kindString,
	keyEmbedDimensions:    kindInt,
	keyEmbedRate:          kindFloat,
	keyRerankProvider:     kindString,
	keyRerankModel:        kindString,
	keyRerankBaseURL:      kindString,
	keyRerankRate:         kindFloat,
	keyRerankTimeout:      kindDuration,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
// Keys absent from the store take their default value.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()
	r := d.Ranking

	settings := &domain.AppSettings{
		Ranking: domain.EngineConfig{
			RRFK:               s.getInt(keyRRFK, r.RRFK),
			FusionWidth:        s.getInt(keyFusionWidth, r.FusionWidth),
			RerankWindow:       s.getInt(keyRerankWindow, r.RerankWindow),
			RerankBatchSize:    s.getInt(keyRerankBatchSize, r.RerankBatchSize),
			TemporalWidening:   s.getInt(keyTemporalWidening, r.TemporalWidening),
			HighThreshold:      s.getFloat(keyHighThreshold, r.HighThreshold),
			MarginThreshold:    s.getFloat(keyMarginThreshold, r.MarginThreshold),
			MediumThreshold:    s.getFloat(keyMediumThreshold, r.MediumThreshold),
			EarlyStopThreshold: s.getFloat(keyEarlyStopThreshold, r.EarlyStopThreshold),
			EarlyStopMargin:    s.getFloat(keyEarlyStopMargin, r.EarlyStopMargin),
			EarlyStopMinScored: s.getInt(keyEarlyStopMinScored, r.EarlyStopMinScored),
			DefaultTopK:        s.getInt(keyDefaultTopK, r.DefaultTopK),
			MaxTopK:            s.getInt(keyMaxTopK, r.MaxTopK),
			ExpandConcurrency:  s.getInt(keyExpandConcurrency, r.ExpandConcurrency),
			StopWords:          s.configStore.GetStringSlice(keyStopWords),
		},
		Store: domain.StoreSettings{
			DataDir: s.configStore.GetString(keyStoreDataDir),
			Watch:   s.getBool(keyStoreWatch, d.Store.Watch),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDimensions, d.Embedding.Dimensions),
			RequestsPerSecond: s.getFloat(keyEmbedRate, d.Embedding.RequestsPerSecond),
		},
		Reranker: domain.RerankerSettings{
			Provider:          s.getProvider(keyRerankProvider, d.Reranker.Provider),
			Model:             s.getString(keyRerankModel, d.Reranker.Model),
			BaseURL:           s.configStore.GetString(keyRerankBaseURL),
			RequestsPerSecond: s.getFloat(keyRerankRate, d.Reranker.RequestsPerSecond),
		},
	}

	durations := []struct {
		key    string
		target *time.Duration
		def    time.Duration
	}{
		{keyRerankBudget, &settings.Ranking.RerankBudget, r.RerankBudget},
		{keyTimeBudget, &settings.Ranking.DefaultTimeBudget, r.DefaultTimeBudget},
		{keyMappingHeartbeat, &settings.Ranking.MappingHeartbeat, r.MappingHeartbeat},
		{keyRerankTimeout, &settings.Reranker.Timeout, d.Reranker.Timeout},
	}
	for _, dur := range durations {
		v, err := s.getDuration(dur.key, dur.def)
		if err != nil {
			return nil, err
		}
		*dur.target = v
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := settingValues(settings)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == keyEmbedAPIKey && settings.Embedding.APIKey == "" {
			continue
		}
		if err := s.configStore.Set(key, values[key]); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// SetValue parses raw according to the type of key and stores it.
// The previous value is restored when the result fails validation.
func (s *SettingsService) SetValue(key, raw string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	value, err := parseSetting(kind, raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	previous, existed := s.configStore.Get(key)
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	if err := s.Validate(); err != nil {
		if !existed {
			defaults := domain.DefaultAppSettings()
			previous = settingValues(&defaults)[key]
		}
		if restoreErr := s.configStore.Set(key, previous); restoreErr != nil {
			return fmt.Errorf("restore %s after invalid value: %w", key, restoreErr)
		}
		return err
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !containsProvider(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// Local providers need a base URL, cloud providers use their own default
	settings.Embedding.BaseURL = domain.DefaultBaseURLs()[provider]
	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetRerankProvider configures the rerank model provider.
func (s *SettingsService) SetRerankProvider(provider domain.AIProvider, model, baseURL string) error {
	if !containsProvider(domain.AllRerankProviders(), provider) {
		return fmt.Errorf("provider %s does not support reranking", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Reranker.Provider = provider
	if model != "" {
		settings.Reranker.Model = model
	} else {
		settings.Reranker.Model = domain.DefaultRerankModels()[provider]
	}
	if baseURL != "" {
		settings.Reranker.BaseURL = baseURL
	} else {
		settings.Reranker.BaseURL = domain.DefaultBaseURLs()[provider]
	}

	return s.Save(settings)
}

// Validate checks the stored settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Keys returns every recognised settings key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateRerankerConfig validates the current reranker configuration by pinging the provider.
func (s *SettingsService) ValidateRerankerConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateReranker(&settings.Reranker)
}

// settingValues flattens settings into their stored representation.
func settingValues(settings *domain.AppSettings) map[string]any {
	r := settings.Ranking
	stopWords := r.StopWords
	if stopWords == nil {
		stopWords = []string{}
	}
	return map[string]any{
		keyRRFK:               r.RRFK,
		keyFusionWidth:        r.FusionWidth,
		keyRerankWindow:       r.RerankWindow,
		keyRerankBatchSize:    r.RerankBatchSize,
		keyRerankBudget:       r.RerankBudget.String(),
		keyTimeBudget:         r.DefaultTimeBudget.String(),
		keyTemporalWidening:   r.TemporalWidening,
		keyHighThreshold:      r.HighThreshold,
		keyMarginThreshold:    r.MarginThreshold,
		keyMediumThreshold:    r.MediumThreshold,
		keyEarlyStopThreshold: r.EarlyStopThreshold,
		keyEarlyStopMargin:    r.EarlyStopMargin,
		keyEarlyStopMinScored: r.EarlyStopMinScored,
		keyDefaultTopK:        r.DefaultTopK,
		keyMaxTopK:            r.MaxTopK,
		keyMappingHeartbeat:   r.MappingHeartbeat.String(),
		keyExpandConcurrency:  r.ExpandConcurrency,
		keyStopWords:          stopWords,
		keyStoreDataDir:       settings.Store.DataDir,
		keyStoreWatch:         settings.Store.Watch,
		keyEmbedProvider:      providerValue(settings.Embedding.Provider),
		keyEmbedModel:         settings.Embedding.Model,
		keyEmbedBaseURL:       settings.Embedding.BaseURL,
		keyEmbedAPIKey:        settings.Embedding.APIKey,
		keyEmbedDimensions:    settings.Embedding.Dimensions,
		keyEmbedRate:          settings.Embedding.RequestsPerSecond,
		keyRerankProvider:     providerValue(settings.Reranker.Provider),
		keyRerankModel:        settings.Reranker.Model,
		keyRerankBaseURL:      settings.Reranker.BaseURL,
		keyRerankRate:         settings.Reranker.RequestsPerSecond,
		keyRerankTimeout:      settings.Reranker.Timeout.String(),
	}
}

func parseSetting(kind settingKind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case kindInt:
		return strconv.Atoi(raw)
	case kindFloat:
		return strconv.ParseFloat(raw, 64)
	case kindBool:
		return strconv.ParseBool(raw)
	case kindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	case kindStringSlice:
		out := []string{}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return raw, nil
	}
}

func providerValue(p domain.AIProvider) string {
	if p == "" {
		return providerNone
	}
	return p.String()
}

func containsProvider(providers []domain.AIProvider, p domain.AIProvider) bool {
	for _, candidate := range providers {
		if candidate == p {
			return true
		}
	}
	return false
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDuration reads a duration string like "800ms" or "30s".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, key, err)
	}
	return d, nil
}

// getProvider returns "" for an explicit "none" and the default for
// anything unrecognised.
func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	switch {
	case val == "":
		return defaultVal
	case val == providerNone:
		return ""
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
