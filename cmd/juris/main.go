// Command juris is the hybrid legal retrieval and ranking engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/juris/internal/adapters/driven/ai"
	"github.com/custodia-labs/juris/internal/adapters/driven/config/file"
	"github.com/custodia-labs/juris/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/juris/internal/adapters/driving/cli"
	"github.com/custodia-labs/juris/internal/core/services"
	"github.com/custodia-labs/juris/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	if err := cli.Execute(ctx, initServices); err != nil {
		stop()
		os.Exit(1)
	}
}

// initServices wires the adapters behind the driving ports. A corpus store
// that cannot be opened leaves only the settings service available, so the
// config commands keep working.
func initServices(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		logger.Error("%v (run 'juris config show')", err)
		return &cli.Services{Settings: settingsService}, nil, nil
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = settings.Store.DataDir
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		logger.Error("opening corpus store: %v", err)
		return &cli.Services{Settings: settingsService}, nil, nil
	}
	logger.Debug("corpus store: %s", store.Path())

	mappings := services.NewMappingCache(store.DocumentStore(), settings.Ranking.MappingHeartbeat)
	queryService, err := services.NewQueryService(
		settings.Ranking,
		store.ChunkStore(),
		store.DocumentStore(),
		store.LexicalIndex(),
		store.DenseIndex(),
		mappings,
	)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	closers := []func() error{}

	if settings.Embedding.Provider != "" {
		embedder, err := ai.CreateAndValidateEmbeddingService(&settings.Embedding)
		if err != nil {
			logger.Warn("%v", err)
		} else if embedder != nil {
			queryService.SetEmbeddingService(embedder)
			closers = append(closers, embedder.Close)
			logger.Debug("embedding model: %s (%d dimensions)", embedder.ModelName(), embedder.Dimensions())
		}
	}

	if settings.Reranker.Provider != "" {
		model, err := ai.CreateAndValidateRerankModel(&settings.Reranker)
		if err != nil {
			logger.Warn("%v", err)
		} else if model != nil {
			queryService.SetRerankModel(model)
			logger.Debug("rerank model: %s", model.ModelName())
		}
	}

	scheduler := services.NewScheduler(mappings, settings.Ranking.MappingHeartbeat)

	if settings.Store.Watch {
		watcher, err := sqlite.NewWatcher(store.Path(), sqlite.DefaultWatchDebounce, scheduler.Trigger)
		if err != nil {
			logger.Warn("store watcher disabled: %v", err)
		} else {
			watcher.Start(ctx)
			closers = append(closers, watcher.Close)
		}
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("shutdown: %v", err)
			}
		}
		mappings.Wait()
		if err := store.Close(); err != nil {
			logger.Warn("closing corpus store: %v", err)
		}
	}

	return &cli.Services{
		Query:     queryService,
		Mapping:   mappings,
		Settings:  settingsService,
		Scheduler: scheduler,
	}, cleanup, nil
}
