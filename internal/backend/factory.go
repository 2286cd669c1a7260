package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"roomfund/internal/cache"
	"roomfund/internal/metrics"
	"roomfund/internal/storage"
	"roomfund/internal/storage/memory"
	"roomfund/internal/storage/postgres"
	"roomfund/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewFactory creates a new backend factory. m may be nil.
func NewFactory(logger *slog.Logger, m *metrics.Metrics) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:  logger,
		metrics: m,
	}
}

// CreateBackend opens the configured store, instruments it and puts the
// snapshot cache in front of it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	base, err := f.open(ctx, config)
	if err != nil {
		return nil, err
	}

	var store storage.RecordStore = base
	if f.metrics != nil {
		store = f.metrics.InstrumentStore(store)
	}

	if config.CacheSize == 0 {
		f.logger.Info("Snapshot cache disabled")
		return &BackendResult{Store: store, Cleanup: store.Close}, nil
	}

	lru := cache.NewLRUCache[[]storage.Document](config.CacheSize, config.CacheTTL)
	manager := cache.NewManager(f.logger)
	manager.Register(lru)
	manager.StartCleanup(config.CacheTTL)
	if f.metrics != nil {
		f.metrics.RegisterCacheStats("snapshots", func() (int, int64, int64) {
			s := lru.Stats()
			return s.Size, s.Hits, s.Misses
		})
	}

	cached := storage.NewCachedStore(store, lru)
	f.logger.Info("Snapshot cache enabled",
		"size", config.CacheSize,
		"ttl", config.CacheTTL)

	return &BackendResult{
		Store: cached,
		Cleanup: func() error {
			manager.Stop()
			return cached.Close()
		},
	}, nil
}

func (f *DefaultFactory) open(ctx context.Context, config Config) (storage.RecordStore, error) {
	switch config.Type {
	case MemoryBackend:
		store, err := memory.New(config.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory store: %w", err)
		}
		f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
		return store, nil

	case SQLiteBackend:
		store, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return store, nil

	case PostgresBackend:
		store, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		f.logger.Info("Initialized postgres backend")
		return store, nil

	default:
		return nil, errors.New("unsupported backend type: " + config.Type.String())
	}
}
