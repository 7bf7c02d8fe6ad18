package archive

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/chatvault/internal/bus"
	"github.com/matheus3301/chatvault/internal/codec"
	"github.com/matheus3301/chatvault/internal/config"
	"github.com/matheus3301/chatvault/internal/index"
	"github.com/matheus3301/chatvault/internal/lock"
	"github.com/matheus3301/chatvault/internal/logging"
	"github.com/matheus3301/chatvault/internal/seal"
	"github.com/matheus3301/chatvault/internal/store"
)

// Params holds the resolved startup configuration passed to the fx module.
type Params struct {
	ConfigPath string
	// DataDir overrides the configured data directory; empty = use config.
	DataDir string
}

// Module returns the fx module for the archive engine, composing all
// providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("archive",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideCipher,
			provideCodecConfig,
			provideMapper,
			provideStore,
			provideIndex,
			provideEngine,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if p.DataDir != "" {
		cfg.DataDir = p.DataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogPath(), cfg.ResolveDataDir())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(cfg *config.Config, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring vault lock", zap.String("dir", cfg.ResolveDataDir()))
	l, err := lock.Acquire(cfg.ResolveDataDir())
	if err != nil {
		return nil, err
	}
	logger.Info("vault lock acquired")
	return l, nil
}

func provideCipher(cfg *config.Config) (*seal.Cipher, error) {
	key, err := seal.LoadOrCreateKey(cfg.KeyPath())
	if err != nil {
		return nil, err
	}
	return seal.New(key)
}

func provideCodecConfig(cfg *config.Config) codec.Config {
	c := codec.DefaultConfig()
	if cfg.Compression.ThresholdBytes > 0 {
		c.Threshold = cfg.Compression.ThresholdBytes
	}
	c.MinSize = cfg.Compression.MinFieldBytes
	return c
}

func provideMapper(cipher *seal.Cipher, cc codec.Config) *store.Mapper {
	return store.NewMapper(cipher, cc)
}

func provideStore(cfg *config.Config, mapper *store.Mapper, logger *zap.Logger) (*store.DB, error) {
	dbPath := cfg.DBPath()
	db, err := store.Open(dbPath, mapper)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideIndex(cfg *config.Config, db *store.DB, logger *zap.Logger) (index.Index, error) {
	switch cfg.Search.Strategy {
	case index.StrategyMemory:
		logger.Info("using in-memory search index",
			zap.Int("archive_cache", cfg.Search.ArchiveCacheSize),
			zap.Int("result_cache", cfg.Search.ResultCacheSize))
		return index.NewMemory(db, cfg.Search.ArchiveCacheSize, cfg.Search.ResultCacheSize)
	default:
		return index.NewFTS(db), nil
	}
}

func provideEngine(db *store.DB, idx index.Index, b *bus.Bus, cc codec.Config, logger *zap.Logger) *Engine {
	return NewEngine(db, db, idx, b, cc, logger)
}

func registerLifecycle(lc fx.Lifecycle, engine *Engine, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return engine.Initialize(ctx)
		},
		OnStop: func(_ context.Context) error {
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("engine stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
