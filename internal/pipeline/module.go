package pipeline

import (
	"context"
	"path/filepath"

	"github.com/matheus3301/imsgx/internal/bus"
	"github.com/matheus3301/imsgx/internal/config"
	"github.com/matheus3301/imsgx/internal/lock"
	"github.com/matheus3301/imsgx/internal/logging"
	"github.com/matheus3301/imsgx/internal/paths"
	"github.com/matheus3301/imsgx/internal/status"
	"github.com/matheus3301/imsgx/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds what the command line knows before config is resolved.
type Params struct {
	ConfigPath string
	Overrides  config.Overrides
	LogPath    string // optional override for testing; empty = use default
}

// Module returns the fx module composing the extraction pipeline and its resources.
func Module(p Params) fx.Option {
	return fx.Module("pipeline",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			New,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = paths.ConfigPath()
	}
	return config.Resolve(path, p.Overrides)
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	logPath := p.LogPath
	if logPath == "" {
		logPath = paths.LogPath()
	}
	return logging.New(logPath, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(cfg *config.Config, logger *zap.Logger) (*lock.Lock, error) {
	dir := filepath.Dir(cfg.OutputPath)
	logger.Debug("acquiring output lock", zap.String("dir", dir))
	l, err := lock.Acquire(dir)
	if err != nil {
		return nil, err
	}
	logger.Debug("output lock acquired", zap.String("path", l.Path()))
	return l, nil
}

// provideStore depends on the lock so the output is never opened unlocked.
func provideStore(cfg *config.Config, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	db, result, err := store.OpenMigrated(cfg.OutputPath)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Debug("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Debug("store initialized", zap.String("path", cfg.OutputPath))
	return db, nil
}

func registerLifecycle(lc fx.Lifecycle, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			_ = logger.Sync()
			return nil
		},
	})
}
