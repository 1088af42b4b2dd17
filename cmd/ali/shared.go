package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ckaya/ali/internal/config"
	"github.com/ckaya/ali/internal/llm"
	"github.com/ckaya/ali/internal/llm/openai"
	"github.com/ckaya/ali/internal/llm/simple"
	"github.com/ckaya/ali/internal/mind"
	"github.com/ckaya/ali/internal/observability"
	"github.com/ckaya/ali/internal/storage"
	pgstore "github.com/ckaya/ali/internal/storage/postgres"
	sqlitestore "github.com/ckaya/ali/internal/storage/sqlite"
)

// SharedComponents holds the subsystems that both serve and chat modes
// require. Built once by initShared, torn down by Cleanup.
type SharedComponents struct {
	Config  *config.Config
	Logger  *slog.Logger
	DataDir string
	Store   storage.Store
	Obs     *observability.Observability
	Mind    *mind.Mind

	cleanups []func()
}

// Cleanup runs all deferred cleanup functions in reverse order.
func (sc *SharedComponents) Cleanup() {
	for i := len(sc.cleanups) - 1; i >= 0; i-- {
		sc.cleanups[i]()
	}
}

func (sc *SharedComponents) addCleanup(fn func()) {
	sc.cleanups = append(sc.cleanups, fn)
}

// initShared wakes the mind: data dir, observability, storage, provider,
// then the mind itself. Callers must call sc.Cleanup() when done.
func initShared(cfg *config.Config, logger *slog.Logger) (*SharedComponents, error) {
	sc := &SharedComponents{
		Config: cfg,
		Logger: logger,
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}
	sc.DataDir = dataDir
	logger.Debug("data directory initialized", slog.String("path", dataDir))

	// Observability.
	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing observability: %w", err)
	}
	sc.Obs = obs
	sc.addCleanup(func() {
		if obs != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			obs.Shutdown(shutdownCtx)
		}
	})
	if obs != nil {
		logger.Debug("observability initialized",
			slog.Bool("metrics", obs.Metrics != nil),
			slog.Bool("tracing", obs.Tracer != nil),
		)
	}

	// Storage.
	store, err := initStore(cfg, dataDir, logger)
	if err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	sc.Store = store
	sc.addCleanup(func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", slog.String("error", err.Error()))
		}
	})

	if err := store.Migrate(context.Background()); err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Debug("storage initialized", slog.String("driver", store.Driver()))

	// Language provider.
	provider, err := newProvider(cfg, logger)
	if err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("initializing provider: %w", err)
	}
	logger.Debug("provider initialized", slog.String("provider", provider.Name()))

	if obs != nil && obs.Metrics != nil {
		provider = observability.NewInstrumentedProvider(
			provider, obs.Metrics, obs.TracerOrNil(), obs.Monitor,
		)
	}

	// The mind. First boot runs genesis.
	m, err := mind.New(cfg, store, provider, logger)
	if err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("waking the mind: %w", err)
	}
	if obs != nil {
		m.WithObservability(obs)
	}
	sc.Mind = m

	// Health checks.
	if obs != nil && obs.Health != nil {
		obs.Health.AddCheck("storage", store.Ping)
		obs.Health.AddCheck("mind", m.Ping)
	}

	snap := m.Snapshot()
	logger.Info("mind awake",
		slog.String("name", snap.Name),
		slog.String("phase", string(snap.Phase)),
		slog.Float64("age_hours", snap.AgeHours),
	)

	return sc, nil
}

// initStore creates the storage backend from config.
func initStore(cfg *config.Config, dataDir string, logger *slog.Logger) (storage.Store, error) {
	switch driver := cfg.Storage.StorageDriver(); driver {
	case "postgres":
		pgCfg := pgstore.Config{DSN: cfg.Storage.Postgres.DSN}
		pgCfg.MaxOpenConns = cfg.Storage.Postgres.MaxOpenConns
		pgCfg.MaxIdleConns = cfg.Storage.Postgres.MaxIdleConns
		pgCfg.ConnMaxLifetime = time.Duration(cfg.Storage.Postgres.ConnMaxLifetimeS) * time.Second
		return pgstore.Open(pgCfg, logger)
	case "sqlite":
		journalMode := ""
		if cfg.Storage != nil && cfg.Storage.SQLite != nil {
			journalMode = cfg.Storage.SQLite.JournalMode
		}
		return sqlitestore.Open(sqlitestore.Config{
			Path:        cfg.SQLitePath(dataDir),
			JournalMode: journalMode,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", driver)
	}
}

// newProvider creates the language provider. The simple template provider
// always backs a remote one, so the mind keeps speaking when the network
// does not.
func newProvider(cfg *config.Config, logger *slog.Logger) (llm.Provider, error) {
	fallback := simple.NewClient(time.Now().UnixNano())

	switch name := cfg.Providers.DefaultProvider(); name {
	case "simple":
		return fallback, nil
	case "openai":
		var opts []openai.Option
		if cfg.Providers.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Providers.OpenAI.BaseURL))
		}
		primary := openai.NewClient(
			cfg.Providers.OpenAI.APIKey,
			cfg.Providers.OpenAI.ModelName(),
			logger,
			opts...,
		)
		return llm.NewFallbackProvider([]llm.Provider{primary, fallback}, logger), nil
	case "ollama":
		primary := openai.NewClient(
			"",
			cfg.Providers.OpenAI.ModelName(),
			logger,
			openai.WithBaseURL(cfg.Providers.OpenAI.BaseURL),
			openai.WithName("ollama"),
		)
		return llm.NewFallbackProvider([]llm.Provider{primary, fallback}, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", name)
	}
}
