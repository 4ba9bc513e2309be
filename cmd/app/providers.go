package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/advisor"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/syncqueue"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/config"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/connectivity"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/historyrepo"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/predictor/remote"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/queuestore"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/weather/openweather"
)

func provideAdvisorConfig(cfg *config.Config) advisor.Config {
	return advisor.Config{
		HistoryLimit: cfg.History.Limit,
	}
}

func provideRemoteClient(cfg *config.Config) *remote.Client {
	return remote.NewClient(cfg.Predictor.BaseURL, cfg.Predictor.Timeout)
}

func provideConnectivity(cfg *config.Config) advisor.ConnectivitySignal {
	if cfg.Connectivity.ForceOffline {
		return connectivity.Static(false)
	}
	probeURL := strings.TrimSpace(cfg.Connectivity.ProbeURL)
	if probeURL == "" {
		probeURL = cfg.Predictor.BaseURL
	}
	return connectivity.NewProbe(probeURL, cfg.Connectivity.Timeout, cfg.Connectivity.CacheTTL)
}

func provideWeatherClient(cfg *config.Config) *openweather.Client {
	return openweather.NewClient(cfg.Weather.APIBaseURL, cfg.Weather.APIKey, cfg.Weather.CacheTTL)
}

func provideQueueStore(cfg *config.Config, logger *slog.Logger) syncqueue.Store {
	switch cfg.Queue.Backend {
	case "valkey":
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return queuestore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return queuestore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			return queuestore.NewMemoryStore()
		}
		logger.Info("queue valkey store enabled", "addr", cfg.Queue.Valkey.Addr)
		return queuestore.NewValkeyStore(client, cfg.Queue.Valkey.Key)
	case "object":
		store, err := queuestore.NewObjectStore(
			cfg.Queue.Object.Endpoint,
			cfg.Queue.Object.AccessKey,
			cfg.Queue.Object.SecretKey,
			cfg.Queue.Object.Bucket,
			cfg.Queue.Object.Region,
			cfg.Queue.Object.Key,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize object store, falling back to memory store", "error", err)
			return queuestore.NewMemoryStore()
		}
		logger.Info("queue object store enabled", "bucket", cfg.Queue.Object.Bucket)
		return store
	default:
		return queuestore.NewMemoryStore()
	}
}

func provideQueue(store syncqueue.Store, logger *slog.Logger) (*syncqueue.Queue, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return syncqueue.New(ctx, store, logger)
}

func provideHistoryRepository(cfg *config.Config, logger *slog.Logger) advisor.HistoryRepository {
	fallback := historyrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.History.Postgres.DSN)
	if dsn == "" {
		logger.Info("history postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.History.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.History.Postgres.MaxConns
	}
	if cfg.History.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.History.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("history postgres repository enabled")
	return historyrepo.NewPostgresRepository(pool)
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Queue.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Queue.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Queue.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
