package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapp "console/internal/app/http"
	"console/internal/config"
	consolehttp "console/internal/http"
	"console/internal/provider/client"
	redis2 "console/internal/redis"
	"console/internal/storage"
	"console/internal/storage/memory"
	"console/pkg/client/redis"
)

type App struct {
	HTTPServer *httpapp.App
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	store, err := newStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api := client.New(cfg.API.BaseURL, cfg.API.Timeout, log, client.WithMetrics(client.NewMetrics(registry)))

	server, err := consolehttp.NewServer(cfg, api, store, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), log)
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}

	app := httpapp.New(log, server.Router(), cfg.Listen.Addr(), cfg.Listen.ReadHeaderTimeout, cfg.Listen.ShutdownTimeout)

	return &App{
		HTTPServer: app,
	}, nil
}

func newStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (storage.Storage, error) {
	if cfg.Storage.Type != config.StorageRedis {
		log.Info("using in-memory session storage")
		return memory.New(), nil
	}

	client, err := redis.NewClient(ctx, cfg.Redis.MaxAttempts, cfg.Redis)
	if err != nil {
		return nil, err
	}
	log.Info("using redis session storage",
		slog.String("host", cfg.Redis.Host),
		slog.String("port", cfg.Redis.Port))

	return redis2.NewRepositoryRedis(client, cfg.Storage.Prefix), nil
}
