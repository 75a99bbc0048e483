// Package app monta as dependências da aplicação a partir da configuração.
package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Nikhil9989/faculty-api/internal/adapters/http/middleware"
	memorystorage "github.com/Nikhil9989/faculty-api/internal/adapters/storage/memory"
	redisstorage "github.com/Nikhil9989/faculty-api/internal/adapters/storage/redis"
	"github.com/Nikhil9989/faculty-api/internal/config"
	"github.com/Nikhil9989/faculty-api/internal/core/domain"
	"github.com/Nikhil9989/faculty-api/internal/core/ports"
	"github.com/Nikhil9989/faculty-api/internal/core/services"
	"github.com/Nikhil9989/faculty-api/internal/metrics"
)

// App reúne as peças prontas para o servidor HTTP.
type App struct {
	Limiter  ports.RateLimiter
	Registry *services.PolicyRegistry
	Metrics  *metrics.Metrics
	// Store é nulo em modo degradado.
	Store ports.CounterStore
	// Degraded indica que o counter store estava inacessível na subida e a
	// API está servindo sem rate limiting.
	Degraded bool

	logger *zap.Logger
}

// Initialize valida as políticas e conecta ao counter store. Política
// malformada é fatal; store inacessível degrada para o limiter no-op, como
// anunciado no log.
func Initialize(cfg config.Config, logger *zap.Logger, registerer prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	extra := append([]domain.Policy{cfg.RateLimiter.User, cfg.RateLimiter.Admin}, cfg.RateLimiter.ExtraTiers...)
	registry, err := services.NewPolicyRegistry(cfg.RateLimiter.Public, extra...)
	if err != nil {
		return nil, fmt.Errorf("failed to build policy registry: %w", err)
	}

	m := metrics.New(registerer)

	store, err := openStore(cfg.Storage, cfg.RateLimiter.StoreTimeout)
	if err != nil {
		if domain.IsStoreUnavailable(err) || domain.IsStoreRejected(err) {
			logger.Warn("counter store unreachable, API will run without rate limiting", zap.Error(err))
			return &App{
				Limiter:  services.NewNoopLimiter(registry, nil),
				Registry: registry,
				Metrics:  m,
				Degraded: true,
				logger:   logger,
			}, nil
		}
		return nil, err
	}

	limiter, err := services.NewRateLimiterService(store, registry, services.Config{
		FailOpen: cfg.RateLimiter.FailOpen,
		Logger:   logger,
		Metrics:  m,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("rate limiter ready",
		zap.String("storage", cfg.Storage.Type),
		zap.Bool("fail_open", cfg.RateLimiter.FailOpen),
		zap.Strings("tiers", registry.Tiers()),
	)

	return &App{
		Limiter:  limiter,
		Registry: registry,
		Metrics:  m,
		Store:    store,
		logger:   logger,
	}, nil
}

// Middleware devolve o middleware de rate limiting já ligado ao limiter e ao
// logger da aplicação.
func (a *App) Middleware() func(http.Handler) http.Handler {
	return middleware.NewRateLimiterMiddleware(a.Limiter, middleware.WithLogger(a.logger))
}

// Shutdown libera o counter store. Pode ser chamado mais de uma vez.
func (a *App) Shutdown() {
	if a.Store == nil {
		return
	}
	if err := a.Store.Close(); err != nil {
		a.logger.Warn("failed to close counter store", zap.Error(err))
	}
}

func openStore(cfg config.StorageConfig, timeout time.Duration) (ports.CounterStore, error) {
	switch cfg.Type {
	case "redis":
		return redisstorage.New(redisstorage.Config{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  timeout,
		})
	case "memory":
		return memorystorage.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
