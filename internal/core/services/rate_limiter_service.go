package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Nikhil9989/faculty-api/internal/core/domain"
	"github.com/Nikhil9989/faculty-api/internal/core/ports"
	"github.com/Nikhil9989/faculty-api/internal/metrics"
)

// Config agrega as opções do serviço de rate limiting.
type Config struct {
	// FailOpen decide o comportamento quando o contador compartilhado está
	// indisponível: true permite a requisição, false nega.
	FailOpen bool
	// Clock permite injetar o relógio nos testes. Padrão: time.Now.
	Clock func() time.Time
	// Logger recebe avisos de degradação. Padrão: zap.NewNop().
	Logger *zap.Logger
	// Metrics é opcional; métodos de observação aceitam receiver nulo.
	Metrics *metrics.Metrics
}

// RateLimiterService implementa a decisão de rate limiting por janela fixa.
type RateLimiterService struct {
	storage  ports.CounterStore
	registry *PolicyRegistry
	failOpen bool
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

var _ ports.RateLimiter = (*RateLimiterService)(nil)

// NewRateLimiterService cria uma nova instância do serviço.
func NewRateLimiterService(storage ports.CounterStore, registry *PolicyRegistry, cfg Config) (*RateLimiterService, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("policy registry is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &RateLimiterService{
		storage:  storage,
		registry: registry,
		failOpen: cfg.FailOpen,
		now:      cfg.Clock,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}, nil
}

// Allow avalia se o chamador ainda tem cota na janela corrente. Falhas do
// contador compartilhado nunca chegam ao chamador: viram uma decisão de
// contingência segundo FailOpen.
func (s *RateLimiterService) Allow(ctx context.Context, caller domain.Caller) (domain.Decision, error) {
	policy := s.registry.Resolve(caller.Tier)
	identity := normalizeIdentity(caller.Identity)

	windowSeconds := int64(policy.Window / time.Second)
	windowID := s.now().Unix() / windowSeconds
	resetAt := time.Unix((windowID+1)*windowSeconds, 0)

	// A janela faz parte da chave, então o contador zera sozinho na virada e
	// renovar a expiração em incrementos repetidos não estende a janela.
	key := fmt.Sprintf("ratelimit:%s:%s:%d", policy.Tier, identity, windowID)

	started := time.Now()
	count, err := s.storage.Increment(ctx, key, policy.Window)
	s.metrics.ObserveStoreRoundTrip(time.Since(started).Seconds())
	if err != nil {
		s.metrics.ObserveStoreFailure()
		s.logger.Warn("counter store unavailable, applying fallback policy",
			zap.String("tier", policy.Tier),
			zap.Bool("fail_open", s.failOpen),
			zap.Error(err),
		)
		decision := s.fallbackDecision(identity, policy, resetAt)
		s.metrics.ObserveDecision(policy.Tier, decision.Allowed)
		return decision, nil
	}

	remaining := policy.Requests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	decision := domain.Decision{
		Allowed:   count <= int64(policy.Requests),
		Identity:  identity,
		Tier:      policy.Tier,
		Limit:     policy.Requests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	s.metrics.ObserveDecision(policy.Tier, decision.Allowed)
	return decision, nil
}

func (s *RateLimiterService) fallbackDecision(identity string, policy domain.Policy, resetAt time.Time) domain.Decision {
	decision := domain.Decision{
		Allowed:  s.failOpen,
		Identity: identity,
		Tier:     policy.Tier,
		Limit:    policy.Requests,
		ResetAt:  resetAt,
		Degraded: true,
	}
	if s.failOpen {
		decision.Remaining = policy.Requests
	}
	return decision
}

func normalizeIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "unknown"
	}
	return identity
}
