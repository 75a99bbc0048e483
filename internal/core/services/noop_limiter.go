package services

import (
	"context"
	"time"

	"github.com/Nikhil9989/faculty-api/internal/core/domain"
	"github.com/Nikhil9989/faculty-api/internal/core/ports"
)

// NoopLimiter permite todas as requisições. É o modo degradado adotado quando
// o contador compartilhado está inacessível na inicialização: a API sobe e
// atende sem rate limiting, apenas anunciando os limites configurados.
type NoopLimiter struct {
	registry *PolicyRegistry
	now      func() time.Time
}

var _ ports.RateLimiter = (*NoopLimiter)(nil)

// NewNoopLimiter cria o limiter degradado usando o mesmo registro de
// políticas do serviço real, para que os cabeçalhos informativos continuem
// coerentes com a configuração.
func NewNoopLimiter(registry *PolicyRegistry, clock func() time.Time) *NoopLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &NoopLimiter{registry: registry, now: clock}
}

// Allow sempre permite, com a cota cheia do tier resolvido.
func (n *NoopLimiter) Allow(_ context.Context, caller domain.Caller) (domain.Decision, error) {
	policy := n.registry.Resolve(caller.Tier)

	windowSeconds := int64(policy.Window / time.Second)
	windowID := n.now().Unix() / windowSeconds

	return domain.Decision{
		Allowed:   true,
		Identity:  normalizeIdentity(caller.Identity),
		Tier:      policy.Tier,
		Limit:     policy.Requests,
		Remaining: policy.Requests,
		ResetAt:   time.Unix((windowID+1)*windowSeconds, 0),
		Degraded:  true,
	}, nil
}
