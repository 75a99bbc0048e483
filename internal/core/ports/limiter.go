// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/Nikhil9989/faculty-api/internal/core/domain"
)

// RateLimiter decide se a requisição de um chamador pode prosseguir.
//
// Implementações convertem falhas do store em decisões de fallback: nenhum
// erro bruto de infraestrutura atravessa este contrato em tempo de requisição.
type RateLimiter interface {
	Allow(ctx context.Context, caller domain.Caller) (domain.Decision, error)
}
