// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"
)

// CounterStore é o contrato do store de contadores de janela compartilhado
// entre as réplicas da API.
type CounterStore interface {
	// Increment incrementa atomicamente o contador da chave e devolve o valor
	// pós-incremento. Quando a chave ainda não existe (primeiro hit da janela),
	// a implementação registra a expiração igual à janela. Dois chamadores
	// concorrentes nunca observam ambos count=1.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// HealthCheck sonda a vivacidade do store sem efeitos colaterais.
	HealthCheck(ctx context.Context) error

	// Close libera a conexão subjacente. Idempotente.
	Close() error
}
