// Package domain concentra entidades e estruturas centrais do rate limiter.
package domain

import "time"

// Tiers padrão reconhecidos pela API. Tiers adicionais podem ser
// registrados via configuração.
const (
	TierPublic = "public"
	TierUser   = "user"
	TierAdmin  = "admin"
)

// Policy define quantas requisições um tier pode realizar dentro de uma
// janela fixa de tempo.
type Policy struct {
	Tier     string
	Requests int
	Window   time.Duration
}

// Caller identifica o sujeito limitado em uma requisição.
type Caller struct {
	Identity string
	Tier     string
}

// Decision é o resultado de uma avaliação de rate limit. Degraded indica que
// a decisão veio da política de fallback enquanto o store estava indisponível.
type Decision struct {
	Allowed   bool
	Identity  string
	Tier      string
	Limit     int
	Remaining int
	ResetAt   time.Time
	Degraded  bool
}
