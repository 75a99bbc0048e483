package domain

import "errors"

var (
	// ErrStoreUnavailable indica falha transitória do counter store
	// (rede, timeout). Nunca chega ao chamador final: o Decision Engine
	// converte em uma decisão de fallback.
	ErrStoreUnavailable = errors.New("counter store unavailable")

	// ErrStoreRejected indica que o store recusou a operação (ex.: autenticação).
	ErrStoreRejected = errors.New("counter store rejected the operation")

	// ErrInvalidPolicy indica política malformada no momento do registro.
	// Fatal na inicialização, nunca em tempo de requisição.
	ErrInvalidPolicy = errors.New("invalid rate limit policy")
)

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func IsStoreRejected(err error) bool {
	return errors.Is(err, ErrStoreRejected)
}

func IsInvalidPolicy(err error) bool {
	return errors.Is(err, ErrInvalidPolicy)
}
