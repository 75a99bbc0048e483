package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/Nikhil9989/faculty-api/internal/core/domain"
)

// PolicyRegistry resolve o tier de um chamador para a política configurada.
// As políticas são registradas na inicialização e apenas lidas depois disso;
// Register nunca roda concorrentemente com Resolve em operação normal.
type PolicyRegistry struct {
	fallback domain.Policy
	policies map[string]domain.Policy
}

// NewPolicyRegistry cria o registro com a política pública (fallback) e as
// políticas adicionais informadas. Qualquer política malformada falha a
// inicialização antes da API servir tráfego.
func NewPolicyRegistry(public domain.Policy, extra ...domain.Policy) (*PolicyRegistry, error) {
	if err := validatePolicy(public); err != nil {
		return nil, err
	}

	registry := &PolicyRegistry{
		fallback: public,
		policies: map[string]domain.Policy{normalizeTier(public.Tier): public},
	}

	for _, policy := range extra {
		if err := registry.Register(policy); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// Register adiciona ou sobrescreve a política de um tier. Uso exclusivo da
// fase de configuração.
func (r *PolicyRegistry) Register(policy domain.Policy) error {
	if err := validatePolicy(policy); err != nil {
		return err
	}
	r.policies[normalizeTier(policy.Tier)] = policy
	return nil
}

// Resolve devolve a política do tier informado. Um tier ausente ou
// desconhecido recai na política pública; resolução nunca falha.
func (r *PolicyRegistry) Resolve(tier string) domain.Policy {
	if policy, ok := r.policies[normalizeTier(tier)]; ok {
		return policy
	}
	return r.fallback
}

// Tiers lista os nomes dos tiers registrados.
func (r *PolicyRegistry) Tiers() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	return names
}

func validatePolicy(policy domain.Policy) error {
	if strings.TrimSpace(policy.Tier) == "" {
		return fmt.Errorf("%w: tier name is required", domain.ErrInvalidPolicy)
	}
	if policy.Requests <= 0 {
		return fmt.Errorf("%w: tier %q must allow a positive number of requests", domain.ErrInvalidPolicy, policy.Tier)
	}
	// A aritmética de janelas opera em segundos inteiros.
	if policy.Window < time.Second || policy.Window%time.Second != 0 {
		return fmt.Errorf("%w: tier %q window must be a whole number of seconds", domain.ErrInvalidPolicy, policy.Tier)
	}
	return nil
}

func normalizeTier(tier string) string {
	return strings.ToLower(strings.TrimSpace(tier))
}
