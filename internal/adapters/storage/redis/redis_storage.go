// Package redis disponibiliza a implementação do counter store baseada em Redis.
package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Nikhil9989/faculty-api/internal/core/domain"
	"github.com/Nikhil9989/faculty-api/internal/core/ports"
)

const defaultTimeout = 2 * time.Second

// incrScript incrementa e arma a expiração apenas na criação da chave, em uma
// única viagem atômica ao servidor.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

type Storage struct {
	client  *redis.Client
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

var _ ports.CounterStore = (*Storage)(nil)

type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout limita cada viagem ao store. Padrão: 2s.
	Timeout time.Duration
}

func New(cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", classify(err))
	}

	return &Storage{client: client, timeout: cfg.Timeout}, nil
}

func (s *Storage) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	// O incremento em curso não pode ser abortado pelo cancelamento do
	// chamador, senão uma requisição atendida escaparia da contagem. O teto
	// passa a ser só o timeout do store.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	count, err := incrScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, classify(err)
	}
	return count, nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Storage) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

// classify traduz erros do driver para a taxonomia do domínio. Recusas de
// autenticação não são transitórias e merecem distinção no log.
func classify(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "NOAUTH") || strings.Contains(msg, "WRONGPASS") || strings.Contains(msg, "invalid password") {
		return fmt.Errorf("%w: %v", domain.ErrStoreRejected, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
