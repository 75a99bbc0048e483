// Package memory disponibiliza um counter store em memória, usado em
// desenvolvimento e testes no lugar do Redis.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Nikhil9989/faculty-api/internal/core/domain"
	"github.com/Nikhil9989/faculty-api/internal/core/ports"
)

const defaultJanitorInterval = time.Minute

type entry struct {
	count     int64
	expiresAt time.Time
}

// Storage guarda contadores por chave com expiração. Todo o acesso passa por
// um mutex, então incrementos concorrentes contam exatamente uma vez cada.
type Storage struct {
	mu      sync.Mutex
	entries map[string]entry
	closed  bool
	now     func() time.Time

	janitorInterval time.Duration
	stopChan        chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
}

var _ ports.CounterStore = (*Storage)(nil)

// Option ajusta o comportamento do Storage.
type Option func(*Storage)

// WithClock injeta o relógio usado na expiração. Padrão: time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Storage) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithJanitorInterval define a frequência da varredura de chaves expiradas.
func WithJanitorInterval(interval time.Duration) Option {
	return func(s *Storage) {
		if interval > 0 {
			s.janitorInterval = interval
		}
	}
}

// New cria o storage e inicia a varredura de expirados em segundo plano.
func New(opts ...Option) *Storage {
	s := &Storage{
		entries:         make(map[string]entry),
		now:             time.Now,
		janitorInterval: defaultJanitorInterval,
		stopChan:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.janitor()

	return s
}

func (s *Storage) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("%w: memory store closed", domain.ErrStoreUnavailable)
	}

	now := s.now()
	e, ok := s.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = entry{expiresAt: now.Add(window)}
	}
	e.count++
	s.entries[key] = e
	return e.count, nil
}

func (s *Storage) HealthCheck(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: memory store closed", domain.ErrStoreUnavailable)
	}
	return nil
}

// Close para a varredura e descarta os contadores. Chamadas repetidas são
// inofensivas.
func (s *Storage) Close() error {
	s.once.Do(func() {
		close(s.stopChan)
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		s.entries = nil
		s.mu.Unlock()
	})
	return nil
}

// Len informa quantas chaves ainda não expiraram.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	alive := 0
	for _, e := range s.entries {
		if now.Before(e.expiresAt) {
			alive++
		}
	}
	return alive
}

func (s *Storage) janitor() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *Storage) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}
