package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Nikhil9989/faculty-api/internal/core/domain"
)

// windowStart is aligned with a minute boundary so window math stays obvious.
var windowStart = time.Unix(1_755_000_000, 0)

func TestRateLimiter_AllowsUpToPolicyLimit(t *testing.T) {
	storage := newMockStorage()
	clock := &fakeClock{now: windowStart}
	service := newTestLimiter(t, storage, newTestRegistry(t), Config{Clock: clock.Now})

	ctx := context.Background()
	caller := domain.Caller{Identity: "198.51.100.7", Tier: domain.TierPublic}

	for i := 0; i < 30; i++ {
		decision, err := service.Allow(ctx, caller)
		if err != nil {
			t.Fatalf("unexpected error at attempt %d: %v", i+1, err)
		}
		if !decision.Allowed {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
	}

	// The request that lands exactly on the limit is the last allowed one;
	// the next must be denied.
	decision, err := service.Allow(ctx, caller)
	if err != nil {
		t.Fatalf("unexpected error on request 31: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected request 31 to be denied, got %+v", decision)
	}
	if decision.Remaining != 0 {
		t.Fatalf("expected remaining 0 on denial, got %d", decision.Remaining)
	}
}

func TestRateLimiter_ReportsLiteralQuota(t *testing.T) {
	storage := newMockStorage()
	clock := &fakeClock{now: windowStart}
	service := newTestLimiter(t, storage, newTestRegistry(t), Config{Clock: clock.Now})

	ctx := context.Background()
	caller := domain.Caller{Identity: "198.51.100.8", Tier: domain.TierPublic}

	var decision domain.Decision
	var err error
	for i := 0; i < 5; i++ {
		decision, err = service.Allow(ctx, caller)
		if err != nil {
			t.Fatalf("unexpected error at attempt %d: %v", i+1, err)
		}
	}

	if decision.Limit != 30 {
		t.Fatalf("expected limit 30, got %d", decision.Limit)
	}
	if decision.Remaining != 25 {
		t.Fatalf("expected remaining 25 after 5 requests, got %d", decision.Remaining)
	}
	if got := decision.ResetAt.Unix(); got != windowStart.Unix()+60 {
		t.Fatalf("expected reset at %d, got %d", windowStart.Unix()+60, got)
	}
}

func TestRateLimiter_WindowRollover(t *testing.T) {
	registry, err := NewPolicyRegistry(domain.Policy{Tier: domain.TierPublic, Requests: 1, Window: time.Minute})
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	storage := newMockStorage()
	clock := &fakeClock{now: windowStart}
	service := newTestLimiter(t, storage, registry, Config{Clock: clock.Now})

	ctx := context.Background()
	caller := domain.Caller{Identity: "203.0.113.9", Tier: domain.TierPublic}

	if decision, err := service.Allow(ctx, caller); err != nil || !decision.Allowed {
		t.Fatalf("expected first request to be allowed, decision=%+v err=%v", decision, err)
	}
	if decision, err := service.Allow(ctx, caller); err != nil || decision.Allowed {
		t.Fatalf("expected second request to be denied, decision=%+v err=%v", decision, err)
	}

	// Crossing the window boundary changes the counter key, so the quota is
	// fresh without anything being deleted from the store.
	clock.Advance(time.Minute)
	decision, err := service.Allow(ctx, caller)
	if err != nil || !decision.Allowed {
		t.Fatalf("expected request in new window to be allowed, decision=%+v err=%v", decision, err)
	}
	if got := decision.ResetAt.Unix(); got != windowStart.Unix()+120 {
		t.Fatalf("expected reset at %d in new window, got %d", windowStart.Unix()+120, got)
	}

	first, last := storage.keys[0], storage.keys[len(storage.keys)-1]
	if first == last {
		t.Fatalf("expected a distinct counter key per window, both were %q", first)
	}
	wantSuffix := ":" + strconv.FormatInt(windowStart.Unix()/60+1, 10)
	if !strings.HasSuffix(last, wantSuffix) {
		t.Fatalf("expected key %q to end with window id %q", last, wantSuffix)
	}
}

func TestRateLimiter_FailOpenOnStoreError(t *testing.T) {
	storage := newMockStorage()
	storage.err = fmt.Errorf("dial tcp: %w", domain.ErrStoreUnavailable)
	clock := &fakeClock{now: windowStart}
	service := newTestLimiter(t, storage, newTestRegistry(t), Config{FailOpen: true, Clock: clock.Now})

	decision, err := service.Allow(context.Background(), domain.Caller{Identity: "10.1.1.1", Tier: domain.TierUser})
	if err != nil {
		t.Fatalf("store failures must not surface as errors, got %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected fail-open decision to allow, got %+v", decision)
	}
	if !decision.Degraded {
		t.Fatalf("expected decision to be marked degraded")
	}
	if decision.Remaining != decision.Limit {
		t.Fatalf("expected full quota advertised while degraded, got %d/%d", decision.Remaining, decision.Limit)
	}
}

func TestRateLimiter_FailClosedOnStoreError(t *testing.T) {
	storage := newMockStorage()
	storage.err = domain.ErrStoreUnavailable
	clock := &fakeClock{now: windowStart}
	service := newTestLimiter(t, storage, newTestRegistry(t), Config{FailOpen: false, Clock: clock.Now})

	decision, err := service.Allow(context.Background(), domain.Caller{Identity: "10.1.1.2", Tier: domain.TierUser})
	if err != nil {
		t.Fatalf("store failures must not surface as errors, got %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected fail-closed decision to deny, got %+v", decision)
	}
	if !decision.Degraded || decision.Remaining != 0 {
		t.Fatalf("expected degraded denial with zero remaining, got %+v", decision)
	}
}

func TestRateLimiter_ResolvesTierPolicies(t *testing.T) {
	storage := newMockStorage()
	clock := &fakeClock{now: windowStart}
	service := newTestLimiter(t, storage, newTestRegistry(t), Config{Clock: clock.Now})

	ctx := context.Background()

	public, err := service.Allow(ctx, domain.Caller{Identity: "192.0.2.1", Tier: domain.TierPublic})
	if err != nil {
		t.Fatalf("unexpected error for public caller: %v", err)
	}
	admin, err := service.Allow(ctx, domain.Caller{Identity: "svc-token-1", Tier: domain.TierAdmin})
	if err != nil {
		t.Fatalf("unexpected error for admin caller: %v", err)
	}

	if public.Limit != 30 || admin.Limit != 300 {
		t.Fatalf("expected limits 30 and 300, got %d and %d", public.Limit, admin.Limit)
	}
}

func TestRateLimiter_UnknownTierFallsBackToPublic(t *testing.T) {
	storage := newMockStorage()
	clock := &fakeClock{now: windowStart}
	service := newTestLimiter(t, storage, newTestRegistry(t), Config{Clock: clock.Now})

	decision, err := service.Allow(context.Background(), domain.Caller{Identity: "192.0.2.2", Tier: "platinum"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Tier != domain.TierPublic || decision.Limit != 30 {
		t.Fatalf("expected public policy for unknown tier, got %+v", decision)
	}
}

func TestRateLimiter_EmptyIdentityGetsPlaceholder(t *testing.T) {
	storage := newMockStorage()
	clock := &fakeClock{now: windowStart}
	service := newTestLimiter(t, storage, newTestRegistry(t), Config{Clock: clock.Now})

	decision, err := service.Allow(context.Background(), domain.Caller{Identity: "  ", Tier: domain.TierPublic})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Identity != "unknown" {
		t.Fatalf("expected placeholder identity, got %q", decision.Identity)
	}
}

func TestNewRateLimiterService_Validation(t *testing.T) {
	registry := newTestRegistry(t)

	if _, err := NewRateLimiterService(nil, registry, Config{}); err == nil {
		t.Fatalf("expected error for nil storage")
	}
	if _, err := NewRateLimiterService(newMockStorage(), nil, Config{}); err == nil {
		t.Fatalf("expected error for nil registry")
	}
}

func TestNoopLimiter_AlwaysAllows(t *testing.T) {
	clock := &fakeClock{now: windowStart}
	limiter := NewNoopLimiter(newTestRegistry(t), clock.Now)

	ctx := context.Background()
	caller := domain.Caller{Identity: "198.51.100.20", Tier: domain.TierPublic}

	for i := 0; i < 100; i++ {
		decision, err := limiter.Allow(ctx, caller)
		if err != nil {
			t.Fatalf("unexpected error at attempt %d: %v", i+1, err)
		}
		if !decision.Allowed || !decision.Degraded {
			t.Fatalf("expected degraded allow at attempt %d, got %+v", i+1, decision)
		}
		if decision.Remaining != decision.Limit {
			t.Fatalf("expected full quota advertised, got %d/%d", decision.Remaining, decision.Limit)
		}
	}
}

// newTestRegistry builds the default tier table used across the tests.
func newTestRegistry(t *testing.T) *PolicyRegistry {
	t.Helper()
	registry, err := NewPolicyRegistry(
		domain.Policy{Tier: domain.TierPublic, Requests: 30, Window: time.Minute},
		domain.Policy{Tier: domain.TierUser, Requests: 100, Window: time.Minute},
		domain.Policy{Tier: domain.TierAdmin, Requests: 300, Window: time.Minute},
	)
	if err != nil {
		t.Fatalf("failed to create policy registry: %v", err)
	}
	return registry
}

// newTestLimiter is a helper that fails the test immediately if creation fails.
func newTestLimiter(t *testing.T, storage *mockStorage, registry *PolicyRegistry, cfg Config) *RateLimiterService {
	t.Helper()
	service, err := NewRateLimiterService(storage, registry, cfg)
	if err != nil {
		t.Fatalf("failed to create rate limiter service: %v", err)
	}
	return service
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type mockStorage struct {
	counts map[string]int64
	keys   []string
	err    error
}

func newMockStorage() *mockStorage {
	return &mockStorage{counts: make(map[string]int64)}
}

func (m *mockStorage) Increment(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.keys = append(m.keys, key)
	m.counts[key]++
	return m.counts[key], nil
}

func (m *mockStorage) HealthCheck(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	return nil
}

func (m *mockStorage) Close() error { return nil }
