// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Nikhil9989/faculty-api/internal/core/domain"
	"github.com/Nikhil9989/faculty-api/internal/core/ports"
)

const rateLimitExceededMessage = "you have reached the maximum number of requests or actions allowed within a certain time frame"

const apiKeyHeader = "API_KEY"

// AuthContext descreve o chamador autenticado pela camada de autenticação,
// quando houver uma.
type AuthContext struct {
	Subject    string
	Privileged bool
}

type authContextKey struct{}

// WithAuthContext anexa o contexto de autenticação à requisição. A camada de
// autenticação chama isto antes do rate limiter.
func WithAuthContext(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthContextFrom recupera o contexto de autenticação, se presente.
func AuthContextFrom(ctx context.Context) (AuthContext, bool) {
	auth, ok := ctx.Value(authContextKey{}).(AuthContext)
	return auth, ok
}

// Classifier deriva identidade e tier do chamador a partir da requisição.
type Classifier func(r *http.Request) domain.Caller

type options struct {
	classifier Classifier
	logger     *zap.Logger
	now        func() time.Time
}

// Option ajusta o comportamento do middleware.
type Option func(*options)

// WithClassifier substitui a classificação padrão de chamadores.
func WithClassifier(fn Classifier) Option {
	return func(o *options) {
		if fn != nil {
			o.classifier = fn
		}
	}
}

// WithLogger define o logger de falhas inesperadas.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock injeta o relógio usado no cálculo de Retry-After.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.now = clock
		}
	}
}

// NewRateLimiterMiddleware aplica a decisão de rate limiting a cada
// requisição e anuncia a cota nos cabeçalhos X-RateLimit-*.
func NewRateLimiterMiddleware(limiter ports.RateLimiter, opts ...Option) func(http.Handler) http.Handler {
	o := options{classifier: defaultClassifier, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			caller := o.classifier(r)

			decision, err := limiter.Allow(r.Context(), caller)
			if err != nil {
				o.logger.Error("rate limiter failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			writeQuotaHeaders(w, decision)

			if !decision.Allowed {
				writeTooManyRequests(w, retryAfterSeconds(decision.ResetAt, o.now()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// defaultClassifier resolve o tier em três degraus: contexto autenticado
// (admin para privilegiados, user para os demais), chave de API no cabeçalho
// (user) e, por fim, IP de origem (public).
func defaultClassifier(r *http.Request) domain.Caller {
	if auth, ok := AuthContextFrom(r.Context()); ok {
		tier := domain.TierUser
		if auth.Privileged {
			tier = domain.TierAdmin
		}
		identity := strings.TrimSpace(auth.Subject)
		if identity == "" {
			identity = extractIP(r)
		}
		return domain.Caller{Identity: identity, Tier: tier}
	}

	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		return domain.Caller{Identity: key, Tier: domain.TierUser}
	}

	return domain.Caller{Identity: extractIP(r), Tier: domain.TierPublic}
}

func extractIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if xRealIP != "" {
		return xRealIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}

	return host
}

func writeQuotaHeaders(w http.ResponseWriter, decision domain.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
}

// retryAfterSeconds arredonda para cima e nunca devolve menos de um segundo,
// para o cliente não redisparar dentro da mesma janela.
func retryAfterSeconds(resetAt, now time.Time) int64 {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 1
	}
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

func writeTooManyRequests(w http.ResponseWriter, retryAfter int64) {
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(rateLimitExceededMessage))
}
