package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vocaroom/internal/auth"
	"vocaroom/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// UserContextKey holds the verified *auth.User of the request, if any
const UserContextKey ContextKey = "user"

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vocaroom_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vocaroom_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	})
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	jwtKey    string
	jwtIssuer string
	limiter   *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(jwtKey, jwtIssuer string, limiter *security.RateLimiter) *Middleware {
	return &Middleware{jwtKey: jwtKey, jwtIssuer: jwtIssuer, limiter: limiter}
}

// OptionalAuth attaches the user to the context when a valid bearer token
// is present. Requests without a token proceed anonymously; requests with
// an invalid token are rejected so a client never silently loses identity.
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next(w, r)
			return
		}

		user, err := auth.Parse(token, m.jwtKey, m.jwtIssuer)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
	}
}

// RequireAuth rejects requests without a valid bearer token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		user, err := auth.Parse(token, m.jwtKey, m.jwtIssuer)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
	}
}

// RateLimit rejects clients that exceed the per-IP budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			respondError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

// Logging logs every request and records it in the Prometheus counters
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		requestDuration.Observe(elapsed.Seconds())
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, elapsed)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// GetUserFromContext retrieves the user from the request context.
// Returns nil for anonymous requests.
func GetUserFromContext(ctx context.Context) *auth.User {
	user, ok := ctx.Value(UserContextKey).(*auth.User)
	if !ok {
		return nil
	}
	return user
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
