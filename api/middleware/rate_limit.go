package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/freshkart/freshkart-backend/api/responses"
	pkgerrors "github.com/freshkart/freshkart-backend/pkg/errors"
	"github.com/freshkart/freshkart-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

// RateLimitPolicy defines fixed-window throttling for a traffic surface.
type RateLimitPolicy struct {
	name   string
	window time.Duration
	limit  int
}

// NewRateLimitPolicy builds a policy with the supplied window and per-user limit.
func NewRateLimitPolicy(name string, window time.Duration, limit int) RateLimitPolicy {
	return RateLimitPolicy{
		name:   strings.ToLower(strings.TrimSpace(name)),
		window: window,
		limit:  limit,
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

// RateLimit throttles authenticated requests per user with a Redis fixed
// window. Money-moving surfaces (checkout, verification) get tight limits; a
// Redis outage fails open rather than blocking payments.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			key := store.RateLimitKey(policy.name, userID.String())

			count, err := store.IncrWithTTL(ctx, key, policy.window)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "rate_limit", policy.name), "rate limit store unavailable, failing open")
				}
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(policy.limit) {
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"rate_limit": policy.name,
						"count":      count,
						"limit":      policy.limit,
					})
					logg.Warn(ctx, "rate limit exceeded")
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(policy.window.Seconds())))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, slow down"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
