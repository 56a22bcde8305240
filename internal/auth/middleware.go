package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/httpserver"
)

// Resolver bundles the three credential resolvers the middleware dispatches
// across. Session is optional — nil disables the user-session branch (e.g.
// no identity provider configured) without disabling API keys/device tokens.
type Resolver struct {
	APIKey     *APIKeyResolver
	Device     *DeviceTokenResolver
	Session    *SessionResolver
	Logger     *slog.Logger
	RateLimit  FailureLimiter
}

// FailureLimiter records and checks authentication failures per client, used
// to rate-limit brute-force attempts against the three credential kinds.
// Nil is a valid FailureLimiter-free configuration (limiter disabled).
type FailureLimiter interface {
	Allow(remoteAddr string) bool
	RecordFailure(remoteAddr string)
}

// Require returns a middleware that authenticates the request via
// X-API-Key, Authorization: Bearer dt_<...>, or Authorization: Bearer <JWT>,
// in that order, and stores the resulting Principal in the request context.
// A presented credential that is unknown, malformed or expired is rejected
// with one shared 401 message, so callers cannot tell those causes apart; a
// missing credential and a rate-limited caller get their own 401 messages,
// and a dependency failure is a 500.
func (res *Resolver) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if res.RateLimit != nil && !res.RateLimit.Allow(r.RemoteAddr) {
			httpserver.RespondAPIErr(w, apierr.Unauthorized("too many authentication attempts"))
			return
		}

		p, apiErr := res.resolve(r)
		if apiErr != nil {
			if apiErr.Kind == apierr.KindInternal {
				res.Logger.Error("auth dependency failure", "error", apiErr)
			}
			if res.RateLimit != nil && apiErr.Kind == apierr.KindUnauthorized {
				res.RateLimit.RecordFailure(r.RemoteAddr)
			}
			httpserver.RespondAPIErr(w, apiErr)
			return
		}
		if p == nil {
			httpserver.RespondAPIErr(w, apierr.Unauthorized("no valid authentication provided"))
			return
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), p)))
	})
}

// Optional returns a middleware with the same precedence as Require, but
// never rejects the request: an absent or invalid credential simply leaves
// no Principal in the context.
func (res *Resolver) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := res.resolve(r)
		if p != nil {
			r = r.WithContext(NewContext(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

func (res *Resolver) resolve(r *http.Request) (*Principal, *apierr.Error) {
	ctx := r.Context()

	if rawKey := r.Header.Get("X-API-Key"); rawKey != "" && res.APIKey != nil {
		return res.APIKey.Resolve(ctx, rawKey)
	}

	authHeader := r.Header.Get("Authorization")
	if bearer, ok := stripBearer(authHeader); ok {
		switch {
		case strings.HasPrefix(bearer, DeviceTokenPrefix) && res.Device != nil:
			return res.Device.Resolve(ctx, bearer)
		case res.Session != nil:
			if p := res.Session.Resolve(ctx, bearer); p != nil {
				return p, nil
			}
			return nil, apierr.Unauthorized("invalid credentials")
		}
	}

	return nil, nil
}

func stripBearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) {
		return "", false
	}
	if !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
