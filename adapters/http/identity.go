package http

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/artpar/documind/domain/usage"
	"github.com/artpar/documind/ports"
)

// SessionCookie carries the identity provider's access token for browser clients.
const SessionCookie = "sb-access-token"

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id usage.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity resolved for the request.
// The zero Identity (unresolved) is returned when none was set.
func IdentityFrom(ctx context.Context) usage.Identity {
	id, _ := ctx.Value(identityKey{}).(usage.Identity)
	return id
}

// IdentityResolver turns a request into a usage.Identity once, at the edge.
type IdentityResolver struct {
	verifier   ports.IdentityVerifier
	trustProxy bool
	logger     zerolog.Logger
}

// NewIdentityResolver creates a resolver. verifier may be nil, in which
// case every caller is a guest.
func NewIdentityResolver(verifier ports.IdentityVerifier, trustProxy bool, logger zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{verifier: verifier, trustProxy: trustProxy, logger: logger}
}

// Resolve returns the caller's identity: a verified user, a guest keyed by
// client address, or the unresolved zero value.
func (ir *IdentityResolver) Resolve(r *http.Request) usage.Identity {
	if tok := extractSessionToken(r); tok != "" && ir.verifier != nil {
		userID, err := ir.verifier.Verify(tok)
		switch id := usage.User(userID); {
		case err != nil:
			ir.logger.Debug().Err(err).Msg("invalid session token, treating caller as guest")
		case id.Resolved():
			return id
		default:
			ir.logger.Debug().Msg("session token has a blank subject, treating caller as guest")
		}
	}
	return usage.Guest(extractIP(r, ir.trustProxy))
}

// Middleware stores the resolved identity in the request context.
func (ir *IdentityResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ir.Resolve(r)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// extractSessionToken reads a bearer token, falling back to the session cookie.
func extractSessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// extractIP extracts the client IP from the request.
// Forwarding headers are only honored behind a trusted proxy.
func extractIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
