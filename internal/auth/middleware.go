package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

// Role names as sent by the upstream gateway. Roles expand to capability
// sets; the rest of the service only ever sees capabilities.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var roleCapabilities = map[string][]Capability{
	RoleUser:  {CapPlaceOrder},
	RoleAdmin: {CapPlaceOrder, CapCancelOrder, CapManageCatalog},
}

// Middleware resolves the caller identity from the X-User and X-Roles headers
// set by the authenticating gateway and stores a Principal on the request
// context. Requests without an identity proceed with a nil principal; every
// guarded operation then fails with Forbidden.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := r.Header.Get("X-User")
		if subject == "" {
			next.ServeHTTP(w, r)
			return
		}

		var caps []Capability
		for _, role := range strings.Split(r.Header.Get("X-Roles"), ",") {
			caps = append(caps, roleCapabilities[strings.TrimSpace(strings.ToLower(role))]...)
		}

		ctx := WithPrincipal(r.Context(), NewPrincipal(subject, caps...))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom returns the caller bound to ctx, or nil when the request was
// anonymous.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextKey{}).(*Principal)
	return p
}
