package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/JonMunkholm/ledger/internal/auth"
	"github.com/JonMunkholm/ledger/internal/core"
)

// ErrorFunc writes err as the response. Middleware in this package never
// formats error bodies itself.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// Authenticator resolves a session token to the user it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

var errNoToken = &core.Error{Kind: core.ErrUnauthorized, Code: "AUTH004", Message: "Not authorized, no token"}

// Protect requires a valid session token, taken from a Bearer Authorization
// header or else from the session cookie. The resolved principal is stored
// in the request context for handlers and Authorize.
func Protect(a Authenticator, cookieName string, fail ErrorFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie(cookieName); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				fail(w, r, errNoToken)
				return
			}

			p, err := a.Authenticate(r.Context(), token)
			if err != nil {
				fail(w, r, err)
				return
			}
			recordPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Authorize admits only principals holding one of roles. It must run after
// Protect.
func Authorize(fail ErrorFunc, roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				fail(w, r, errNoToken)
				return
			}
			if !p.Is(roles...) {
				fail(w, r, &core.Error{Kind: core.ErrForbidden, Code: "AUTH005"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
