package middleware

import (
	"context"
	"net/http"
	"strings"

	authkeep "github.com/authkeep/authkeep"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity injected by [Guard].
func IdentityFromContext(ctx context.Context) (*authkeep.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authkeep.Identity)
	return id, ok
}

// Guard authenticates each request and injects the resolved identity into the
// request context. The access token is read from the access_token cookie
// first, then from the Authorization bearer header. Any failure yields a
// uniform 401.
func Guard(engine *authkeep.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := AccessTokenFromRequest(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessTokenFromRequest extracts the access token: cookie first, then the
// Authorization bearer header.
func AccessTokenFromRequest(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
