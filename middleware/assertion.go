package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/goPrereg/jwt"
)

type assertionContextKey struct{}

// AssertionFromContext returns the claims verified by [RequireAssertion].
func AssertionFromContext(ctx context.Context) (*jwt.AssertionClaims, bool) {
	claims, ok := ctx.Value(assertionContextKey{}).(*jwt.AssertionClaims)
	return claims, ok
}

// RequireAssertion verifies the bearer assertion with verifier. When op is
// not empty the assertion must have been issued for that operation.
func RequireAssertion(verifier *jwt.Manager, op string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Parse(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if op != "" && claims.Op != op {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), assertionContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
