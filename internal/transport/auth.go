package transport

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated indicates missing or invalid credentials on an
// administrative operation.
var ErrUnauthenticated = errors.New("unauthenticated")

// AuthMiddleware enforces bearer token authentication against a static
// token list. Administrative batch operations are wrapped with it;
// single-project reads are not.
func AuthMiddleware(tokens []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			if !tokenAllowed(tokens, token) {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func tokenAllowed(tokens []string, presented string) bool {
	allowed := false
	for _, t := range tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(presented)) == 1 {
			allowed = true
		}
	}
	return allowed
}
