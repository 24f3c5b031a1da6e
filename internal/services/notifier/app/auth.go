package server

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// authenticator validates bearer tokens on state-mutating endpoints. An
// empty secret disables validation entirely, which is only acceptable in
// local development, so the first unauthenticated request logs a warning.
type authenticator struct {
	secret   []byte
	warnOnce sync.Once
}

func newAuthenticator(secret string) *authenticator {
	return &authenticator{secret: []byte(strings.TrimSpace(secret))}
}

func (a *authenticator) require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(a.secret) == 0 {
			a.warnOnce.Do(func() {
				log.Printf("notifier: API secret not configured, trigger endpoints are unauthenticated")
			})
			next(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if err := a.validate(token); err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func (a *authenticator) validate(token string) error {
	_, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	return err
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
