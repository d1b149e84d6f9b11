package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/zeusync/arena/internal/core/observability/log"
)

// TokenAuth guards HTTP handlers with a shared token, taken from the
// "token" query parameter or an "Authorization: Bearer" header. An empty
// token lets every request through.
type TokenAuth struct {
	token  string
	logger log.Log
}

func NewTokenAuth(token string, logger log.Log) *TokenAuth {
	return &TokenAuth{token: token, logger: logger}
}

func (a *TokenAuth) Enabled() bool {
	return a.token != ""
}

// Authorize checks the request credentials.
func (a *TokenAuth) Authorize(r *http.Request) error {
	if !a.Enabled() {
		return nil
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// Wrap rejects unauthorized requests with 401 before they reach next.
func (a *TokenAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Authorize(r); err != nil {
			a.logger.Warn("Rejected request",
				log.String("path", r.URL.Path),
				log.String("remote_addr", r.RemoteAddr))
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
