package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/ethvouch/fee-manager/database"
)

type contextKey int

const actorKey contextKey = iota

// ActorFromContext returns the token record the request authenticated
// with, if any.
func ActorFromContext(ctx context.Context) (*database.AuthToken, bool) {
	actor, ok := ctx.Value(actorKey).(*database.AuthToken)
	return actor, ok
}

// Middleware guards a handler with bearer token authentication. On success
// the validated token record is attached to the request context.
func (s *Service) Middleware(onError func(w http.ResponseWriter, r *http.Request, status int, msg string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plaintext, ok := bearerToken(r)
			if !ok {
				onError(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}
			token, err := s.Validate(r.Context(), plaintext)
			if err == ErrInvalidToken {
				onError(w, r, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			if err != nil {
				s.log.WithError(err).Error("token validation failed")
				onError(w, r, http.StatusInternalServerError, "internal server error")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, token)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
