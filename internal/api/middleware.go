package api

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/erazemk/arzenal/internal/auth"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

type contextKey string

const (
	actorKey  contextKey = "actor"
	claimsKey contextKey = "claims"
)

// AuthMiddleware validates the bearer token, rejects revoked tokens and
// deleted users, and puts the caller's Actor into the request context. Role
// and home base come from the database, not from the token.
func AuthMiddleware(secret string, database *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				jsonError(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			claims, err := auth.ValidateToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				jsonError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}

			revoked, err := store.IsTokenRevoked(r.Context(), database, claims.ID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if revoked {
				jsonError(w, r, http.StatusUnauthorized, "token has been revoked")
				return
			}

			user, err := store.GetUser(r.Context(), database, claims.UserID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if user == nil || user.DeletedAt != nil {
				jsonError(w, r, http.StatusUnauthorized, "account no longer exists")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, actorKey, user.Actor())
			ctx = logger.ContextWithUser(ctx, user.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that admits only the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				jsonError(w, r, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !actor.HasRole(roles...) {
				jsonError(w, r, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorFrom returns the authenticated actor stored by AuthMiddleware.
func ActorFrom(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

// GetClaims retrieves the JWT claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every request with method, path, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		rlog := logger.FromContext(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.RequestURI(),
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		})
		if rec.status >= http.StatusInternalServerError {
			rlog.Warn("Request failed")
			return
		}
		rlog.Info("Request handled")
	})
}
