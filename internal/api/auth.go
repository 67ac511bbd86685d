package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/auth"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	TokenTTL  time.Duration
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, apperr.Validation("username and password required"))
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || user.DeletedAt != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		logger.FromContext(r.Context()).WithField("username", req.Username).
			WithField("remote", r.RemoteAddr).Warn("Login failed")
		jsonError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, claims, err := auth.GenerateToken(h.JWTSecret, user, h.TokenTTL, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithField("user", user.Username).
		WithField("role", user.Role).Info("User logged in")
	jsonResponse(w, r, http.StatusOK, loginResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user})
}

// Logout handles POST /api/auth/logout. The token stays revoked until it
// would have expired anyway.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time, time.Now().UTC()); err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("User logged out")
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	user, err := store.GetUser(r.Context(), h.DB, actor.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, apperr.NotFound("user", actor.UserID))
		return
	}
	jsonResponse(w, r, http.StatusOK, user)
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, r, apperr.Validation("current and new password required"))
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, r, apperr.Validation("%s", err.Error()))
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, actor.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		jsonError(w, r, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, actor.UserID, hash); err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("User changed own password")
	jsonResponse(w, r, http.StatusOK, map[string]string{"message": "password updated"})
}
