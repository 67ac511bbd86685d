package api

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/auth"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

// UsersHandler handles user management endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	BaseID   *int64 `json:"base_id"`
}

type updateUserRequest struct {
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	BaseID   *int64 `json:"base_id"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// checkRoleBase validates a role and its home base.
func (h *UsersHandler) checkRoleBase(ctx context.Context, role string, baseID *int64) error {
	if !model.ValidRole(role) {
		return apperr.Validation("invalid role %q", role)
	}
	if baseID == nil {
		if model.RoleNeedsBase(role) {
			return apperr.Validation("role %s requires a home base", role)
		}
		return nil
	}
	base, err := store.GetBase(ctx, h.DB, *baseID)
	if err != nil {
		return err
	}
	if base == nil {
		return apperr.NotFound("base", *baseID)
	}
	return nil
}

func (h *UsersHandler) load(r *http.Request) (*model.User, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	if user == nil || user.DeletedAt != nil {
		return nil, apperr.NotFound("user", id)
	}
	return user, nil
}

// List handles GET /api/users. Base commanders see the users of their base.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	baseID, err := queryID(r, "base_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if actor.Role != model.RoleAdmin {
		baseID = actor.ScopeBase(baseID)
	}

	users, err := store.ListUsers(r.Context(), h.DB, baseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, emptyIfNil(users))
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, user)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || req.Role == "" {
		writeError(w, r, apperr.Validation("username, password, and role required"))
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		writeError(w, r, apperr.Validation("%s", err.Error()))
		return
	}
	if err := h.checkRoleBase(r.Context(), req.Role, req.BaseID); err != nil {
		writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, hash, req.FullName, req.Role, req.BaseID, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithField("newUser", user.Username).
		WithField("role", user.Role).Info("User created")
	jsonResponse(w, r, http.StatusCreated, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.checkRoleBase(r.Context(), req.Role, req.BaseID); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	if actor.UserID == user.ID && req.Role != model.RoleAdmin {
		writeError(w, r, apperr.Validation("cannot remove your own admin role"))
		return
	}

	if err := store.UpdateUser(r.Context(), h.DB, user.ID, req.FullName, req.Role, req.BaseID); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := store.GetUser(r.Context(), h.DB, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithField("targetUser", user.Username).
		WithField("role", req.Role).Info("User updated")
	jsonResponse(w, r, http.StatusOK, updated)
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	user, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		writeError(w, r, apperr.Validation("%s", err.Error()))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, hash); err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithField("targetUser", user.Username).Info("User password reset")
	jsonResponse(w, r, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}. Users are soft-deleted so workflow
// records keep their authors.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	if actor.UserID == user.ID {
		writeError(w, r, apperr.Validation("cannot delete yourself"))
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, user.ID, time.Now().UTC()); err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithField("targetUser", user.Username).Info("User deleted")
	w.WriteHeader(http.StatusNoContent)
}
