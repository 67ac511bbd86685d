package api

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/store"
)

// BasesHandler handles base endpoints.
type BasesHandler struct {
	DB *sql.DB
}

type baseRequest struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Location string `json:"location"`
}

func (req *baseRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Name == "" || req.Code == "" {
		return apperr.Validation("name and code required")
	}
	return nil
}

// List handles GET /api/bases.
func (h *BasesHandler) List(w http.ResponseWriter, r *http.Request) {
	bases, err := store.ListBases(r.Context(), h.DB, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, emptyIfNil(bases))
}

// Get handles GET /api/bases/{id}.
func (h *BasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	base, err := store.GetBase(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if base == nil {
		writeError(w, r, apperr.NotFound("base", id))
		return
	}
	jsonResponse(w, r, http.StatusOK, base)
}

// Create handles POST /api/bases.
func (h *BasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req baseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	base, err := store.CreateBase(r.Context(), h.DB, req.Name, req.Code, req.Location, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithField("base", base.Code).Info("Base created")
	jsonResponse(w, r, http.StatusCreated, base)
}

// Update handles PUT /api/bases/{id}.
func (h *BasesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req baseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	existing, err := store.GetBase(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing == nil {
		writeError(w, r, apperr.NotFound("base", id))
		return
	}

	if err := store.UpdateBase(r.Context(), h.DB, id, req.Name, req.Code, req.Location, time.Now().UTC()); err != nil {
		writeError(w, r, err)
		return
	}

	base, err := store.GetBase(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, base)
}

// Delete handles DELETE /api/bases/{id}.
func (h *BasesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	existing, err := store.GetBase(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing == nil {
		writeError(w, r, apperr.NotFound("base", id))
		return
	}

	if err := store.DeleteBase(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithField("base", existing.Code).Info("Base deleted")
	w.WriteHeader(http.StatusNoContent)
}
