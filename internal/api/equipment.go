package api

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/imaging"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

// EquipmentHandler handles equipment type endpoints.
type EquipmentHandler struct {
	DB *sql.DB
}

type equipmentRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (req *equipmentRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Name == "" || req.Code == "" {
		return apperr.Validation("name and code required")
	}
	if !model.ValidCategory(req.Category) {
		return apperr.Validation("invalid category %q", req.Category)
	}
	return nil
}

func (h *EquipmentHandler) load(r *http.Request) (*model.EquipmentType, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	et, err := store.GetEquipmentType(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	if et == nil {
		return nil, apperr.NotFound("equipment type", id)
	}
	return et, nil
}

// List handles GET /api/equipment-types.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category != "" && !model.ValidCategory(category) {
		writeError(w, r, apperr.Validation("invalid category %q", category))
		return
	}

	types, err := store.ListEquipmentTypes(r.Context(), h.DB, category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, emptyIfNil(types))
}

// Get handles GET /api/equipment-types/{id}.
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	et, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, et)
}

// Create handles POST /api/equipment-types.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	et, err := store.CreateEquipmentType(r.Context(), h.DB, req.Name, req.Code, req.Category, req.Description, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithField("equipmentType", et.Code).Info("Equipment type created")
	jsonResponse(w, r, http.StatusCreated, et)
}

// Update handles PUT /api/equipment-types/{id}.
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	et, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req equipmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.UpdateEquipmentType(r.Context(), h.DB, et.ID, req.Name, req.Code, req.Category, req.Description, time.Now().UTC()); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := store.GetEquipmentType(r.Context(), h.DB, et.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, updated)
}

// Delete handles DELETE /api/equipment-types/{id}.
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	et, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeleteEquipmentType(r.Context(), h.DB, et.ID); err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithField("equipmentType", et.Code).Info("Equipment type deleted")
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles PUT /api/equipment-types/{id}/image. The photo is sent
// as the "image" field of a multipart form.
func (h *EquipmentHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	et, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		writeError(w, r, apperr.Validation("file too large or invalid multipart form"))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, apperr.Validation("image file required"))
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.SetEquipmentImage(r.Context(), h.DB, et.ID, photo.Data, photo.MIME, time.Now().UTC()); err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).WithField("equipmentType", et.Code).
		WithField("size", len(photo.Data)).Info("Equipment photo uploaded")
	jsonResponse(w, r, http.StatusOK, map[string]any{
		"message": "image uploaded",
		"width":   photo.Width,
		"height":  photo.Height,
	})
}

// GetImage handles GET /api/equipment-types/{id}/image.
func (h *EquipmentHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, mime, err := store.GetEquipmentImage(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, r, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
