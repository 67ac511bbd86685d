package api

import (
	"net/http"

	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
	"github.com/erazemk/arzenal/internal/workflow"
)

// AssetsHandler handles asset pool endpoints.
type AssetsHandler struct {
	WF *workflow.Service
}

type createAssetRequest struct {
	EquipmentTypeID int64  `json:"equipment_type_id"`
	BaseID          int64  `json:"base_id"`
	Quantity        int    `json:"quantity"`
	Condition       string `json:"condition"`
	SerialNumber    string `json:"serial_number"`
	Notes           string `json:"notes"`
}

type updateAssetRequest struct {
	Condition *string `json:"condition"`
	Status    *string `json:"status"`
	Notes     *string `json:"notes"`
}

// Create handles POST /api/assets.
func (h *AssetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	asset, err := h.WF.CreateAsset(r.Context(), actor, workflow.CreateAssetInput{
		EquipmentTypeID: req.EquipmentTypeID,
		BaseID:          req.BaseID,
		Quantity:        req.Quantity,
		Condition:       req.Condition,
		SerialNumber:    req.SerialNumber,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusCreated, asset)
}

// List handles GET /api/assets.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := queryParser{r: r}
	f := store.AssetFilter{
		BaseID:          q.id("base_id"),
		EquipmentTypeID: q.id("equipment_type_id"),
		PurchaseID:      q.id("purchase_id"),
		Status:          q.enum("status", model.ValidAssetStatus),
		Condition:       q.enum("condition", model.ValidCondition),
	}
	if q.err != nil {
		writeError(w, r, q.err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	assets, err := h.WF.ListAssets(r.Context(), actor, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, emptyIfNil(assets))
}

// Get handles GET /api/assets/{id}.
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	byID(h.WF.GetAsset)(w, r)
}

// Update handles PATCH /api/assets/{id}.
func (h *AssetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateAssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	asset, err := h.WF.UpdateAsset(r.Context(), actor, id, workflow.AssetPatch{
		Condition: req.Condition,
		Status:    req.Status,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, asset)
}

// Delete handles DELETE /api/assets/{id}.
func (h *AssetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleteByID(h.WF.DeleteAsset)(w, r)
}
