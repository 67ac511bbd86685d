package api

import (
	"net/http"

	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
	"github.com/erazemk/arzenal/internal/workflow"
)

// TransfersHandler handles transfer endpoints.
type TransfersHandler struct {
	WF *workflow.Service
}

type createTransferRequest struct {
	FromBaseID       int64   `json:"from_base_id"`
	ToBaseID         int64   `json:"to_base_id"`
	EquipmentTypeID  int64   `json:"equipment_type_id"`
	Quantity         int     `json:"quantity"`
	AssetIDs         []int64 `json:"asset_ids"`
	TransportDetails string  `json:"transport_details"`
	Notes            string  `json:"notes"`
}

type updateTransferRequest struct {
	TransportDetails *string `json:"transport_details"`
	Notes            *string `json:"notes"`
}

var validTransferStatus = oneOf(model.TransferInitiated, model.TransferInTransit, model.TransferCompleted, model.TransferCancelled)

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	transfer, err := h.WF.InitiateTransfer(r.Context(), actor, workflow.InitiateTransferInput{
		FromBaseID:       req.FromBaseID,
		ToBaseID:         req.ToBaseID,
		EquipmentTypeID:  req.EquipmentTypeID,
		Quantity:         req.Quantity,
		AssetIDs:         req.AssetIDs,
		TransportDetails: req.TransportDetails,
		Notes:            req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusCreated, transfer)
}

// List handles GET /api/transfers.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := queryParser{r: r}
	f := store.TransferFilter{
		BaseID:          q.id("base_id"),
		FromBaseID:      q.id("from_base_id"),
		ToBaseID:        q.id("to_base_id"),
		EquipmentTypeID: q.id("equipment_type_id"),
		Status:          q.enum("status", validTransferStatus),
	}
	if q.err != nil {
		writeError(w, r, q.err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	transfers, err := h.WF.ListTransfers(r.Context(), actor, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, emptyIfNil(transfers))
}

// Get handles GET /api/transfers/{id}.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	byID(h.WF.GetTransfer)(w, r)
}

// Update handles PATCH /api/transfers/{id}.
func (h *TransfersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateTransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	transfer, err := h.WF.UpdateTransfer(r.Context(), actor, id, workflow.TransferPatch{
		TransportDetails: req.TransportDetails,
		Notes:            req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, transfer)
}

// Approve handles POST /api/transfers/{id}/approve.
func (h *TransfersHandler) Approve(w http.ResponseWriter, r *http.Request) {
	byID(h.WF.ApproveTransfer)(w, r)
}

// Complete handles POST /api/transfers/{id}/complete.
func (h *TransfersHandler) Complete(w http.ResponseWriter, r *http.Request) {
	byID(h.WF.CompleteTransfer)(w, r)
}

// Cancel handles POST /api/transfers/{id}/cancel.
func (h *TransfersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	withReason(h.WF.CancelTransfer)(w, r)
}

// Delete handles DELETE /api/transfers/{id}.
func (h *TransfersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleteByID(h.WF.DeleteTransfer)(w, r)
}
