package api

import (
	"net/http"
	"time"

	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
	"github.com/erazemk/arzenal/internal/workflow"
)

// ExpendituresHandler handles expenditure endpoints.
type ExpendituresHandler struct {
	WF *workflow.Service
}

type createExpenditureRequest struct {
	BaseID           int64      `json:"base_id"`
	EquipmentTypeID  int64      `json:"equipment_type_id"`
	Quantity         int        `json:"quantity"`
	Reason           string     `json:"reason"`
	AssetIDs         []int64    `json:"asset_ids"`
	ExpenditureDate  *time.Time `json:"expenditure_date"`
	OperationDetails string     `json:"operation_details"`
	Notes            string     `json:"notes"`
}

type updateExpenditureRequest struct {
	Reason           *string `json:"reason"`
	OperationDetails *string `json:"operation_details"`
	Notes            *string `json:"notes"`
}

var validExpenditureStatus = oneOf(model.ExpenditurePending, model.ExpenditureApproved,
	model.ExpenditureCompleted, model.ExpenditureCancelled)

// Create handles POST /api/expenditures.
func (h *ExpendituresHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createExpenditureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	expenditure, err := h.WF.CreateExpenditure(r.Context(), actor, workflow.CreateExpenditureInput{
		BaseID:           req.BaseID,
		EquipmentTypeID:  req.EquipmentTypeID,
		Quantity:         req.Quantity,
		Reason:           req.Reason,
		AssetIDs:         req.AssetIDs,
		ExpenditureDate:  req.ExpenditureDate,
		OperationDetails: req.OperationDetails,
		Notes:            req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusCreated, expenditure)
}

// List handles GET /api/expenditures.
func (h *ExpendituresHandler) List(w http.ResponseWriter, r *http.Request) {
	q := queryParser{r: r}
	f := store.ExpenditureFilter{
		BaseID:          q.id("base_id"),
		EquipmentTypeID: q.id("equipment_type_id"),
		Status:          q.enum("status", validExpenditureStatus),
		Reason:          q.enum("reason", model.ValidReason),
	}
	if q.err != nil {
		writeError(w, r, q.err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	expenditures, err := h.WF.ListExpenditures(r.Context(), actor, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, emptyIfNil(expenditures))
}

// Get handles GET /api/expenditures/{id}.
func (h *ExpendituresHandler) Get(w http.ResponseWriter, r *http.Request) {
	byID(h.WF.GetExpenditure)(w, r)
}

// Update handles PATCH /api/expenditures/{id}.
func (h *ExpendituresHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateExpenditureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	expenditure, err := h.WF.UpdateExpenditure(r.Context(), actor, id, workflow.ExpenditurePatch{
		Reason:           req.Reason,
		OperationDetails: req.OperationDetails,
		Notes:            req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, expenditure)
}

// Approve handles POST /api/expenditures/{id}/approve.
func (h *ExpendituresHandler) Approve(w http.ResponseWriter, r *http.Request) {
	byID(h.WF.ApproveExpenditure)(w, r)
}

// Complete handles POST /api/expenditures/{id}/complete.
func (h *ExpendituresHandler) Complete(w http.ResponseWriter, r *http.Request) {
	byID(h.WF.CompleteExpenditure)(w, r)
}

// Cancel handles POST /api/expenditures/{id}/cancel.
func (h *ExpendituresHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	withReason(h.WF.CancelExpenditure)(w, r)
}

// Delete handles DELETE /api/expenditures/{id}.
func (h *ExpendituresHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleteByID(h.WF.DeleteExpenditure)(w, r)
}
