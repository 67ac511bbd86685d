package api

import (
	"net/http"
	"time"

	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
	"github.com/erazemk/arzenal/internal/workflow"
)

// AssignmentsHandler handles assignment endpoints.
type AssignmentsHandler struct {
	WF *workflow.Service
}

type createAssignmentRequest struct {
	AssetID            int64      `json:"asset_id"`
	AssigneeID         int64      `json:"assignee_id"`
	ExpectedReturnDate *time.Time `json:"expected_return_date"`
	Purpose            string     `json:"purpose"`
	Notes              string     `json:"notes"`
}

type updateAssignmentRequest struct {
	ExpectedReturnDate *time.Time `json:"expected_return_date"`
	Purpose            *string    `json:"purpose"`
	Notes              *string    `json:"notes"`
}

type returnAssignmentRequest struct {
	Condition string `json:"condition"`
}

type markAssignmentRequest struct {
	Status string `json:"status"`
}

var validAssignmentStatus = oneOf(model.AssignmentActive, model.AssignmentReturned,
	model.AssignmentLost, model.AssignmentDamaged, model.AssignmentExpended)

// Create handles POST /api/assignments.
func (h *AssignmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	assignment, err := h.WF.CreateAssignment(r.Context(), actor, workflow.CreateAssignmentInput{
		AssetID:            req.AssetID,
		AssigneeID:         req.AssigneeID,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Purpose:            req.Purpose,
		Notes:              req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusCreated, assignment)
}

// List handles GET /api/assignments.
func (h *AssignmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := queryParser{r: r}
	f := store.AssignmentFilter{
		BaseID:     q.id("base_id"),
		AssetID:    q.id("asset_id"),
		AssigneeID: q.id("assignee_id"),
		Status:     q.enum("status", validAssignmentStatus),
	}
	if q.err != nil {
		writeError(w, r, q.err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	assignments, err := h.WF.ListAssignments(r.Context(), actor, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, emptyIfNil(assignments))
}

// Get handles GET /api/assignments/{id}.
func (h *AssignmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	byID(h.WF.GetAssignment)(w, r)
}

// Update handles PATCH /api/assignments/{id}.
func (h *AssignmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateAssignmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	assignment, err := h.WF.UpdateAssignment(r.Context(), actor, id, workflow.AssignmentPatch{
		ExpectedReturnDate: req.ExpectedReturnDate,
		Purpose:            req.Purpose,
		Notes:              req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, assignment)
}

// Return handles POST /api/assignments/{id}/return. The body may carry the
// condition the asset came back in.
func (h *AssignmentsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req returnAssignmentRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	actor, _ := ActorFrom(r.Context())
	assignment, err := h.WF.ReturnAssignment(r.Context(), actor, id, req.Condition)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, assignment)
}

// Mark handles POST /api/assignments/{id}/mark with status LOST or DAMAGED.
func (h *AssignmentsHandler) Mark(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req markAssignmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	assignment, err := h.WF.MarkAssignment(r.Context(), actor, id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, assignment)
}

// Delete handles DELETE /api/assignments/{id}.
func (h *AssignmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleteByID(h.WF.DeleteAssignment)(w, r)
}
