package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
	"github.com/erazemk/arzenal/internal/workflow"
)

// PurchasesHandler handles purchase endpoints.
type PurchasesHandler struct {
	WF *workflow.Service
}

type createPurchaseRequest struct {
	BaseID          int64           `json:"base_id"`
	EquipmentTypeID int64           `json:"equipment_type_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	SupplierName    string          `json:"supplier_name"`
	SupplierContact string          `json:"supplier_contact"`
	PurchaseDate    *time.Time      `json:"purchase_date"`
	Notes           string          `json:"notes"`
}

type updatePurchaseRequest struct {
	Quantity        *int             `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	SupplierName    *string          `json:"supplier_name"`
	SupplierContact *string          `json:"supplier_contact"`
	Notes           *string          `json:"notes"`
}

var validPurchaseStatus = oneOf(model.PurchaseOrdered, model.PurchaseDelivered, model.PurchaseCancelled)

// Create handles POST /api/purchases.
func (h *PurchasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	purchase, err := h.WF.CreatePurchase(r.Context(), actor, workflow.CreatePurchaseInput{
		BaseID:          req.BaseID,
		EquipmentTypeID: req.EquipmentTypeID,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		SupplierName:    req.SupplierName,
		SupplierContact: req.SupplierContact,
		PurchaseDate:    req.PurchaseDate,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusCreated, purchase)
}

// List handles GET /api/purchases.
func (h *PurchasesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := queryParser{r: r}
	f := store.PurchaseFilter{
		BaseID:          q.id("base_id"),
		EquipmentTypeID: q.id("equipment_type_id"),
		Status:          q.enum("status", validPurchaseStatus),
	}
	if q.err != nil {
		writeError(w, r, q.err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	purchases, err := h.WF.ListPurchases(r.Context(), actor, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, emptyIfNil(purchases))
}

// Get handles GET /api/purchases/{id}.
func (h *PurchasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	byID(h.WF.GetPurchase)(w, r)
}

// Update handles PATCH /api/purchases/{id}.
func (h *PurchasesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updatePurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	purchase, err := h.WF.UpdatePurchase(r.Context(), actor, id, workflow.PurchasePatch{
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		SupplierName:    req.SupplierName,
		SupplierContact: req.SupplierContact,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, purchase)
}

// Deliver handles POST /api/purchases/{id}/deliver.
func (h *PurchasesHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	byID(h.WF.DeliverPurchase)(w, r)
}

// Cancel handles POST /api/purchases/{id}/cancel.
func (h *PurchasesHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	withReason(h.WF.CancelPurchase)(w, r)
}

// Delete handles DELETE /api/purchases/{id}.
func (h *PurchasesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleteByID(h.WF.DeletePurchase)(w, r)
}
