package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/dashboard"
	"github.com/erazemk/arzenal/internal/model"
)

// DashboardHandler handles dashboard endpoints.
type DashboardHandler struct {
	Dash *dashboard.Service
}

// parseFilter reads base_id, equipment_type_id, statuses (comma separated or
// repeated), start_date and end_date.
func parseFilter(r *http.Request) (dashboard.Filter, error) {
	q := queryParser{r: r}
	f := dashboard.Filter{
		BaseID:          q.id("base_id"),
		EquipmentTypeID: q.id("equipment_type_id"),
	}
	if q.err != nil {
		return f, q.err
	}

	for _, raw := range r.URL.Query()["statuses"] {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if !model.ValidAssetStatus(s) {
				return f, apperr.Validation("invalid status %q", s)
			}
			f.Statuses = append(f.Statuses, s)
		}
	}

	var err error
	if f.Start, err = queryDate(r, "start_date", false); err != nil {
		return f, err
	}
	if f.End, err = queryDate(r, "end_date", true); err != nil {
		return f, err
	}
	return f, nil
}

func queryDate(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := dashboard.ParseDate(v, endOfDay)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parsePage(r *http.Request) (dashboard.PageRequest, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return dashboard.PageRequest{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return dashboard.PageRequest{}, err
	}
	return dashboard.PageRequest{Page: page, Limit: limit}, nil
}

// Metrics handles GET /api/dashboard/metrics.
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	m, err := h.Dash.Metrics(r.Context(), actor, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, m)
}

// NetMovement handles GET /api/dashboard/net-movement.
func (h *DashboardHandler) NetMovement(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	b, err := h.Dash.NetMovement(r.Context(), actor, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, b)
}

// PurchasesDetail handles GET /api/dashboard/purchases-detail.
func (h *DashboardHandler) PurchasesDetail(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := parsePage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	page, err := h.Dash.PurchasesDetail(r.Context(), actor, f, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, page)
}

// TransfersInDetail handles GET /api/dashboard/transfers-in-detail.
func (h *DashboardHandler) TransfersInDetail(w http.ResponseWriter, r *http.Request) {
	h.transfersDetail(w, r, h.Dash.TransfersInDetail)
}

// TransfersOutDetail handles GET /api/dashboard/transfers-out-detail.
func (h *DashboardHandler) TransfersOutDetail(w http.ResponseWriter, r *http.Request) {
	h.transfersDetail(w, r, h.Dash.TransfersOutDetail)
}

type transfersDetailFunc func(ctx context.Context, actor model.Actor, f dashboard.Filter, p dashboard.PageRequest) (*dashboard.Page[model.Transfer], error)

func (h *DashboardHandler) transfersDetail(w http.ResponseWriter, r *http.Request, fn transfersDetailFunc) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := parsePage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	page, err := fn(r.Context(), actor, f, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, r, http.StatusOK, page)
}
