package api

import (
	"context"
	"net/http"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/model"
)

// byID adapts a workflow operation on a single record to a handler that
// answers 200 with the resulting record.
func byID[T any](fn func(context.Context, model.Actor, int64) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		actor, _ := ActorFrom(r.Context())
		v, err := fn(r.Context(), actor, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		jsonResponse(w, r, http.StatusOK, v)
	}
}

// deleteByID adapts a workflow delete to a handler that answers 204.
func deleteByID(fn func(context.Context, model.Actor, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		actor, _ := ActorFrom(r.Context())
		if err := fn(r.Context(), actor, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// withReason adapts a cancel operation that takes a free-text reason. An
// empty body is allowed.
func withReason[T any](fn func(context.Context, model.Actor, int64, string) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req reasonRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, err)
				return
			}
		}
		actor, _ := ActorFrom(r.Context())
		v, err := fn(r.Context(), actor, id, req.Reason)
		if err != nil {
			writeError(w, r, err)
			return
		}
		jsonResponse(w, r, http.StatusOK, v)
	}
}

// queryParser collects the first error while reading several query
// parameters.
type queryParser struct {
	r   *http.Request
	err error
}

func (p *queryParser) id(name string) *int64 {
	if p.err != nil {
		return nil
	}
	v, err := queryID(p.r, name)
	p.err = err
	return v
}

func (p *queryParser) enum(name string, valid func(string) bool) string {
	v := p.r.URL.Query().Get(name)
	if p.err != nil || v == "" {
		return ""
	}
	if !valid(v) {
		p.err = apperr.Validation("invalid %s %q", name, v)
		return ""
	}
	return v
}

func oneOf(values ...string) func(string) bool {
	return func(v string) bool {
		for _, x := range values {
			if v == x {
				return true
			}
		}
		return false
	}
}
