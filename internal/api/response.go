package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/logger"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

type errorResponse struct {
	Error     string      `json:"error"`
	Kind      apperr.Kind `json:"kind,omitempty"`
	Requested *int        `json:"requested,omitempty"`
	Available *int        `json:"available,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.FromContext(r.Context()).WithError(err).Error("Encoding response")
		}
	}
}

// jsonError writes a JSON error response with an explicit status.
func jsonError(w http.ResponseWriter, r *http.Request, status int, message string) {
	jsonResponse(w, r, status, errorResponse{Error: message})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAccessDenied:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidState, apperr.KindConflict, apperr.KindInsufficientSupply:
		return http.StatusConflict
	case apperr.KindAllocation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError writes a typed failure, or logs an infrastructure failure and
// answers with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		logger.FromContext(r.Context()).WithError(err).Errorf("%s %s failed", r.Method, r.URL.Path)
		jsonError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	resp := errorResponse{Error: e.Message, Kind: e.Kind}
	if e.Kind == apperr.KindInsufficientSupply {
		resp.Requested = &e.Requested
		resp.Available = &e.Available
	}
	jsonResponse(w, r, statusFor(e.Kind), resp)
}

// decodeJSON decodes a JSON request body into the given target. Malformed
// bodies come back as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter.
func queryID(r *http.Request, name string) (*int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.Validation("invalid %s %q", name, v)
	}
	return &id, nil
}

// queryInt parses an optional integer query parameter, zero when absent.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("invalid %s %q", name, v)
	}
	return n, nil
}

// emptyIfNil keeps list responses as [] instead of null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
