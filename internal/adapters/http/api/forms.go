// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"strings"
)

const defaultMaxListLimit = 100

// FormsHandler handles form listing and lookup requests.
type FormsHandler struct {
	deps         Dependencies
	maxListLimit int
}

// NewFormsHandler creates a new forms handler.
func NewFormsHandler(deps Dependencies, maxListLimit int) *FormsHandler {
	if maxListLimit <= 0 {
		maxListLimit = defaultMaxListLimit
	}
	return &FormsHandler{deps: deps, maxListLimit: maxListLimit}
}

// HandleListForms handles GET /api/v1/forms requests.
func (h *FormsHandler) HandleListForms(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_forms"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit, offset, err := parsePageParams(r, h.maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	schemas, err := h.deps.ListForms(r.Context(), limit, offset)
	if err != nil {
		if isProviderDown(err) {
			writeError(w, http.StatusBadGateway, "provider_error", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(schemas),
		"forms": schemas,
	})
}

// HandleForm handles GET /api/v1/forms/{uid} and
// GET /api/v1/forms/{uid}/summary requests.
func (h *FormsHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_form"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/forms/")
	uid, rest, _ := strings.Cut(path, "/")
	if uid == "" || (rest != "" && rest != "summary") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if rest == "summary" {
		summary, err := h.deps.GetFormSummary(r.Context(), uid)
		if err != nil {
			h.writeFormError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	schema, err := h.deps.GetSchema(r.Context(), uid)
	if err != nil {
		h.writeFormError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (h *FormsHandler) writeFormError(w http.ResponseWriter, err error) {
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
	case isProviderDown(err):
		writeError(w, http.StatusBadGateway, "provider_error", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// parsePageParams extracts and bounds limit/offset query parameters.
func parsePageParams(r *http.Request, maxLimit int) (limit, offset int, err error) {
	limit = maxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return 0, 0, ErrBadRequest
		}
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, ErrBadRequest
		}
	}
	return limit, offset, nil
}
