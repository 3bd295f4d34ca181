// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/repository"
	service "github.com/irakobi/wildlife-conservation-backend/internal/app"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/model"
)

// submissionRequest mirrors the OpenAPI schema for POST /api/v1/submissions.
type submissionRequest struct {
	FormUID     string         `json:"form_uid"`
	Data        map[string]any `json:"data"`
	SubmittedBy string         `json:"submitted_by"`
	Source      string         `json:"source"`
}

func (s submissionRequest) validate() error {
	switch {
	case strings.TrimSpace(s.FormUID) == "":
		return errors.New("missing form_uid")
	case len(s.Data) == 0:
		return errors.New("missing data")
	}
	return nil
}

// statusRequest mirrors the OpenAPI schema for PATCH /api/v1/submissions/{id}.
type statusRequest struct {
	Status string `json:"status"`
}

// submissionResponse is the read shape for one stored submission.
type submissionResponse struct {
	ID           string         `json:"id"`
	FormUID      string         `json:"form_uid"`
	InstanceID   string         `json:"instance_id"`
	Data         map[string]any `json:"data"`
	Status       string         `json:"status"`
	SyncStatus   string         `json:"sync_status"`
	SyncAttempts int            `json:"sync_attempts"`
	SyncError    string         `json:"sync_error,omitempty"`
	ProviderID   string         `json:"provider_id,omitempty"`
	SubmittedBy  string         `json:"submitted_by,omitempty"`
	Source       string         `json:"source,omitempty"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func toSubmissionResponse(sub *model.Submission) submissionResponse {
	return submissionResponse{
		ID:           sub.ID,
		FormUID:      sub.FormUID,
		InstanceID:   sub.InstanceID,
		Data:         sub.ParsedData,
		Status:       string(sub.Status),
		SyncStatus:   string(sub.SyncStatus),
		SyncAttempts: sub.SyncAttempts,
		SyncError:    sub.SyncError,
		ProviderID:   sub.ProviderID,
		SubmittedBy:  sub.SubmittedBy,
		Source:       sub.Source,
		SubmittedAt:  sub.SubmittedAt,
		CreatedAt:    sub.CreatedAt,
		UpdatedAt:    sub.UpdatedAt,
	}
}

// SubmissionsHandler handles submission intake and lifecycle requests.
type SubmissionsHandler struct {
	deps         Dependencies
	maxListLimit int
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps Dependencies, maxListLimit int) *SubmissionsHandler {
	if maxListLimit <= 0 {
		maxListLimit = defaultMaxListLimit
	}
	return &SubmissionsHandler{deps: deps, maxListLimit: maxListLimit}
}

// HandleSubmissions handles POST and GET /api/v1/submissions requests.
func (h *SubmissionsHandler) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreate(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SubmissionsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_submission"
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sub, err := h.deps.CreateSubmission(r.Context(), req.FormUID, req.Data, req.SubmittedBy, req.Source)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Code:    "validation_failed",
				Message: ve.Error(),
				Fields:  ve.Fields,
			})
		case errors.Is(err, service.ErrDuplicateSubmission):
			writeError(w, http.StatusConflict, "duplicate", err)
		case isNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", err)
		case isProviderDown(err):
			writeError(w, http.StatusBadGateway, "provider_error", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, toSubmissionResponse(sub))
}

func (h *SubmissionsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_submissions"
	limit, offset, err := parsePageParams(r, h.maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	q := r.URL.Query()
	filter := repository.ListFilter{
		FormUID:    q.Get("form_uid"),
		Status:     model.Status(q.Get("status")),
		SyncStatus: model.SyncStatus(q.Get("sync_status")),
		Limit:      limit,
		Offset:     offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	subs, err := h.deps.ListSubmissions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	out := make([]submissionResponse, len(subs))
	for i, sub := range subs {
		out[i] = toSubmissionResponse(sub)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(out),
		"submissions": out,
	})
}

// HandleSubmission handles GET and PATCH /api/v1/submissions/{id} requests.
func (h *SubmissionsHandler) HandleSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_submission"
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/submissions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch r.Method {
	case http.MethodGet:
		sub, err := h.deps.GetSubmission(r.Context(), id)
		if err != nil {
			if isNotFound(err) {
				writeError(w, http.StatusNotFound, "not_found", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		writeJSON(w, http.StatusOK, toSubmissionResponse(sub))

	case http.MethodPatch:
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		sub, err := h.deps.UpdateSubmissionStatus(r.Context(), id, model.Status(req.Status))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidStatus):
				writeError(w, http.StatusBadRequest, "bad_request", err)
			case isNotFound(err):
				writeError(w, http.StatusNotFound, "not_found", err)
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err)
			}
			return
		}
		writeJSON(w, http.StatusOK, toSubmissionResponse(sub))

	default:
		http.NotFound(w, r)
	}
}

// HandleSync handles POST /api/v1/submissions/sync requests, re-queuing
// pending submissions for a provider push.
func (h *SubmissionsHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	queued, err := h.deps.SyncPending(r.Context(), h.maxListLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
		"queued": queued,
	})
}
