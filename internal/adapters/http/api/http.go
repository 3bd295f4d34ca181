// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/kobo"
	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/repository"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/form"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Form operations expose normalized provider schemas.
	ListForms(ctx context.Context, limit, offset int) ([]*form.Schema, error)
	GetSchema(ctx context.Context, uid string) (*form.Schema, error)
	GetFormSummary(ctx context.Context, uid string) (*form.Summary, error)

	// Submission operations cover intake and the review lifecycle.
	CreateSubmission(ctx context.Context, formUID string, raw map[string]any, submittedBy, source string) (*model.Submission, error)
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, filter repository.ListFilter) ([]*model.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, id string, status model.Status) (*model.Submission, error)
	SyncPending(ctx context.Context, limit int) (int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	formsHandler       *FormsHandler
	submissionsHandler *SubmissionsHandler

	maxListLimit int
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		maxListLimit: defaultMaxListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.formsHandler = NewFormsHandler(deps, s.maxListLimit)
	s.submissionsHandler = NewSubmissionsHandler(deps, s.maxListLimit)
	return s
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithMaxListLimit caps the limit query parameter on list endpoints.
func WithMaxListLimit(limit int) ServerOption {
	return func(s *Server) {
		if limit > 0 {
			s.maxListLimit = limit
		}
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/v1/forms", MetricsMiddleware(s.formsHandler.HandleListForms, "forms"))
	mux.HandleFunc("/api/v1/forms/", MetricsMiddleware(s.formsHandler.HandleForm, "form"))
	mux.HandleFunc("/api/v1/submissions", MetricsMiddleware(s.submissionsHandler.HandleSubmissions, "submissions"))
	mux.HandleFunc("/api/v1/submissions/sync", MetricsMiddleware(s.submissionsHandler.HandleSync, "submissions_sync"))
	mux.HandleFunc("/api/v1/submissions/", MetricsMiddleware(s.submissionsHandler.HandleSubmission, "submission"))
}

type errorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// NewKind tags a sentinel error with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags an underlying error with its sentinel kind and operation.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, kobo.ErrNotFound)
}

// isProviderDown reports whether the provider rejected or failed the call,
// which the API surfaces as 502.
func isProviderDown(err error) bool {
	var apiErr *kobo.APIError
	return errors.As(err, &apiErr) && !errors.Is(err, kobo.ErrNotFound)
}
