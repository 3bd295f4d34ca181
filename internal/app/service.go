// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/kobo"
	syncqueue "github.com/irakobi/wildlife-conservation-backend/internal/adapters/mq/queue"
	workerpool "github.com/irakobi/wildlife-conservation-backend/internal/adapters/mq/worker"
	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/repository"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/answers"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/dedupe"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/form"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/model"
	"github.com/irakobi/wildlife-conservation-backend/pkg/logger"
	"github.com/irakobi/wildlife-conservation-backend/pkg/metrics"
)

// Provider is the slice of the Kobo client the service depends on.
// kobo.Client satisfies it; tests substitute fakes.
type Provider interface {
	Ping(ctx context.Context) error
	ListForms(ctx context.Context, limit, offset int) ([]form.Definition, error)
	GetForm(ctx context.Context, uid string) (*form.Definition, error)
	SubmitData(ctx context.Context, uid string, data map[string]any) (*kobo.SubmitResult, error)
}

// Service implements the API dependencies for the data collection backend.
type Service struct {
	mu sync.RWMutex

	// Core components
	provider Provider
	store    repository.Store
	deduper  dedupe.Deduper
	queue    syncqueue.Queue
	pool     *workerpool.Pool
	schemas  *schemaCache

	// Configuration
	databaseURL    string
	workerCount    int
	queueSize      int
	dedupeSize     int
	schemaCacheTTL time.Duration

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProvider sets the form provider client.
func WithProvider(p Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithStore sets the submission store, overriding the database URL.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDatabaseURL selects the Postgres store when non-empty.
func WithDatabaseURL(dsn string) Option {
	return func(s *Service) {
		s.databaseURL = dsn
	}
}

// WithWorkerCount sets the number of sync worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the sync queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSchemaCacheTTL bounds how long a normalized schema is reused.
func WithSchemaCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.schemaCacheTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    4,
		queueSize:      10000,
		dedupeSize:     50000,
		schemaCacheTTL: 5 * time.Minute,
		stopCh:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting data collection service...")

	if s.provider == nil {
		s.provider = kobo.New()
	}

	if s.store == nil {
		if s.databaseURL != "" {
			pg, err := repository.NewPostgresStore(ctx, s.databaseURL)
			if err != nil {
				return fmt.Errorf("connect submission store: %w", err)
			}
			if err := pg.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("prepare submission store: %w", err)
			}
			s.store = pg
			s.logger.Info(ctx, "using postgres store")
		} else {
			s.store = repository.NewMemoryStore()
			s.logger.Info(ctx, "using in-memory store")
		}
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = syncqueue.NewInMemoryQueue(
		syncqueue.WithCapacity(s.queueSize),
		syncqueue.WithBufferSize(s.queueSize),
	)
	s.schemas = newSchemaCache(s.schemaCacheTTL)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.provider, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "data collection service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping data collection service...")

	if s.pool != nil {
		// Shutdown closes the queue first so workers drain it.
		_ = s.pool.Shutdown(ctx)
	}

	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "data collection service stopped")
}

// PingProvider verifies provider connectivity and credentials.
func (s *Service) PingProvider(ctx context.Context) error {
	return s.provider.Ping(ctx)
}

// ListForms returns normalized schemas for provider survey forms.
func (s *Service) ListForms(ctx context.Context, limit, offset int) ([]*form.Schema, error) {
	metrics.RecordProviderCall("list_forms")
	defs, err := s.provider.ListForms(ctx, limit, offset)
	if err != nil {
		metrics.RecordProviderError("list_forms")
		return nil, err
	}

	schemas := make([]*form.Schema, 0, len(defs))
	for i := range defs {
		schema, err := form.Normalize(&defs[i])
		if err != nil {
			// Assets without deployed content are listed but not usable.
			s.logger.Warn(ctx, "skipping form without content",
				logger.String("uid", defs[i].UID),
			)
			continue
		}
		metrics.RecordSchemaNormalization()
		s.schemas.put(defs[i].UID, schema)
		schemas = append(schemas, schema)
	}
	return schemas, nil
}

// GetSchema returns the normalized schema for one form, served from cache
// when fresh.
func (s *Service) GetSchema(ctx context.Context, uid string) (*form.Schema, error) {
	if schema, ok := s.schemas.get(uid); ok {
		metrics.RecordSchemaCacheHit()
		return schema, nil
	}

	metrics.RecordProviderCall("get_form")
	def, err := s.provider.GetForm(ctx, uid)
	if err != nil {
		metrics.RecordProviderError("get_form")
		return nil, err
	}
	schema, err := form.Normalize(def)
	if err != nil {
		return nil, err
	}
	metrics.RecordSchemaNormalization()
	s.schemas.put(uid, schema)
	return schema, nil
}

// GetFormSummary returns aggregate statistics about one form's schema.
func (s *Service) GetFormSummary(ctx context.Context, uid string) (*form.Summary, error) {
	schema, err := s.GetSchema(ctx, uid)
	if err != nil {
		return nil, err
	}
	summary := schema.Summarize()
	return &summary, nil
}

// CreateSubmission validates, parses, stores, and queues one submission
// for provider sync.
func (s *Service) CreateSubmission(ctx context.Context, formUID string, raw map[string]any, submittedBy, source string) (*model.Submission, error) {
	schema, err := s.GetSchema(ctx, formUID)
	if err != nil {
		return nil, err
	}

	if issues := answers.Validate(raw, schema); len(issues) > 0 {
		metrics.RecordValidationFailure()
		return nil, &ValidationError{FormUID: formUID, Fields: issues}
	}

	parsed := answers.Parse(raw, schema)

	instanceID := extractInstanceID(raw)
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, instanceID) {
		metrics.RecordSubmissionDuplicate()
		return nil, fmt.Errorf("%w: instance %s", ErrDuplicateSubmission, instanceID)
	}

	sub := &model.Submission{
		ID:          uuid.NewString(),
		FormUID:     formUID,
		InstanceID:  instanceID,
		RawData:     raw,
		ParsedData:  parsed,
		Status:      model.StatusSubmitted,
		SyncStatus:  model.SyncPending,
		SubmittedBy: submittedBy,
		Source:      source,
		SubmittedAt: time.Now().UTC(),
	}

	if err := s.store.Create(ctx, sub); err != nil {
		// Allow a retry with the same instance id.
		s.deduper.Unrecord(ctx, instanceID)
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RecordSubmissionDuplicate()
			return nil, fmt.Errorf("%w: id %s", ErrDuplicateSubmission, sub.ID)
		}
		return nil, err
	}
	metrics.RecordSubmissionCreated()
	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateTotalSubmissions(n)
	}

	if !s.queue.Enqueue(ctx, syncqueue.Task{SubmissionID: sub.ID, FormUID: sub.FormUID}) {
		// Not fatal: the submission stays pending and a later SyncPending
		// pass will pick it up.
		s.logger.Warn(ctx, "sync queue full, submission left pending",
			logger.String("submissionID", sub.ID),
		)
	}

	return sub, nil
}

// GetSubmission returns one stored submission by id.
func (s *Service) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return s.store.Get(ctx, id)
}

// ListSubmissions returns stored submissions matching the filter.
func (s *Service) ListSubmissions(ctx context.Context, filter repository.ListFilter) ([]*model.Submission, error) {
	return s.store.List(ctx, filter)
}

// UpdateSubmissionStatus moves a submission through its review lifecycle.
func (s *Service) UpdateSubmissionStatus(ctx context.Context, id string, status model.Status) (*model.Submission, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// SyncPending re-enqueues submissions still waiting for a provider push.
// Returns the number of submissions queued.
func (s *Service) SyncPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.store.PendingSync(ctx, limit)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, sub := range pending {
		if s.queue.Enqueue(ctx, syncqueue.Task{SubmissionID: sub.ID, FormUID: sub.FormUID}) {
			queued++
		}
	}
	return queued, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["cachedSchemas"] = s.schemas.len()
		stats["seenInstances"] = s.deduper.Size()

		if total, err := s.store.Count(ctx); err == nil {
			stats["totalSubmissions"] = total
			metrics.UpdateTotalSubmissions(total)
		}
	}

	return stats
}

// extractInstanceID pulls the client-assigned instance uuid out of a raw
// payload. ODK clients report it as _uuid or meta/instanceID.
func extractInstanceID(raw map[string]any) string {
	if v, ok := raw["_uuid"].(string); ok && v != "" {
		return v
	}
	if v, ok := raw["meta/instanceID"].(string); ok && v != "" {
		return strings.TrimPrefix(v, "uuid:")
	}
	return ""
}
