package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/irakobi/wildlife-conservation-backend/internal/domain/model"
)

// MemoryStore implements Store in process memory. Used in tests and when
// no database URL is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]*model.Submission
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory submission store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		subs: make(map[string]*model.Submission),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the store's clock, for deterministic tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func (s *MemoryStore) Create(_ context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[sub.ID]; exists {
		return ErrDuplicate
	}
	cp := *sub
	now := s.now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.subs[sub.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*model.Submission, 0, len(s.subs))
	for _, sub := range s.subs {
		if filter.FormUID != "" && sub.FormUID != filter.FormUID {
			continue
		}
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		if filter.SyncStatus != "" && sub.SyncStatus != filter.SyncStatus {
			continue
		}
		cp := *sub
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return ErrNotFound
	}
	sub.Status = status
	sub.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) MarkSynced(_ context.Context, id, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return ErrNotFound
	}
	sub.SyncStatus = model.SyncSynced
	sub.ProviderID = providerID
	sub.SyncError = ""
	sub.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) MarkSyncFailed(_ context.Context, id, syncErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return ErrNotFound
	}
	sub.SyncStatus = model.SyncFailed
	sub.SyncError = syncErr
	sub.SyncAttempts++
	sub.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) PendingSync(_ context.Context, limit int) ([]*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultListLimit
	}
	var pending []*model.Submission
	for _, sub := range s.subs {
		if sub.SyncStatus == model.SyncPending {
			cp := *sub
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].SubmittedAt.Before(pending[j].SubmittedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs), nil
}
