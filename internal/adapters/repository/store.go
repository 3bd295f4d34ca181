// Package repository defines the submission store interface and errors.
package repository

import (
	"context"

	"github.com/irakobi/wildlife-conservation-backend/internal/domain/model"
)

// ListFilter narrows List results. Zero values mean "no filter"; Limit
// defaults to a store-chosen cap when unset.
type ListFilter struct {
	FormUID    string
	Status     model.Status
	SyncStatus model.SyncStatus
	Limit      int
	Offset     int
}

// Store provides read/write access to locally persisted submissions.
type Store interface {
	// Create persists a new submission. The submission ID must be set by
	// the caller.
	Create(ctx context.Context, sub *model.Submission) error

	// Get returns a submission by local ID. Returns ErrNotFound when the
	// ID is unknown.
	Get(ctx context.Context, id string) (*model.Submission, error)

	// List returns submissions matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*model.Submission, error)

	// UpdateStatus moves a submission to a new workflow state.
	UpdateStatus(ctx context.Context, id string, status model.Status) error

	// MarkSynced records a successful provider push.
	MarkSynced(ctx context.Context, id, providerID string) error

	// MarkSyncFailed records a failed provider push with its error text and
	// bumps the attempt counter.
	MarkSyncFailed(ctx context.Context, id, syncErr string) error

	// PendingSync returns submissions awaiting a provider push, oldest
	// first.
	PendingSync(ctx context.Context, limit int) ([]*model.Submission, error)

	// Count returns the number of stored submissions.
	Count(ctx context.Context) (int, error)
}
