// Package model contains domain models passed between layers.
package model

import "time"

// Status tracks a submission through the review workflow.
type Status string

// Submission workflow states.
const (
	StatusSubmitted Status = "submitted"
	StatusVerified  Status = "verified"
	StatusResolved  Status = "resolved"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is a known workflow state.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusVerified, StatusResolved, StatusDeleted:
		return true
	}
	return false
}

// SyncStatus tracks whether a submission has been pushed to the provider.
type SyncStatus string

// Provider sync states.
const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// Submission is one locally persisted data-collection record. RawData is
// the payload exactly as the client sent it; ParsedData is the same payload
// coerced against the form's normalized schema.
type Submission struct {
	ID         string // local UUID, primary key
	FormUID    string // provider form identifier
	InstanceID string // client-generated instance UUID, used for dedupe

	RawData    map[string]any
	ParsedData map[string]any

	Status       Status
	SyncStatus   SyncStatus
	SyncAttempts int
	SyncError    string
	ProviderID   string // provider-assigned submission id once synced

	SubmittedBy string
	Source      string // mobile, web, api
	SubmittedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
