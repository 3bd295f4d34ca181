package repository

import "errors"

// Sentinel kinds for submission store errors.
var (
	ErrNotFound  = errors.New("submission not found")
	ErrDuplicate = errors.New("submission already exists")
)
