package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrInvalidStatus       = errors.New("invalid submission status")
)

// ValidationError reports per-field validation issues for a rejected
// submission payload.
type ValidationError struct {
	FormUID string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("submission to %s failed validation: %s", e.FormUID, strings.Join(names, ", "))
}
