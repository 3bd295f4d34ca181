package kobo

import (
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Sentinel kinds for provider errors.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("authentication failed")
	ErrForbidden    = errors.New("access denied")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrUnavailable  = errors.New("provider unavailable")
)

// APIError carries the provider HTTP status alongside the error kind so
// callers can match with errors.Is while still seeing the raw status.
type APIError struct {
	StatusCode int
	Kind       error
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kobo api error: status %d: %s", e.StatusCode, e.Kind)
}

func (e *APIError) Unwrap() error { return e.Kind }

// statusError maps a provider response status to a typed error. Success
// statuses return nil.
func statusError(resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 401:
		return &APIError{StatusCode: code, Kind: ErrUnauthorized, Body: resp.String()}
	case code == 403:
		return &APIError{StatusCode: code, Kind: ErrForbidden, Body: resp.String()}
	case code == 404:
		return &APIError{StatusCode: code, Kind: ErrNotFound, Body: resp.String()}
	case code == 429:
		return &APIError{StatusCode: code, Kind: ErrRateLimited, Body: resp.String()}
	default:
		return &APIError{StatusCode: code, Kind: ErrUnavailable, Body: resp.String()}
	}
}
