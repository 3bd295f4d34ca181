// Package smoketest drives a running backend end to end: it fetches a
// form schema, generates plausible submissions, posts them, and checks
// the stored results.
package smoketest

import "time"

// Config controls one smoke test run.
type Config struct {
	// BaseURL of the running service, e.g. http://localhost:8000.
	BaseURL string

	// FormUID selects the form to submit against.
	FormUID string

	// NumSubmissions is how many submissions to generate and post.
	NumSubmissions int

	// Workers is the number of concurrent posting goroutines.
	Workers int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Sync triggers a provider sync pass after posting.
	Sync bool

	// Verbose enables debug logging.
	Verbose bool
}

// Stats aggregates the outcome of a run.
type Stats struct {
	Generated  int
	Posted     int
	Created    int
	Duplicates int
	Rejected   int
	Failed     int
	Queued     int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
