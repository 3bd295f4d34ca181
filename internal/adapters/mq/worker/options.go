// Package worker defines worker contracts for asynchronous provider sync.
package worker

import (
	"github.com/irakobi/wildlife-conservation-backend/pkg/logger"
)

// Option applies a configuration option to the SyncWorker.
type Option func(*SyncWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *SyncWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *SyncWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
