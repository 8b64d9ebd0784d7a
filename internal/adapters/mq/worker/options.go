// Package worker runs locality-bucket formation jobs on a pool of
// goroutines.
package worker

import (
	"github.com/perchsocial/cohort-engine/pkg/logger"
)

// Option applies a configuration option to the BucketWorker.
type Option func(*BucketWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *BucketWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *BucketWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
