/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"go.uber.org/zap"

	"github.com/suparena/tablestore/batch"
)

type repositoryOptions struct {
	logger      *zap.Logger
	maxInFlight int
}

// Option configures a Repository.
type Option func(*repositoryOptions)

// WithLogger sets the logger used for per-write and per-segment debug output.
// The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *repositoryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxInFlight sets how many store calls a batch operation runs concurrently.
// Values below 1 keep batch.DefaultMaxInFlight.
func WithMaxInFlight(n int) Option {
	return func(o *repositoryOptions) {
		if n > 0 {
			o.maxInFlight = n
		}
	}
}

func buildOptions(opts []Option) repositoryOptions {
	o := repositoryOptions{
		logger:      zap.NewNop(),
		maxInFlight: batch.DefaultMaxInFlight,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
