/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package batch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/suparena/tablestore/errors"
)

// DefaultMaxInFlight is the wave size used when none is configured.
const DefaultMaxInFlight = 10

// Operation is applied to one element of a batch.
type Operation[T any] func(ctx context.Context, item T) error

type options struct {
	maxInFlight int
	logger      *zap.Logger
}

// Option configures Run.
type Option func(*options)

// WithMaxInFlight sets the wave size. Values below 1 keep the default.
func WithMaxInFlight(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxInFlight = n
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Run applies op to every element of items in waves of at most MaxInFlight
// concurrent calls. Each wave finishes completely before the next one starts.
// If any call in a wave fails, Run waits for the rest of that wave and returns the
// first error without starting another wave. Errors from other calls in the same
// wave are discarded.
//
// A nil items slice is a caller error; an empty one is a no-op. Waves are not
// interrupted by ctx cancellation; ctx is only passed through to op.
func Run[T any](ctx context.Context, items []T, op Operation[T], opts ...Option) error {
	if items == nil {
		return errors.NewValidationError("items", "cannot be nil")
	}
	if op == nil {
		return errors.NewValidationError("op", "cannot be nil")
	}

	o := options{maxInFlight: DefaultMaxInFlight, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	for start := 0; start < len(items); start += o.maxInFlight {
		end := min(start+o.maxInFlight, len(items))
		wave := items[start:end]

		// A plain Group: no derived context, so siblings are never cancelled.
		var g errgroup.Group
		for _, item := range wave {
			g.Go(func() error {
				return op(ctx, item)
			})
		}
		if err := g.Wait(); err != nil {
			o.logger.Debug("batch wave failed",
				zap.Int("waveStart", start),
				zap.Int("waveSize", len(wave)),
				zap.Error(err))
			return err
		}
		o.logger.Debug("batch wave completed",
			zap.Int("waveStart", start),
			zap.Int("waveSize", len(wave)))
	}
	return nil
}
