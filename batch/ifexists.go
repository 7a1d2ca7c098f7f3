/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package batch

import (
	"context"

	"github.com/suparena/tablestore/errors"
)

// IgnoreNotFound invokes op on entity and treats the store's "entity not found"
// rejection as success. Any other error is returned unchanged. A nil entity is a
// caller error and op is not invoked.
func IgnoreNotFound[T any](ctx context.Context, entity *T, op Operation[*T]) error {
	if entity == nil {
		return errors.NewValidationError("entity", "cannot be nil")
	}
	if err := op(ctx, entity); err != nil {
		if errors.IsStoreNotFound(err) {
			return nil
		}
		return err
	}
	return nil
}

// IfExists wraps op so that each call goes through IgnoreNotFound, for use with Run.
func IfExists[T any](op Operation[*T]) Operation[*T] {
	return func(ctx context.Context, entity *T) error {
		return IgnoreNotFound(ctx, entity, op)
	}
}
