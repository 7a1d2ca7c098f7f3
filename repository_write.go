/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/suparena/tablestore/batch"
	"github.com/suparena/tablestore/converters"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

type writeFunc func(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)

// Insert stores a new entity. The store rejects it with 409 Conflict if the keys are taken.
func (r *Repository[T, PT]) Insert(ctx context.Context, entity *T) error {
	return r.write(ctx, "Insert", entity, false, r.table.Insert)
}

// InsertBatch inserts every entity; see batch.Run for the failure semantics.
func (r *Repository[T, PT]) InsertBatch(ctx context.Context, entities []*T) error {
	return r.runBatch(ctx, entities, r.Insert)
}

// InsertOrReplace stores entity, overwriting any stored version.
func (r *Repository[T, PT]) InsertOrReplace(ctx context.Context, entity *T) error {
	return r.write(ctx, "InsertOrReplace", entity, false, r.table.InsertOrReplace)
}

func (r *Repository[T, PT]) InsertOrReplaceBatch(ctx context.Context, entities []*T) error {
	return r.runBatch(ctx, entities, r.InsertOrReplace)
}

// InsertOrMerge stores entity, merging its properties into any stored version.
func (r *Repository[T, PT]) InsertOrMerge(ctx context.Context, entity *T) error {
	return r.write(ctx, "InsertOrMerge", entity, false, r.table.InsertOrMerge)
}

func (r *Repository[T, PT]) InsertOrMergeBatch(ctx context.Context, entities []*T) error {
	return r.runBatch(ctx, entities, r.InsertOrMerge)
}

// Replace overwrites a stored entity. The entity's ETag must match the stored one,
// or be "*".
func (r *Repository[T, PT]) Replace(ctx context.Context, entity *T) error {
	return r.write(ctx, "Replace", entity, true, r.table.Replace)
}

func (r *Repository[T, PT]) ReplaceBatch(ctx context.Context, entities []*T) error {
	return r.runBatch(ctx, entities, r.Replace)
}

// ReplaceIfExists is Replace that does nothing when the entity is not stored.
func (r *Repository[T, PT]) ReplaceIfExists(ctx context.Context, entity *T) error {
	return batch.IgnoreNotFound[T](ctx, entity, r.Replace)
}

func (r *Repository[T, PT]) ReplaceIfExistsBatch(ctx context.Context, entities []*T) error {
	return r.runBatch(ctx, entities, batch.IfExists[T](r.Replace))
}

// Merge merges entity's properties into the stored version. The ETag rules of Replace apply.
func (r *Repository[T, PT]) Merge(ctx context.Context, entity *T) error {
	return r.write(ctx, "Merge", entity, true, r.table.Merge)
}

func (r *Repository[T, PT]) MergeBatch(ctx context.Context, entities []*T) error {
	return r.runBatch(ctx, entities, r.Merge)
}

// MergeIfExists is Merge that does nothing when the entity is not stored.
func (r *Repository[T, PT]) MergeIfExists(ctx context.Context, entity *T) error {
	return batch.IgnoreNotFound[T](ctx, entity, r.Merge)
}

func (r *Repository[T, PT]) MergeIfExistsBatch(ctx context.Context, entities []*T) error {
	return r.runBatch(ctx, entities, batch.IfExists[T](r.Merge))
}

// Delete removes a stored entity. The ETag rules of Replace apply.
func (r *Repository[T, PT]) Delete(ctx context.Context, entity *T) error {
	return r.write(ctx, "Delete", entity, true, func(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
		return nil, r.table.Delete(ctx, item)
	})
}

func (r *Repository[T, PT]) DeleteBatch(ctx context.Context, entities []*T) error {
	return r.runBatch(ctx, entities, r.Delete)
}

// DeleteIfExists is Delete that does nothing when the entity is not stored.
func (r *Repository[T, PT]) DeleteIfExists(ctx context.Context, entity *T) error {
	return batch.IgnoreNotFound[T](ctx, entity, r.Delete)
}

func (r *Repository[T, PT]) DeleteIfExistsBatch(ctx context.Context, entities []*T) error {
	return r.runBatch(ctx, entities, batch.IfExists[T](r.Delete))
}

// DeleteIfExistsByKeys retrieves the entity stored under the keys and deletes it with
// its current ETag. Nothing happens when no entity is stored, including when it
// disappears between the read and the delete.
func (r *Repository[T, PT]) DeleteIfExistsByKeys(ctx context.Context, partitionKey, rowKey string) error {
	entity, err := r.GetByKeys(ctx, partitionKey, rowKey)
	if err != nil {
		return err
	}
	if entity == nil {
		return nil
	}
	return r.DeleteIfExists(ctx, entity)
}

// DeleteAll deletes every entity in the table.
func (r *Repository[T, PT]) DeleteAll(ctx context.Context) error {
	return r.deleteMatching(ctx, "")
}

// DeleteOlderThan deletes every entity whose store timestamp is before t.
func (r *Repository[T, PT]) DeleteOlderThan(ctx context.Context, t time.Time) error {
	return r.deleteMatching(ctx, datastore.GenerateFilterConditionForDate(storagemodels.TimestampName, datastore.LessThan, t))
}

func (r *Repository[T, PT]) deleteMatching(ctx context.Context, filterText string) error {
	entities, err := r.queryAll(ctx, &storagemodels.TableQuery{Filter: filterText})
	if err != nil {
		return err
	}
	r.logger.Debug("deleting matching entities",
		zap.String("filter", filterText),
		zap.Int("count", len(entities)))
	return r.DeleteIfExistsBatch(ctx, entities)
}

// write converts entity, sends it to the store and copies the store-assigned ETag and
// Timestamp back. Store rejections are returned unchanged.
func (r *Repository[T, PT]) write(ctx context.Context, operation string, entity *T, requireETag bool, call writeFunc) error {
	if entity == nil {
		return errors.NewValidationError("entity", "cannot be nil")
	}
	te := PT(entity).GetTableEntity()
	if requireETag && te.ETag == "" {
		return errors.NewValidationError("ETag", "required for "+operation+"; use WildcardETag to skip the concurrency check")
	}

	item, err := converters.ToItem(PT(entity))
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	stored, err := call(ctx, item)
	if err != nil {
		r.logger.Debug("write rejected",
			zap.String("operation", operation),
			zap.String("key", item.Key()),
			zap.Error(err))
		return err
	}
	if stored != nil {
		te.ETag = stored.ETag
		te.Timestamp = stored.Timestamp
	}

	r.logger.Debug("write completed",
		zap.String("operation", operation),
		zap.String("key", item.Key()),
		zap.String("etag", te.ETag))
	return nil
}

func (r *Repository[T, PT]) runBatch(ctx context.Context, entities []*T, op batch.Operation[*T]) error {
	return batch.Run(ctx, entities, op,
		batch.WithMaxInFlight(r.maxInFlight),
		batch.WithLogger(r.logger))
}
