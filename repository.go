/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/suparena/tablestore/converters"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/filter"
	"github.com/suparena/tablestore/query"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// EntityPointer constrains PT to *T where T embeds storagemodels.TableEntity.
type EntityPointer[T any] interface {
	*T
	storagemodels.Entity
}

// TableRepository is the typed API over one table. Every call is a round trip to the
// store; nothing is cached.
type TableRepository[T any] interface {
	Exists(ctx context.Context, partitionKey, rowKey string) (bool, error)
	GetAll(ctx context.Context) ([]*T, error)
	Count(ctx context.Context) (int, error)
	CountInPartition(ctx context.Context, partitionKey string) (int, error)
	GetByKeys(ctx context.Context, partitionKey, rowKey string) (*T, error)
	GetByKeysOf(ctx context.Context, entity *T) (*T, error)
	FindBy(ctx context.Context, field, value string) ([]*T, error)
	FindIn(ctx context.Context, field string, values []string) ([]*T, error)
	Query(ctx context.Context, f *filter.Filter) ([]*T, error)
	QueryPage(ctx context.Context, f *filter.Filter, take int32, pageToken string) (*storagemodels.PagedResult[T], error)

	Insert(ctx context.Context, entity *T) error
	InsertBatch(ctx context.Context, entities []*T) error
	InsertOrReplace(ctx context.Context, entity *T) error
	InsertOrReplaceBatch(ctx context.Context, entities []*T) error
	InsertOrMerge(ctx context.Context, entity *T) error
	InsertOrMergeBatch(ctx context.Context, entities []*T) error

	Replace(ctx context.Context, entity *T) error
	ReplaceBatch(ctx context.Context, entities []*T) error
	ReplaceIfExists(ctx context.Context, entity *T) error
	ReplaceIfExistsBatch(ctx context.Context, entities []*T) error

	Merge(ctx context.Context, entity *T) error
	MergeBatch(ctx context.Context, entities []*T) error
	MergeIfExists(ctx context.Context, entity *T) error
	MergeIfExistsBatch(ctx context.Context, entities []*T) error

	Delete(ctx context.Context, entity *T) error
	DeleteBatch(ctx context.Context, entities []*T) error
	DeleteIfExists(ctx context.Context, entity *T) error
	DeleteIfExistsBatch(ctx context.Context, entities []*T) error
	DeleteIfExistsByKeys(ctx context.Context, partitionKey, rowKey string) error
	DeleteAll(ctx context.Context) error
	DeleteOlderThan(ctx context.Context, t time.Time) error
}

// Repository implements TableRepository on top of a datastore.Table.
type Repository[T any, PT EntityPointer[T]] struct {
	table       datastore.Table
	walker      *query.Walker
	logger      *zap.Logger
	maxInFlight int
	typeName    string
}

var _ TableRepository[storagemodels.DynamicEntity] = (*Repository[storagemodels.DynamicEntity, *storagemodels.DynamicEntity])(nil)

// NewRepository returns a repository of T over table. The entity type's field tags
// are checked here so a bad tag fails fast instead of on the first write.
//
//	repo, err := tablestore.NewRepository[Person](table, tablestore.WithMaxInFlight(5))
func NewRepository[T any, PT EntityPointer[T]](table datastore.Table, opts ...Option) (*Repository[T, PT], error) {
	if table == nil {
		return nil, errors.NewValidationError("table", "cannot be nil")
	}
	if _, err := registry.Plan[T](); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidInput, err)
	}

	o := buildOptions(opts)
	typeName := reflect.TypeFor[T]().Name()
	logger := o.logger.With(zap.String("table", table.Name()), zap.String("entity", typeName))

	return &Repository[T, PT]{
		table:       table,
		walker:      query.NewWalker(table, logger),
		logger:      logger,
		maxInFlight: o.maxInFlight,
		typeName:    typeName,
	}, nil
}

// Table returns the underlying store handle.
func (r *Repository[T, PT]) Table() datastore.Table {
	return r.table
}

// Exists reports whether an entity with the given keys is stored. It issues a single
// segment request that projects only the row key.
func (r *Repository[T, PT]) Exists(ctx context.Context, partitionKey, rowKey string) (bool, error) {
	q := &storagemodels.TableQuery{
		Filter:        keysFilter(partitionKey, rowKey),
		SelectColumns: []string{storagemodels.RowKeyName},
	}
	segment, err := r.table.QuerySegmented(ctx, q, nil)
	if err != nil {
		return false, err
	}
	return len(segment.Items) > 0, nil
}

// GetAll returns every entity in the table.
func (r *Repository[T, PT]) GetAll(ctx context.Context) ([]*T, error) {
	return r.queryAll(ctx, &storagemodels.TableQuery{})
}

// Count returns the number of entities in the table.
func (r *Repository[T, PT]) Count(ctx context.Context) (int, error) {
	return r.count(ctx, "")
}

// CountInPartition returns the number of entities in one partition.
func (r *Repository[T, PT]) CountInPartition(ctx context.Context, partitionKey string) (int, error) {
	return r.count(ctx, datastore.GenerateFilterCondition(storagemodels.PartitionKeyName, datastore.Equal, partitionKey))
}

func (r *Repository[T, PT]) count(ctx context.Context, filterText string) (int, error) {
	items, err := r.walker.ExecuteAll(ctx, &storagemodels.TableQuery{
		Filter:        filterText,
		SelectColumns: []string{storagemodels.RowKeyName},
	}, nil)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// GetByKeys retrieves one entity. It returns nil and no error when nothing is stored
// under the keys.
func (r *Repository[T, PT]) GetByKeys(ctx context.Context, partitionKey, rowKey string) (*T, error) {
	item, err := r.table.Retrieve(ctx, partitionKey, rowKey)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	return r.decode(item)
}

// GetByKeysOf retrieves the stored version of entity using its keys.
func (r *Repository[T, PT]) GetByKeysOf(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, errors.NewValidationError("entity", "cannot be nil")
	}
	te := PT(entity).GetTableEntity()
	return r.GetByKeys(ctx, te.PartitionKey, te.RowKey)
}

// FindBy returns every entity whose field equals value.
func (r *Repository[T, PT]) FindBy(ctx context.Context, field, value string) ([]*T, error) {
	return r.queryAll(ctx, &storagemodels.TableQuery{
		Filter: datastore.GenerateFilterCondition(field, datastore.Equal, value),
	})
}

// FindIn returns every entity whose field equals any of values. An empty set of values
// matches nothing and makes no store call.
func (r *Repository[T, PT]) FindIn(ctx context.Context, field string, values []string) ([]*T, error) {
	if len(values) == 0 {
		return []*T{}, nil
	}

	b := filter.When(field, filter.Equal, values[0])
	for _, v := range values[1:] {
		b = b.Or().When(field, filter.Equal, v)
	}
	return r.queryAll(ctx, &storagemodels.TableQuery{Filter: filter.ToTableFilter(b.Build())})
}

// Query returns every entity matching f.
func (r *Repository[T, PT]) Query(ctx context.Context, f *filter.Filter) ([]*T, error) {
	if f == nil {
		return nil, errors.NewValidationError("filter", "cannot be nil")
	}
	return r.queryAll(ctx, &storagemodels.TableQuery{Filter: filter.ToTableFilter(f)})
}

// QueryPage returns at most take entities matching f, starting at pageToken. Pass the
// result's NextPageToken to continue; it is empty once the query is exhausted. If ctx
// is cancelled mid-page, the entities gathered so far are returned with ctx's error.
func (r *Repository[T, PT]) QueryPage(ctx context.Context, f *filter.Filter, take int32, pageToken string) (*storagemodels.PagedResult[T], error) {
	if f == nil {
		return nil, errors.NewValidationError("filter", "cannot be nil")
	}
	if take <= 0 {
		return nil, errors.NewValidationError("take", "must be positive")
	}

	page, err := r.walker.ExecutePage(ctx, &storagemodels.TableQuery{
		Filter:    filter.ToTableFilter(f),
		TakeCount: &take,
	}, pageToken)
	if page == nil {
		return nil, err
	}

	entities, decodeErr := r.decodeAll(page.Items)
	if decodeErr != nil {
		return nil, decodeErr
	}
	return &storagemodels.PagedResult[T]{
		Items:         entities,
		NextPageToken: page.NextPageToken,
		Take:          &take,
	}, err
}

func (r *Repository[T, PT]) queryAll(ctx context.Context, q *storagemodels.TableQuery) ([]*T, error) {
	items, err := r.walker.ExecuteAll(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	return r.decodeAll(items)
}

func (r *Repository[T, PT]) decode(item *storagemodels.Item) (*T, error) {
	entity := PT(new(T))
	if err := converters.FromItem(item, entity); err != nil {
		return nil, err
	}
	return (*T)(entity), nil
}

func (r *Repository[T, PT]) decodeAll(items []storagemodels.Item) ([]*T, error) {
	entities := make([]*T, 0, len(items))
	for i := range items {
		entity, err := r.decode(&items[i])
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// keysFilter renders PartitionKey eq pk and RowKey eq rk.
func keysFilter(partitionKey, rowKey string) string {
	return datastore.CombineFilters(
		datastore.GenerateFilterCondition(storagemodels.PartitionKeyName, datastore.Equal, partitionKey),
		datastore.And,
		datastore.GenerateFilterCondition(storagemodels.RowKeyName, datastore.Equal, rowKey),
	)
}
