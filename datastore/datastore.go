/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/tablestore/storagemodels"
)

// Table is the store protocol for one partitioned table. Implementations are safe for
// concurrent use and never cache: every call is a round trip.
//
// Write operations return the stored item with its store-assigned ETag and Timestamp.
// Rejections are reported as *errors.StorageError:
//   - 404 Not Found: Replace, Merge or Delete of a missing key
//   - 409 Conflict: Insert of an existing key
//   - 412 Precondition Failed: ETag mismatch ("*" matches any ETag)
//   - 400 Bad Request: malformed filter grammar
type Table interface {
	// Name returns the table name.
	Name() string

	Insert(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)

	InsertOrReplace(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)

	InsertOrMerge(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)

	Replace(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)

	Merge(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)

	Delete(ctx context.Context, item *storagemodels.Item) error

	// Retrieve returns nil, nil when no entity has the given keys.
	Retrieve(ctx context.Context, partitionKey, rowKey string) (*storagemodels.Item, error)

	// QuerySegmented returns at most one segment of results, resuming after token when
	// it is non-nil. The returned segment's token is nil once the query is exhausted.
	QuerySegmented(ctx context.Context, query *storagemodels.TableQuery, token *storagemodels.ContinuationToken) (*storagemodels.QuerySegment, error)
}
