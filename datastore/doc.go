/*
Package datastore defines the store protocol that tablestore repositories are built on.

The main interface is Table, a partitioned table addressed by partition key and row key:

	type Table interface {
	    Name() string
	    Insert(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)
	    InsertOrReplace(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)
	    InsertOrMerge(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)
	    Replace(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)
	    Merge(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error)
	    Delete(ctx context.Context, item *storagemodels.Item) error
	    Retrieve(ctx context.Context, partitionKey, rowKey string) (*storagemodels.Item, error)
	    QuerySegmented(ctx context.Context, query *storagemodels.TableQuery, token *storagemodels.ContinuationToken) (*storagemodels.QuerySegment, error)
	}

The package also owns the textual filter grammar shared by all backends:

	cond := datastore.GenerateFilterCondition("Name", datastore.Equal, "John") // Name eq 'John'
	both := datastore.CombineFilters(cond, datastore.And, "Age ge '50'")     // (Name eq 'John') and (Age ge '50')

Implementations:
  - ddb: DynamoDB implementation
  - mock: In-memory implementation for testing

Instrument wraps any Table with Prometheus metrics.
*/
package datastore
