/*
Package tablestore provides a typed repository over a partitioned table store, where
every entity is addressed by a partition key and a row key and protected by an ETag.

The repository sits between application code and the store's segmented query protocol:
  - Queries drain every segment, or stop at a caller-sized page with a resumable token
  - Filters are built as flat left-to-right statement chains (package filter)
  - Batch writes run in bounded concurrent waves (package batch)
  - The *IfExists operations turn the store's not-found rejection into a no-op

Basic Usage:

	type Person struct {
	    storagemodels.TableEntity
	    Name string
	    Age  string
	}

	table, _ := ddb.Open(ctx, "Region=us-east-1", "people", ddb.WithCreateIfNotExists())
	repo, _ := tablestore.NewRepository[Person](table)

	p := &Person{TableEntity: storagemodels.TableEntity{PartitionKey: "people", RowKey: "1"}, Name: "John", Age: "50"}
	err := repo.Insert(ctx, p) // p.ETag and p.Timestamp now hold the stored values

	older, err := repo.Query(ctx, filter.When("Age", filter.GreaterThanOrEqual, "50").
	    And().When("Name", filter.Equal, "John").
	    Build())

Backends implement datastore.Table: datastore/ddb for DynamoDB and datastore/mock for
tests.
*/
package tablestore
