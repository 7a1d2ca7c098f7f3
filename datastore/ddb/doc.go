/*
Package ddb provides a DynamoDB implementation of the datastore.Table interface.

Each table uses PartitionKey as hash key and RowKey as range key. Every write stamps
a fresh ETag (uuid v4) and a Timestamp stored as a fixed-width UTC string, so
datetime filters compare correctly as strings.

Connecting:

	table, err := ddb.Open(ctx,
	    "Region=us-east-1;Endpoint=http://localhost:8000;AccessKeyId=local;SecretAccessKey=local",
	    "people",
	    ddb.WithCreateIfNotExists(),
	    ddb.WithLogger(logger),
	)

Filters:
Filters in the textual grammar are parsed and translated to expression builders.
A top-level "PartitionKey eq" conjunct, plus one RowKey comparison, become the key
condition of a Query; any other filter runs as a Scan. DynamoDB applies Limit before
the filter, so segments can be short or empty while more results remain.

Conditional writes:
Replace, Merge and Delete require the entity to exist and, unless the ETag is "*",
to carry the caller's ETag. Failed checks return the old item, which tells a missing
entity (404) apart from a stale ETag (412).

Throttled requests are retried with linear backoff (see RetryOptions).
*/
package ddb
