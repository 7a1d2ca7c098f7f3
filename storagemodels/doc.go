/*
Package storagemodels defines the data structures shared by the repository, the query
walker and the store backends.

Key Types:

TableEntity:
The system properties every entity carries. Embed it in entity types:

	type Person struct {
	    storagemodels.TableEntity
	    Name string
	    Age  string
	}

Item:
The raw record exchanged with a store: the system keys plus a property bag of
DynamoDB attribute values.

TableQuery and QuerySegment:
One segmented request and its bounded result. A nil ContinuationToken on the segment
means the query is exhausted.

PagedResult:
A page of typed entities plus the opaque token that resumes after it.

These types provide a consistent interface across different storage implementations.
*/
package storagemodels
