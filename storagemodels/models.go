/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// System property names shared by every backend.
const (
	PartitionKeyName = "PartitionKey"
	RowKeyName       = "RowKey"
	TimestampName    = "Timestamp"
	ETagName         = "ETag"
)

// WildcardETag matches any stored ETag and disables the optimistic concurrency check.
const WildcardETag = "*"

// TimestampFormat is the fixed-width UTC layout used for stored timestamps and datetime
// filter literals, so lexical order matches chronological order.
const TimestampFormat = "2006-01-02T15:04:05.0000000Z"

// FormatTimestamp renders t in TimestampFormat.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Item is the raw record exchanged with a table store: the system keys plus the
// native property bag.
type Item struct {
	PartitionKey string
	RowKey       string
	ETag         string
	Timestamp    time.Time
	// Properties holds every non-system property, keyed by attribute name.
	Properties map[string]types.AttributeValue
}

// Key returns the composite "partition|row" key, used in error messages.
func (i *Item) Key() string {
	return i.PartitionKey + "|" + i.RowKey
}

// TableQuery defines one segmented query against a table.
type TableQuery struct {
	// Filter is a predicate in the store's filter grammar. Empty matches everything.
	Filter string
	// TakeCount caps the number of items returned in one segment.
	TakeCount *int32
	// SelectColumns projects the returned properties. System keys are always returned.
	SelectColumns []string
}

// Clone returns a copy that can be modified without affecting q.
func (q *TableQuery) Clone() *TableQuery {
	if q == nil {
		return &TableQuery{}
	}
	c := &TableQuery{Filter: q.Filter}
	if q.TakeCount != nil {
		take := *q.TakeCount
		c.TakeCount = &take
	}
	if q.SelectColumns != nil {
		c.SelectColumns = append([]string(nil), q.SelectColumns...)
	}
	return c
}

// ContinuationToken is the store's resume handle for a segmented query.
type ContinuationToken struct {
	NextPartitionKey string `json:"nextPartitionKey"`
	NextRowKey       string `json:"nextRowKey"`
}

// QuerySegment is the result of one round trip: a bounded batch of items and the
// handle to resume from, nil when the query is exhausted.
type QuerySegment struct {
	Items             []Item
	ContinuationToken *ContinuationToken
}

// Page is one resumable page of raw items.
type Page struct {
	Items []Item
	// NextPageToken is empty when the query is exhausted.
	NextPageToken string
}

// PagedResult is one resumable page of typed entities.
type PagedResult[T any] struct {
	Items         []*T
	NextPageToken string
	Take          *int32
}
