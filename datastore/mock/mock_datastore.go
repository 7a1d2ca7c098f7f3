/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Table for testing
package mock

import (
	"context"
	"maps"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/suparena/tablestore/datastore/filterexpr"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// Operation names used by call counters and error hooks.
const (
	OpInsert          = "Insert"
	OpInsertOrReplace = "InsertOrReplace"
	OpInsertOrMerge   = "InsertOrMerge"
	OpReplace         = "Replace"
	OpMerge           = "Merge"
	OpDelete          = "Delete"
	OpRetrieve        = "Retrieve"
	OpQuerySegmented  = "QuerySegmented"
)

// DefaultSegmentSize mirrors the per-request page limit of hosted table stores.
const DefaultSegmentSize = 1000

// Table is an in-memory datastore.Table. Items are kept ordered by partition key
// then row key, and queries return segments of at most the configured size.
type Table struct {
	mu          sync.RWMutex
	name        string
	data        map[string]*storagemodels.Item
	segmentSize int
	injected    map[string]error
	errorFunc   func(operation string, item *storagemodels.Item) error
	calls       map[string]int
	clock       func() time.Time
}

// New creates an empty mock table
func New(name string) *Table {
	return &Table{
		name:        name,
		data:        make(map[string]*storagemodels.Item),
		segmentSize: DefaultSegmentSize,
		injected:    make(map[string]error),
		calls:       make(map[string]int),
		clock:       time.Now,
	}
}

// WithSegmentSize caps the number of items returned by a single QuerySegmented call
func (m *Table) WithSegmentSize(n int) *Table {
	if n > 0 {
		m.segmentSize = n
	}
	return m
}

// WithClock sets the clock used to stamp written items
func (m *Table) WithClock(clock func() time.Time) *Table {
	m.clock = clock
	return m
}

// WithError makes every call of operation return err
func (m *Table) WithError(operation string, err error) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.injected[operation] = err
	return m
}

// WithInsertError makes Insert operations return an error
func (m *Table) WithInsertError(err error) *Table {
	return m.WithError(OpInsert, err)
}

// WithReplaceError makes Replace operations return an error
func (m *Table) WithReplaceError(err error) *Table {
	return m.WithError(OpReplace, err)
}

// WithMergeError makes Merge operations return an error
func (m *Table) WithMergeError(err error) *Table {
	return m.WithError(OpMerge, err)
}

// WithDeleteError makes Delete operations return an error
func (m *Table) WithDeleteError(err error) *Table {
	return m.WithError(OpDelete, err)
}

// WithQueryError makes QuerySegmented operations return an error
func (m *Table) WithQueryError(err error) *Table {
	return m.WithError(OpQuerySegmented, err)
}

// WithErrorFunc installs a hook consulted before every write. A non-nil result is
// returned instead of performing the write.
func (m *Table) WithErrorFunc(f func(operation string, item *storagemodels.Item) error) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorFunc = f
	return m
}

// Name returns the table name
func (m *Table) Name() string {
	return m.name
}

// Insert stores a new item, rejecting existing keys with 409
func (m *Table) Insert(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpInsert, item); err != nil {
		return nil, err
	}
	if _, exists := m.data[item.Key()]; exists {
		return nil, errors.NewStorageError(OpInsert, http.StatusConflict, nil)
	}
	return m.store(item, nil), nil
}

// InsertOrReplace stores item unconditionally
func (m *Table) InsertOrReplace(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpInsertOrReplace, item); err != nil {
		return nil, err
	}
	return m.store(item, nil), nil
}

// InsertOrMerge merges item into an existing entity or stores it as new
func (m *Table) InsertOrMerge(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpInsertOrMerge, item); err != nil {
		return nil, err
	}
	return m.store(item, m.data[item.Key()]), nil
}

// Replace overwrites an existing entity whose ETag matches
func (m *Table) Replace(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpReplace, item); err != nil {
		return nil, err
	}
	if _, err := m.existing(OpReplace, item); err != nil {
		return nil, err
	}
	return m.store(item, nil), nil
}

// Merge updates the given properties of an existing entity whose ETag matches
func (m *Table) Merge(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpMerge, item); err != nil {
		return nil, err
	}
	current, err := m.existing(OpMerge, item)
	if err != nil {
		return nil, err
	}
	return m.store(item, current), nil
}

// Delete removes an existing entity whose ETag matches
func (m *Table) Delete(ctx context.Context, item *storagemodels.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, OpDelete, item); err != nil {
		return err
	}
	if _, err := m.existing(OpDelete, item); err != nil {
		return err
	}
	delete(m.data, item.Key())
	return nil
}

// Retrieve returns a copy of the stored item, or nil when absent
func (m *Table) Retrieve(ctx context.Context, partitionKey, rowKey string) (*storagemodels.Item, error) {
	m.mu.Lock()
	m.calls[OpRetrieve]++
	injected := m.injected[OpRetrieve]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if injected != nil {
		return nil, injected
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.data[partitionKey+"|"+rowKey]
	if !ok {
		return nil, nil
	}
	return cloneItem(stored), nil
}

// QuerySegmented returns the next segment of items matching query after token
func (m *Table) QuerySegmented(ctx context.Context, query *storagemodels.TableQuery, token *storagemodels.ContinuationToken) (*storagemodels.QuerySegment, error) {
	m.mu.Lock()
	m.calls[OpQuerySegmented]++
	injected := m.injected[OpQuerySegmented]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if injected != nil {
		return nil, injected
	}
	if query == nil {
		query = &storagemodels.TableQuery{}
	}

	node, err := filterexpr.Parse(query.Filter)
	if err != nil {
		return nil, errors.NewStorageError(OpQuerySegmented, http.StatusBadRequest, err)
	}

	limit := m.segmentSize
	if query.TakeCount != nil && *query.TakeCount > 0 && int(*query.TakeCount) < limit {
		limit = int(*query.TakeCount)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ordered := m.sorted()
	segment := &storagemodels.QuerySegment{}
	for _, stored := range ordered {
		if token != nil && !after(stored, token) {
			continue
		}
		if len(segment.Items) == limit {
			// more rows remain; resume after the last returned one
			last := segment.Items[len(segment.Items)-1]
			segment.ContinuationToken = &storagemodels.ContinuationToken{
				NextPartitionKey: last.PartitionKey,
				NextRowKey:       last.RowKey,
			}
			break
		}
		if !filterexpr.Evaluate(node, evaluationProperties(stored)) {
			continue
		}
		segment.Items = append(segment.Items, project(stored, query.SelectColumns))
	}
	return segment, nil
}

// Calls returns how many times operation has been invoked
func (m *Table) Calls(operation string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[operation]
}

// Helper methods for testing

// Seed stores items as given, keeping their ETag and Timestamp. Items without an
// ETag get a fresh one.
func (m *Table) Seed(items ...storagemodels.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range items {
		item := cloneItem(&items[i])
		if item.ETag == "" {
			item.ETag = uuid.NewString()
		}
		m.data[item.Key()] = item
	}
}

// Items returns copies of all stored items in key order
func (m *Table) Items() []storagemodels.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ordered := m.sorted()
	result := make([]storagemodels.Item, 0, len(ordered))
	for _, item := range ordered {
		result = append(result, *cloneItem(item))
	}
	return result
}

// Count returns the number of stored items
func (m *Table) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Clear removes all data
func (m *Table) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]*storagemodels.Item)
}

// begin counts the call and reports injected or cancellation errors. Callers hold m.mu.
func (m *Table) begin(ctx context.Context, operation string, item *storagemodels.Item) error {
	m.calls[operation]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.injected[operation]; err != nil {
		return err
	}
	if item == nil {
		return errors.NewValidationError("item", "cannot be nil")
	}
	if m.errorFunc != nil {
		return m.errorFunc(operation, item)
	}
	return nil
}

// existing returns the stored item matching item's keys and ETag.
func (m *Table) existing(operation string, item *storagemodels.Item) (*storagemodels.Item, error) {
	current, ok := m.data[item.Key()]
	if !ok {
		return nil, errors.NewStorageError(operation, http.StatusNotFound, nil)
	}
	if item.ETag != storagemodels.WildcardETag && item.ETag != current.ETag {
		return nil, errors.NewStorageError(operation, http.StatusPreconditionFailed, nil)
	}
	return current, nil
}

// store writes item, merged over base when base is non-nil, with a fresh ETag and Timestamp.
func (m *Table) store(item, base *storagemodels.Item) *storagemodels.Item {
	stored := cloneItem(item)
	if base != nil {
		merged := make(map[string]types.AttributeValue, len(base.Properties)+len(item.Properties))
		maps.Copy(merged, base.Properties)
		maps.Copy(merged, item.Properties)
		stored.Properties = merged
	}
	stored.ETag = uuid.NewString()
	stored.Timestamp = m.clock().UTC()
	m.data[stored.Key()] = stored
	return cloneItem(stored)
}

func (m *Table) sorted() []*storagemodels.Item {
	ordered := make([]*storagemodels.Item, 0, len(m.data))
	for _, item := range m.data {
		ordered = append(ordered, item)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].PartitionKey != ordered[j].PartitionKey {
			return ordered[i].PartitionKey < ordered[j].PartitionKey
		}
		return ordered[i].RowKey < ordered[j].RowKey
	})
	return ordered
}

func after(item *storagemodels.Item, token *storagemodels.ContinuationToken) bool {
	if item.PartitionKey != token.NextPartitionKey {
		return item.PartitionKey > token.NextPartitionKey
	}
	return item.RowKey > token.NextRowKey
}

// evaluationProperties exposes system properties to the filter alongside the bag.
func evaluationProperties(item *storagemodels.Item) map[string]types.AttributeValue {
	props := make(map[string]types.AttributeValue, len(item.Properties)+4)
	maps.Copy(props, item.Properties)
	props[storagemodels.PartitionKeyName] = &types.AttributeValueMemberS{Value: item.PartitionKey}
	props[storagemodels.RowKeyName] = &types.AttributeValueMemberS{Value: item.RowKey}
	props[storagemodels.ETagName] = &types.AttributeValueMemberS{Value: item.ETag}
	props[storagemodels.TimestampName] = &types.AttributeValueMemberS{Value: storagemodels.FormatTimestamp(item.Timestamp)}
	return props
}

func project(item *storagemodels.Item, columns []string) storagemodels.Item {
	out := *cloneItem(item)
	if len(columns) == 0 {
		return out
	}
	projected := make(map[string]types.AttributeValue, len(columns))
	for _, column := range columns {
		if av, ok := item.Properties[column]; ok {
			projected[column] = av
		}
	}
	out.Properties = projected
	return out
}

func cloneItem(item *storagemodels.Item) *storagemodels.Item {
	c := *item
	c.Properties = make(map[string]types.AttributeValue, len(item.Properties))
	maps.Copy(c.Properties, item.Properties)
	return &c
}
