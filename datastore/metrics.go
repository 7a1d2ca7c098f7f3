/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// instrumentedTable records an operation counter and latency histogram for every call.
type instrumentedTable struct {
	next       Table
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// Instrument wraps table so every store call is counted and timed in reg.
// Several tables may share one registerer; the collectors are reused.
func Instrument(table Table, reg prometheus.Registerer) (Table, error) {
	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tablestore",
			Name:      "operations_total",
			Help:      "Total number of table store operations",
		},
		[]string{"table", "operation", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tablestore",
			Name:      "operation_duration_seconds",
			Help:      "Table store operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"table", "operation"},
	)

	if err := reg.Register(operations); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		operations = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}

	return &instrumentedTable{next: table, operations: operations, duration: duration}, nil
}

func (t *instrumentedTable) observe(operation string, start time.Time, err error) {
	t.duration.WithLabelValues(t.next.Name(), operation).Observe(time.Since(start).Seconds())
	t.operations.WithLabelValues(t.next.Name(), operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case storeerrors.IsStoreNotFound(err):
		return "not_found"
	case storeerrors.IsAlreadyExists(err):
		return "conflict"
	case storeerrors.IsConditionFailed(err):
		return "precondition_failed"
	default:
		return "error"
	}
}

func (t *instrumentedTable) Name() string {
	return t.next.Name()
}

func (t *instrumentedTable) Insert(ctx context.Context, item *storagemodels.Item) (out *storagemodels.Item, err error) {
	defer func(start time.Time) { t.observe("insert", start, err) }(time.Now())
	return t.next.Insert(ctx, item)
}

func (t *instrumentedTable) InsertOrReplace(ctx context.Context, item *storagemodels.Item) (out *storagemodels.Item, err error) {
	defer func(start time.Time) { t.observe("insert_or_replace", start, err) }(time.Now())
	return t.next.InsertOrReplace(ctx, item)
}

func (t *instrumentedTable) InsertOrMerge(ctx context.Context, item *storagemodels.Item) (out *storagemodels.Item, err error) {
	defer func(start time.Time) { t.observe("insert_or_merge", start, err) }(time.Now())
	return t.next.InsertOrMerge(ctx, item)
}

func (t *instrumentedTable) Replace(ctx context.Context, item *storagemodels.Item) (out *storagemodels.Item, err error) {
	defer func(start time.Time) { t.observe("replace", start, err) }(time.Now())
	return t.next.Replace(ctx, item)
}

func (t *instrumentedTable) Merge(ctx context.Context, item *storagemodels.Item) (out *storagemodels.Item, err error) {
	defer func(start time.Time) { t.observe("merge", start, err) }(time.Now())
	return t.next.Merge(ctx, item)
}

func (t *instrumentedTable) Delete(ctx context.Context, item *storagemodels.Item) (err error) {
	defer func(start time.Time) { t.observe("delete", start, err) }(time.Now())
	return t.next.Delete(ctx, item)
}

func (t *instrumentedTable) Retrieve(ctx context.Context, partitionKey, rowKey string) (out *storagemodels.Item, err error) {
	defer func(start time.Time) { t.observe("retrieve", start, err) }(time.Now())
	return t.next.Retrieve(ctx, partitionKey, rowKey)
}

func (t *instrumentedTable) QuerySegmented(ctx context.Context, query *storagemodels.TableQuery, token *storagemodels.ContinuationToken) (out *storagemodels.QuerySegment, err error) {
	defer func(start time.Time) { t.observe("query_segmented", start, err) }(time.Now())
	return t.next.QuerySegmented(ctx, query, token)
}
