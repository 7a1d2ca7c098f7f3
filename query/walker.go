/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/suparena/tablestore/datastore"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// ProgressFunc is called after each segment with every item collected so far.
// Returning an error aborts the walk.
type ProgressFunc func(items []storagemodels.Item) error

// Walker drives segmented queries against a table.
//
// Cancellation is honored only between segments: a segment request that has been
// issued always completes, and the walk then stops with the items gathered so far
// and ctx.Err().
type Walker struct {
	table  datastore.Table
	logger *zap.Logger
}

// NewWalker creates a walker over table. A nil logger discards output.
func NewWalker(table datastore.Table, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{table: table, logger: logger}
}

// ExecuteAll fetches segments until the table reports no continuation token.
// onProgress may be nil.
func (w *Walker) ExecuteAll(ctx context.Context, q *storagemodels.TableQuery, onProgress ProgressFunc) ([]storagemodels.Item, error) {
	requestCtx, release := requestContext(ctx)
	defer release()
	var items []storagemodels.Item
	var token *storagemodels.ContinuationToken
	segments := 0

	for {
		segment, err := w.table.QuerySegmented(requestCtx, q, token)
		if err != nil {
			return items, err
		}
		segments++
		token = segment.ContinuationToken
		items = append(items, segment.Items...)

		w.logger.Debug("query segment",
			zap.String("table", w.table.Name()),
			zap.Int("segment", segments),
			zap.Int("segmentItems", len(segment.Items)),
			zap.Int("totalItems", len(items)))

		if onProgress != nil {
			if err := onProgress(items); err != nil {
				return items, fmt.Errorf("progress callback: %w", err)
			}
		}

		if token == nil {
			return items, nil
		}
		if err := ctx.Err(); err != nil {
			return items, err
		}
	}
}

// ExecutePage returns the next page of at most q.TakeCount items, resuming from
// pageToken when it is non-empty. When the table returns short segments, the
// remaining count is requested until the cap is met or the query is exhausted.
// A nil TakeCount drains the query. q itself is never modified.
func (w *Walker) ExecutePage(ctx context.Context, q *storagemodels.TableQuery, pageToken string) (*storagemodels.Page, error) {
	token, err := DecodeToken(pageToken)
	if err != nil {
		return nil, err
	}

	requestCtx, release := requestContext(ctx)
	defer release()
	working := q.Clone()
	var original int32
	capped := working.TakeCount != nil
	if capped {
		original = *working.TakeCount
		if original <= 0 {
			return nil, storeerrors.NewValidationError("takeCount", "must be positive")
		}
	}

	page := &storagemodels.Page{}
	var taken int32
	var cancelled error

	for {
		segment, err := w.table.QuerySegmented(requestCtx, working, token)
		if err != nil {
			return nil, err
		}
		token = segment.ContinuationToken
		page.Items = append(page.Items, segment.Items...)
		taken += int32(len(segment.Items))

		w.logger.Debug("page segment",
			zap.String("table", w.table.Name()),
			zap.Int32("taken", taken),
			zap.Bool("more", token != nil))

		if token == nil || (capped && taken >= original) {
			break
		}
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		if capped {
			remaining := original - taken
			working.TakeCount = &remaining
		}
	}

	page.NextPageToken, err = EncodeToken(token)
	if err != nil {
		return nil, err
	}
	return page, cancelled
}

// requestContext detaches segment requests from ctx's cancellation, so a segment in
// flight completes and cancellation is observed between segments. ctx's deadline
// still applies.
func requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, deadline)
	}
	return detached, func() {}
}
