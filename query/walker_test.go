/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/tablestore/datastore/mock"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// recordingTable captures the TakeCount of every segment request.
type recordingTable struct {
	*mock.Table
	takes  []int32
	cancel context.CancelFunc
}

func (r *recordingTable) QuerySegmented(ctx context.Context, q *storagemodels.TableQuery, token *storagemodels.ContinuationToken) (*storagemodels.QuerySegment, error) {
	if q.TakeCount != nil {
		r.takes = append(r.takes, *q.TakeCount)
	} else {
		r.takes = append(r.takes, -1)
	}
	segment, err := r.Table.QuerySegmented(ctx, q, token)
	if r.cancel != nil {
		r.cancel()
	}
	return segment, err
}

// contextTable records the context of every segment request.
type contextTable struct {
	*mock.Table
	contexts []context.Context
	cancel   context.CancelFunc
}

func (c *contextTable) QuerySegmented(ctx context.Context, q *storagemodels.TableQuery, token *storagemodels.ContinuationToken) (*storagemodels.QuerySegment, error) {
	c.contexts = append(c.contexts, ctx)
	if c.cancel != nil {
		c.cancel()
	}
	return c.Table.QuerySegmented(ctx, q, token)
}

func TestSegmentRequestContext(t *testing.T) {
	t.Run("KeepsDeadline", func(t *testing.T) {
		want := time.Now().Add(time.Hour)
		ctx, cancel := context.WithDeadline(context.Background(), want)
		defer cancel()
		table := &contextTable{Table: seededTable(5, 2)}

		_, err := NewWalker(table, nil).ExecuteAll(ctx, &storagemodels.TableQuery{}, nil)
		require.NoError(t, err)
		require.Len(t, table.contexts, 3)
		for _, c := range table.contexts {
			got, ok := c.Deadline()
			require.True(t, ok)
			assert.True(t, got.Equal(want))
		}
	})

	t.Run("IgnoresCancellationDuringSegment", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		table := &contextTable{Table: seededTable(5, 2), cancel: cancel}

		page, err := NewWalker(table, nil).ExecutePage(ctx, &storagemodels.TableQuery{TakeCount: take(4)}, "")
		assert.ErrorIs(t, err, context.Canceled)
		require.Len(t, table.contexts, 1)
		assert.NoError(t, table.contexts[0].Err())
		assert.Len(t, page.Items, 2)
	})

	t.Run("NoDeadline", func(t *testing.T) {
		table := &contextTable{Table: seededTable(1, 2)}
		_, err := NewWalker(table, nil).ExecuteAll(context.Background(), &storagemodels.TableQuery{}, nil)
		require.NoError(t, err)
		_, ok := table.contexts[0].Deadline()
		assert.False(t, ok)
	})
}

func seededTable(n, segmentSize int) *mock.Table {
	table := mock.New("people").WithSegmentSize(segmentSize)
	for i := 0; i < n; i++ {
		table.Seed(storagemodels.Item{
			PartitionKey: "p",
			RowKey:       fmt.Sprintf("%03d", i),
			Properties: map[string]types.AttributeValue{
				"Index": &types.AttributeValueMemberN{Value: fmt.Sprint(i)},
			},
		})
	}
	return table
}

func take(n int32) *int32 {
	return &n
}

func TestExecuteAll(t *testing.T) {
	ctx := context.Background()

	t.Run("DrainsEverySegment", func(t *testing.T) {
		table := &recordingTable{Table: seededTable(7, 3)}
		walker := NewWalker(table, nil)

		var progress []int
		items, err := walker.ExecuteAll(ctx, &storagemodels.TableQuery{}, func(items []storagemodels.Item) error {
			progress = append(progress, len(items))
			return nil
		})
		require.NoError(t, err)
		assert.Len(t, items, 7)
		assert.Equal(t, []int{3, 6, 7}, progress)
		assert.Equal(t, "000", items[0].RowKey)
		assert.Equal(t, "006", items[6].RowKey)
	})

	t.Run("ProgressErrorAborts", func(t *testing.T) {
		table := &recordingTable{Table: seededTable(7, 3)}
		walker := NewWalker(table, nil)

		stop := errors.New("stop")
		_, err := walker.ExecuteAll(ctx, &storagemodels.TableQuery{}, func([]storagemodels.Item) error {
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Len(t, table.takes, 1)
	})

	t.Run("CancellationStopsAfterSegment", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		table := &recordingTable{Table: seededTable(7, 3), cancel: cancel}
		walker := NewWalker(table, nil)

		items, err := walker.ExecuteAll(cancelCtx, &storagemodels.TableQuery{}, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, items, 3)
		assert.Len(t, table.takes, 1)
	})

	t.Run("StoreErrorPropagates", func(t *testing.T) {
		table := seededTable(3, 3)
		walker := NewWalker(table, nil)

		_, err := walker.ExecuteAll(ctx, &storagemodels.TableQuery{Filter: "Index eq"}, nil)
		var storageErr *storeerrors.StorageError
		assert.True(t, errors.As(err, &storageErr))
	})
}

func TestExecutePage(t *testing.T) {
	ctx := context.Background()

	t.Run("NeverExceedsCapWithSmallSegments", func(t *testing.T) {
		table := &recordingTable{Table: seededTable(10, 2)}
		walker := NewWalker(table, nil)
		q := &storagemodels.TableQuery{TakeCount: take(3)}

		var all []string
		pageToken := ""
		for pages := 0; pages < 10; pages++ {
			page, err := walker.ExecutePage(ctx, q, pageToken)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(page.Items), 3)
			for _, item := range page.Items {
				all = append(all, item.RowKey)
			}
			pageToken = page.NextPageToken
			if pageToken == "" {
				break
			}
		}

		assert.Len(t, all, 10)
		assert.Equal(t, "000", all[0])
		assert.Equal(t, "009", all[9])
		// The caller's query is untouched.
		assert.Equal(t, int32(3), *q.TakeCount)
		// First page: segment of 2, then the exact shortfall of 1.
		assert.Equal(t, []int32{3, 1}, table.takes[:2])
	})

	t.Run("ExhaustedQueryHasEmptyToken", func(t *testing.T) {
		walker := NewWalker(seededTable(2, 5), nil)
		page, err := walker.ExecutePage(ctx, &storagemodels.TableQuery{TakeCount: take(5)}, "")
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Empty(t, page.NextPageToken)
	})

	t.Run("NilTakeCountDrains", func(t *testing.T) {
		walker := NewWalker(seededTable(5, 2), nil)
		page, err := walker.ExecutePage(ctx, &storagemodels.TableQuery{}, "")
		require.NoError(t, err)
		assert.Len(t, page.Items, 5)
		assert.Empty(t, page.NextPageToken)
	})

	t.Run("MalformedToken", func(t *testing.T) {
		table := &recordingTable{Table: seededTable(2, 5)}
		walker := NewWalker(table, nil)
		_, err := walker.ExecutePage(ctx, &storagemodels.TableQuery{TakeCount: take(1)}, "not base64!")
		assert.ErrorIs(t, err, storeerrors.ErrInvalidToken)
		assert.Empty(t, table.takes)
	})

	t.Run("NonPositiveTakeCount", func(t *testing.T) {
		walker := NewWalker(seededTable(2, 5), nil)
		_, err := walker.ExecutePage(ctx, &storagemodels.TableQuery{TakeCount: take(0)}, "")
		assert.True(t, storeerrors.IsValidationError(err))
	})

	t.Run("CancellationKeepsResumeToken", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		table := &recordingTable{Table: seededTable(10, 2), cancel: cancel}
		walker := NewWalker(table, nil)

		page, err := walker.ExecutePage(cancelCtx, &storagemodels.TableQuery{TakeCount: take(6)}, "")
		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, page)
		assert.Len(t, page.Items, 2)
		assert.NotEmpty(t, page.NextPageToken)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	original := &storagemodels.ContinuationToken{NextPartitionKey: "users", NextRowKey: "o'brien|42"}

	encoded, err := EncodeToken(original)
	require.NoError(t, err)

	decoded, err := DecodeToken(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	reencoded, err := EncodeToken(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestTokenEdgeCases(t *testing.T) {
	encoded, err := EncodeToken(nil)
	require.NoError(t, err)
	assert.Empty(t, encoded)

	decoded, err := DecodeToken("")
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = DecodeToken("e30=!") // invalid base64
	assert.ErrorIs(t, err, storeerrors.ErrInvalidToken)

	_, err = DecodeToken("bm90IGpzb24=") // "not json"
	assert.ErrorIs(t, err, storeerrors.ErrInvalidToken)
}
