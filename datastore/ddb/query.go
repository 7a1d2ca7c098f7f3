/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// QuerySegmented runs one Query (when the filter pins a partition) or Scan request.
// DynamoDB applies Limit before the filter, so a segment may hold fewer items than
// TakeCount while still carrying a continuation token.
func (t *Table) QuerySegmented(ctx context.Context, query *storagemodels.TableQuery, token *storagemodels.ContinuationToken) (*storagemodels.QuerySegment, error) {
	const operation = "QuerySegmented"
	if query == nil {
		query = &storagemodels.TableQuery{}
	}

	plan, err := planQuery(query.Filter, query.SelectColumns)
	if err != nil {
		return nil, storeerrors.NewStorageError(operation, http.StatusBadRequest, err)
	}
	expr, hasExpr, err := plan.build()
	if err != nil {
		return nil, storeerrors.NewStorageError(operation, http.StatusBadRequest, err)
	}

	var limit *int32
	if query.TakeCount != nil && *query.TakeCount > 0 {
		limit = aws.Int32(*query.TakeCount)
	}
	var startKey map[string]types.AttributeValue
	if token != nil {
		startKey = keyOf(token.NextPartitionKey, token.NextRowKey)
	}

	var items []map[string]types.AttributeValue
	var lastKey map[string]types.AttributeValue

	if plan.usesQuery() {
		input := &sdk.QueryInput{
			TableName:                 aws.String(t.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
			Limit:                     limit,
		}
		out, err := withRetry(ctx, t.logger, operation, t.retry, isRetryableError, func() (*sdk.QueryOutput, error) {
			return t.client.Query(ctx, input)
		})
		if err != nil {
			return nil, classify(operation, err)
		}
		items, lastKey = out.Items, out.LastEvaluatedKey
	} else {
		input := &sdk.ScanInput{
			TableName:         aws.String(t.tableName),
			ExclusiveStartKey: startKey,
			Limit:             limit,
		}
		if hasExpr {
			input.FilterExpression = expr.Filter()
			input.ProjectionExpression = expr.Projection()
			input.ExpressionAttributeNames = expr.Names()
			input.ExpressionAttributeValues = expr.Values()
		}
		out, err := withRetry(ctx, t.logger, operation, t.retry, isRetryableError, func() (*sdk.ScanOutput, error) {
			return t.client.Scan(ctx, input)
		})
		if err != nil {
			return nil, classify(operation, err)
		}
		items, lastKey = out.Items, out.LastEvaluatedKey
	}

	segment := &storagemodels.QuerySegment{Items: make([]storagemodels.Item, 0, len(items))}
	for _, av := range items {
		segment.Items = append(segment.Items, *fromAttributes(av))
	}
	if len(lastKey) > 0 {
		segment.ContinuationToken = &storagemodels.ContinuationToken{
			NextPartitionKey: stringValue(lastKey[storagemodels.PartitionKeyName]),
			NextRowKey:       stringValue(lastKey[storagemodels.RowKeyName]),
		}
	}

	t.logger.Debug("fetched segment",
		zap.Bool("query", plan.usesQuery()),
		zap.Int("items", len(segment.Items)),
		zap.Bool("more", segment.ContinuationToken != nil))
	return segment, nil
}
