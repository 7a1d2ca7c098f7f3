//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// openIntegrationTable connects to the table named by TABLESTORE_TABLE using
// TABLESTORE_CONNECTION_STRING, defaulting to DynamoDB Local.
func openIntegrationTable(t *testing.T) *Table {
	t.Helper()
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, proceeding with environment variables")
	}

	connectionString := os.Getenv("TABLESTORE_CONNECTION_STRING")
	if connectionString == "" {
		connectionString = "UseDevelopmentStorage=true"
	}
	tableName := os.Getenv("TABLESTORE_TABLE")
	if tableName == "" {
		tableName = "tablestoreintegration"
	}

	table, err := Open(context.Background(), connectionString, tableName, WithCreateIfNotExists())
	if err != nil {
		t.Skipf("DynamoDB not reachable: %v", err)
	}
	return table
}

func TestIntegrationLifecycle(t *testing.T) {
	table := openIntegrationTable(t)
	ctx := context.Background()
	pk := fmt.Sprintf("it-%d", time.Now().UnixNano())

	item := &storagemodels.Item{
		PartitionKey: pk,
		RowKey:       "1",
		Properties: map[string]types.AttributeValue{
			"Name": &types.AttributeValueMemberS{Value: "Alice"},
			"Age":  &types.AttributeValueMemberS{Value: "55"},
		},
	}

	inserted, err := table.Insert(ctx, item)
	require.NoError(t, err)

	_, err = table.Insert(ctx, item)
	assert.True(t, storeerrors.IsAlreadyExists(err))

	stale := *item
	stale.ETag = "stale"
	_, err = table.Replace(ctx, &stale)
	assert.True(t, storeerrors.IsConditionFailed(err))

	retrieved, err := table.Retrieve(ctx, pk, "1")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, inserted.ETag, retrieved.ETag)

	segment, err := table.QuerySegmented(ctx, &storagemodels.TableQuery{
		Filter: fmt.Sprintf("(PartitionKey eq '%s') and (Age ge '50')", pk),
	}, nil)
	require.NoError(t, err)
	assert.Len(t, segment.Items, 1)

	require.NoError(t, table.Delete(ctx, retrieved))

	missing := *retrieved
	missing.ETag = storagemodels.WildcardETag
	err = table.Delete(ctx, &missing)
	assert.True(t, storeerrors.IsStoreNotFound(err))
}
