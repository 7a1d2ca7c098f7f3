//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/suparena/tablestore"
	"github.com/suparena/tablestore/datastore/ddb"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/filter"
	"github.com/suparena/tablestore/storagemodels"
)

// Test entities
type IntegrationPerson struct {
	storagemodels.TableEntity
	Name string
	Age  string
}

type IntegrationOrder struct {
	storagemodels.TableEntity
	Total  float64 `tablestore:"decimal"`
	Status int     `tablestore:"enum"`
}

func setupTable(t *testing.T) *ddb.Table {
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

	table, err := ddb.Open(context.Background(), connectionString, tableName, ddb.WithCreateIfNotExists())
	if err != nil {
		t.Skipf("DynamoDB not reachable: %v", err)
	}
	return table
}

func TestIntegration_PersonLifecycle(t *testing.T) {
	table := setupTable(t)
	ctx := context.Background()
	pk := fmt.Sprintf("people-%d", time.Now().UnixNano())

	repo, err := tablestore.NewRepository[IntegrationPerson](table, tablestore.WithMaxInFlight(4))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() {
		people, _ := repo.FindBy(context.Background(), storagemodels.PartitionKeyName, pk)
		_ = repo.DeleteIfExistsBatch(context.Background(), people)
	})

	people := []*IntegrationPerson{
		{TableEntity: storagemodels.TableEntity{PartitionKey: pk, RowKey: "1"}, Name: "John", Age: "50"},
		{TableEntity: storagemodels.TableEntity{PartitionKey: pk, RowKey: "2"}, Name: "John", Age: "30"},
		{TableEntity: storagemodels.TableEntity{PartitionKey: pk, RowKey: "3"}, Name: "Jane", Age: "60"},
	}

	t.Run("InsertBatch", func(t *testing.T) {
		if err := repo.InsertBatch(ctx, people); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
		for _, p := range people {
			if p.ETag == "" {
				t.Errorf("ETag not copied back for %s", p.RowKey)
			}
		}
	})

	t.Run("DuplicateInsert", func(t *testing.T) {
		err := repo.Insert(ctx, &IntegrationPerson{TableEntity: storagemodels.TableEntity{PartitionKey: pk, RowKey: "1"}})
		if !errors.IsAlreadyExists(err) {
			t.Errorf("Expected already exists error, got %v", err)
		}
	})

	t.Run("Query", func(t *testing.T) {
		f := filter.When(storagemodels.PartitionKeyName, filter.Equal, pk).
			And().When("Age", filter.GreaterThanOrEqual, "50").
			And().When("Name", filter.Equal, "John").
			Build()
		found, err := repo.Query(ctx, f)
		if err != nil {
			t.Fatalf("Failed to query: %v", err)
		}
		if len(found) != 1 || found[0].RowKey != "1" {
			t.Errorf("Expected only row 1, got %d results", len(found))
		}
	})

	t.Run("CountAndExists", func(t *testing.T) {
		count, err := repo.CountInPartition(ctx, pk)
		if err != nil || count != 3 {
			t.Errorf("CountInPartition() = %d, %v", count, err)
		}
		ok, err := repo.Exists(ctx, pk, "2")
		if err != nil || !ok {
			t.Errorf("Exists() = %v, %v", ok, err)
		}
	})

	t.Run("QueryPage", func(t *testing.T) {
		f := filter.When(storagemodels.PartitionKeyName, filter.Equal, pk).Build()
		total := 0
		token := ""
		for {
			page, err := repo.QueryPage(ctx, f, 2, token)
			if err != nil {
				t.Fatalf("Failed to page: %v", err)
			}
			if len(page.Items) > 2 {
				t.Fatalf("Page exceeded its size: %d", len(page.Items))
			}
			total += len(page.Items)
			if token = page.NextPageToken; token == "" {
				break
			}
		}
		if total != 3 {
			t.Errorf("Expected 3 paged results, got %d", total)
		}
	})

	t.Run("ConditionalWrites", func(t *testing.T) {
		stale := *people[0]
		people[0].Age = "51"
		if err := repo.Replace(ctx, people[0]); err != nil {
			t.Fatalf("Failed to replace: %v", err)
		}
		if err := repo.Merge(ctx, &stale); !errors.IsConditionFailed(err) {
			t.Errorf("Expected condition failed, got %v", err)
		}

		ghost := &IntegrationPerson{TableEntity: storagemodels.TableEntity{PartitionKey: pk, RowKey: "ghost"}}
		ghost.WildcardETag()
		if err := repo.Delete(ctx, ghost); !errors.IsStoreNotFound(err) {
			t.Errorf("Expected store not found, got %v", err)
		}
		if err := repo.DeleteIfExists(ctx, ghost); err != nil {
			t.Errorf("DeleteIfExists() error = %v", err)
		}
	})

	t.Run("DeleteIfExistsByKeys", func(t *testing.T) {
		if err := repo.DeleteIfExistsByKeys(ctx, pk, "3"); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		got, err := repo.GetByKeys(ctx, pk, "3")
		if err != nil || got != nil {
			t.Errorf("GetByKeys() after delete = %v, %v", got, err)
		}
	})
}

func TestIntegration_CustomFields(t *testing.T) {
	table := setupTable(t)
	ctx := context.Background()
	pk := fmt.Sprintf("orders-%d", time.Now().UnixNano())

	repo, err := tablestore.NewRepository[IntegrationOrder](table)
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}

	order := &IntegrationOrder{
		TableEntity: storagemodels.TableEntity{PartitionKey: pk, RowKey: "1"},
		Total:       19.99,
		Status:      2,
	}
	if err := repo.InsertOrReplace(ctx, order); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	defer repo.DeleteIfExists(ctx, order)

	got, err := repo.GetByKeys(ctx, pk, "1")
	if err != nil || got == nil {
		t.Fatalf("GetByKeys() = %v, %v", got, err)
	}
	if got.Total != 19.99 || got.Status != 2 {
		t.Errorf("Round trip lost data: %+v", got)
	}
}
