/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/tablestore/datastore/mock"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/filter"
	"github.com/suparena/tablestore/storagemodels"
)

func newTestCLI(t *testing.T) (*cli, *mock.Table, *bytes.Buffer) {
	t.Helper()
	table := mock.New("people")
	table.Seed(
		person("a", "1", "John", "50", time.Now().Add(-48*time.Hour)),
		person("a", "2", "Jane", "30", time.Now()),
		person("b", "1", "Jim", "60", time.Now()),
	)

	c, err := newCLI(table)
	if err != nil {
		t.Fatalf("newCLI() error = %v", err)
	}
	out := &bytes.Buffer{}
	c.out = out
	return c, table, out
}

func person(pk, rk, name, age string, ts time.Time) storagemodels.Item {
	return storagemodels.Item{
		PartitionKey: pk,
		RowKey:       rk,
		Timestamp:    ts.UTC(),
		Properties: map[string]types.AttributeValue{
			"Name": &types.AttributeValueMemberS{Value: name},
			"Age":  &types.AttributeValueMemberS{Value: age},
		},
	}
}

func TestCommands(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		command string
		args    []string
		want    []string
		lines   int
	}{
		{name: "count all", command: "count", want: []string{"3"}, lines: 1},
		{name: "count partition", command: "count", args: []string{"a"}, want: []string{"2"}, lines: 1},
		{name: "get", command: "get", args: []string{"a", "2"}, want: []string{`"Name":"Jane"`}, lines: 1},
		{name: "find", command: "find", args: []string{"Name", "John", "Jim"}, want: []string{`"John"`, `"Jim"`}, lines: 2},
		{name: "query", command: "query", args: []string{"Age", "ge", "50", "and", "Name", "eq", "John"}, want: []string{`"rowKey":"1"`}, lines: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, out := newTestCLI(t)
			if err := c.dispatch(ctx, tt.command, tt.args); err != nil {
				t.Fatalf("dispatch() error = %v", err)
			}
			got := out.String()
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output %q does not contain %q", got, want)
				}
			}
			if lines := strings.Count(got, "\n"); lines != tt.lines {
				t.Errorf("output has %d lines, want %d", lines, tt.lines)
			}
		})
	}
}

func TestQueryPaging(t *testing.T) {
	c, _, out := newTestCLI(t)
	c.take = 2

	if err := c.dispatch(context.Background(), "query", []string{"Age", "ne", "0"}); err != nil {
		t.Fatalf("dispatch() error = %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "# next page: -token ") {
		t.Fatalf("expected a next page token in %q", got)
	}
	token := strings.TrimSpace(got[strings.LastIndex(got, "-token ")+len("-token "):])

	out.Reset()
	c.token = token
	if err := c.dispatch(context.Background(), "query", []string{"Age", "ne", "0"}); err != nil {
		t.Fatalf("dispatch() error = %v", err)
	}
	if strings.Contains(out.String(), "# next page") || strings.Count(out.String(), "\n") != 1 {
		t.Errorf("unexpected last page %q", out.String())
	}
}

func TestDeleteOlderThan(t *testing.T) {
	c, table, out := newTestCLI(t)

	c.dryRun = true
	if err := c.dispatch(context.Background(), "delete-older-than", []string{"24h"}); err != nil {
		t.Fatalf("dry run error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "1 entities") {
		t.Errorf("dry run output = %q", out.String())
	}
	if table.Count() != 3 {
		t.Fatal("dry run deleted entities")
	}

	c.dryRun = false
	if err := c.dispatch(context.Background(), "delete-older-than", []string{"24h"}); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if table.Count() != 2 {
		t.Errorf("Count() = %d, want 2", table.Count())
	}
}

func TestCommandErrors(t *testing.T) {
	c, _, _ := newTestCLI(t)
	ctx := context.Background()

	cases := map[string][]string{
		"unknown":           nil,
		"get":               {"a"},
		"find":              {"Name"},
		"count":             {"a", "b"},
		"query":             {"Age", "ge"},
		"delete-older-than": {"yesterday"},
	}
	for command, args := range cases {
		if err := c.dispatch(ctx, command, args); err == nil {
			t.Errorf("dispatch(%q, %v) succeeded", command, args)
		}
	}

	if err := c.dispatch(ctx, "get", []string{"a", "missing"}); !storeerrors.IsNotFound(err) {
		t.Errorf("get of a missing entity error = %v, want not found", err)
	}
}

func TestDispatchUnregisteredTable(t *testing.T) {
	c, _, _ := newTestCLI(t)
	if got := c.repos.List(); len(got) != 1 || got[0] != "people" {
		t.Fatalf("registered tables = %v, want [people]", got)
	}

	c.table = "orders"
	if err := c.dispatch(context.Background(), "count", nil); !storeerrors.IsNotFound(err) {
		t.Errorf("dispatch() error = %v, want not found", err)
	}
}

func TestParseFilter(t *testing.T) {
	f, err := parseFilter([]string{"Age", "GE", "50", "or", "Name", "eq", "John"})
	if err != nil {
		t.Fatalf("parseFilter() error = %v", err)
	}
	if got, want := filter.ToTableFilter(f), "(Age ge '50') or (Name eq 'John')"; got != want {
		t.Errorf("ToTableFilter() = %q, want %q", got, want)
	}

	for _, args := range [][]string{
		{"Age", "ge"},
		{"Age", "about", "50"},
		{"Age", "ge", "50", "xor", "Name", "eq", "John"},
		{"Age", "ge", "50", "and", "Name"},
	} {
		if _, err := parseFilter(args); err == nil {
			t.Errorf("parseFilter(%v) succeeded", args)
		}
	}
}

func TestRunVersionAndUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run(version) = %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "tablectl version ") {
		t.Errorf("version output = %q", stdout.String())
	}

	stderr.Reset()
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Errorf("run() without a command = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "Commands:") {
		t.Errorf("usage not printed: %q", stderr.String())
	}

	if code := run([]string{"-table", "", "-conn", "", "count"}, &stdout, &stderr); code != 1 {
		t.Errorf("run() without config = %d, want 1", code)
	}
}

func TestPrintMetrics(t *testing.T) {
	c, _, _ := newTestCLI(t)
	if err := c.dispatch(context.Background(), "count", nil); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	printMetrics(&buf, c.metrics)
	if !strings.Contains(buf.String(), "tablestore_operations_total{") {
		t.Errorf("metrics output = %q", buf.String())
	}
}
