/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/suparena/tablestore"
	"github.com/suparena/tablestore/datastore"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/filter"
	"github.com/suparena/tablestore/storagemodels"
)

const usage = `Usage: tablectl [flags] <command> [args]

Commands:
  count [partitionKey]              count entities, optionally in one partition
  get <partitionKey> <rowKey>       print one entity
  find <field> <value>...           print entities whose field equals any value
  query <field> <op> <value> [and|or <field> <op> <value>]...
                                    print entities matching the filter
  delete-older-than <duration>      delete entities last written before now-duration
  version                           print version information

Flags:
`

type cli struct {
	repos   *tablestore.TypedRepositories[storagemodels.DynamicEntity]
	table   string
	repo    tablestore.TableRepository[storagemodels.DynamicEntity]
	out     io.Writer
	take    int
	token   string
	dryRun  bool
	metrics *prometheus.Registry
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tablectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "YAML config file")
	connectionString := fs.String("conn", os.Getenv("TABLESTORE_CONNECTION_STRING"), "connection string (overrides config)")
	tableName := fs.String("table", os.Getenv("TABLESTORE_TABLE"), "table name (overrides config)")
	take := fs.Int("take", 0, "page size for query; 0 returns every match")
	token := fs.String("token", "", "page token returned by a previous query")
	dryRun := fs.Bool("dry-run", false, "with delete-older-than, only count the matches")
	showMetrics := fs.Bool("metrics", false, "print store call metrics to stderr on exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	command, rest := fs.Arg(0), fs.Args()[1:]
	if command == "version" {
		info := tablestore.GetVersionInfo()
		fmt.Fprintf(stdout, "tablectl version %s\n", info.Version)
		fmt.Fprintf(stdout, "Git commit: %s\n", info.GitCommit)
		fmt.Fprintf(stdout, "Build date: %s\n", info.BuildDate)
		fmt.Fprintf(stdout, "Go version: %s\n", info.GoVersion)
		return 0
	}

	cfg, err := loadConfig(*configPath, *connectionString, *tableName)
	if err != nil {
		fmt.Fprintf(stderr, "tablectl: %v\n", err)
		return 1
	}
	logger, err := tablestore.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "tablectl: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect failed", zap.Error(err))
		return 1
	}
	c.out = stdout
	c.take = *take
	c.token = *token
	c.dryRun = *dryRun

	err = c.dispatch(ctx, command, rest)
	if *showMetrics {
		printMetrics(stderr, c.metrics)
	}
	if err != nil {
		fmt.Fprintf(stderr, "tablectl: %s: %v\n", command, err)
		return 1
	}
	return 0
}

func loadConfig(path, connectionString, tableName string) (*tablestore.Config, error) {
	cfg := &tablestore.Config{}
	if path != "" {
		loaded, err := tablestore.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if connectionString != "" {
		cfg.ConnectionString = connectionString
	}
	if tableName != "" {
		cfg.TableName = tableName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func connect(ctx context.Context, cfg *tablestore.Config, logger *zap.Logger) (*cli, error) {
	opened, err := tablestore.OpenTable(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return newCLI(opened, cfg.RepositoryOptions(logger)...)
}

// newCLI wraps table with metrics and registers the dynamic repository used by every
// command under the table name.
func newCLI(table datastore.Table, opts ...tablestore.Option) (*cli, error) {
	reg := prometheus.NewRegistry()
	instrumented, err := datastore.Instrument(table, reg)
	if err != nil {
		return nil, err
	}
	repo, err := tablestore.NewRepository[storagemodels.DynamicEntity](instrumented, opts...)
	if err != nil {
		return nil, err
	}
	repos := tablestore.NewTypedRepositories[storagemodels.DynamicEntity]()
	if err := repos.Register(table.Name(), repo); err != nil {
		return nil, err
	}
	return &cli{repos: repos, table: table.Name(), metrics: reg, out: io.Discard}, nil
}

func (c *cli) dispatch(ctx context.Context, command string, args []string) error {
	repo, err := c.repos.Get(c.table)
	if err != nil {
		return err
	}
	c.repo = repo

	switch command {
	case "count":
		return c.count(ctx, args)
	case "get":
		return c.get(ctx, args)
	case "find":
		return c.find(ctx, args)
	case "query":
		return c.query(ctx, args)
	case "delete-older-than":
		return c.deleteOlderThan(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) count(ctx context.Context, args []string) error {
	var n int
	var err error
	switch len(args) {
	case 0:
		n, err = c.repo.Count(ctx)
	case 1:
		n, err = c.repo.CountInPartition(ctx, args[0])
	default:
		return fmt.Errorf("expected at most one partition key")
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, n)
	return nil
}

func (c *cli) get(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected <partitionKey> <rowKey>")
	}
	entity, err := c.repo.GetByKeys(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if entity == nil {
		return storeerrors.NewNotFoundError("entity", args[0]+"|"+args[1])
	}
	return c.print(entity)
}

func (c *cli) find(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("expected <field> <value>...")
	}
	entities, err := c.repo.FindIn(ctx, args[0], args[1:])
	if err != nil {
		return err
	}
	return c.print(entities...)
}

func (c *cli) query(ctx context.Context, args []string) error {
	f, err := parseFilter(args)
	if err != nil {
		return err
	}

	if c.take <= 0 {
		entities, err := c.repo.Query(ctx, f)
		if err != nil {
			return err
		}
		return c.print(entities...)
	}

	page, err := c.repo.QueryPage(ctx, f, int32(c.take), c.token)
	if page != nil {
		if printErr := c.print(page.Items...); printErr != nil {
			return printErr
		}
		if page.NextPageToken != "" {
			fmt.Fprintf(c.out, "# next page: -token %s\n", page.NextPageToken)
		}
	}
	return err
}

func (c *cli) deleteOlderThan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected <duration>, e.g. 720h")
	}
	age, err := time.ParseDuration(args[0])
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-age)

	if c.dryRun {
		f := filter.When(storagemodels.TimestampName, filter.LessThan, storagemodels.FormatTimestamp(cutoff)).Build()
		entities, err := c.repo.Query(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%d entities older than %s\n", len(entities), cutoff.Format(time.RFC3339))
		return nil
	}
	return c.repo.DeleteOlderThan(ctx, cutoff)
}

// parseFilter reads "field op value" triples joined by "and" or "or".
func parseFilter(args []string) (*filter.Filter, error) {
	if len(args) < 3 || (len(args)-3)%4 != 0 {
		return nil, fmt.Errorf("expected <field> <op> <value> [and|or <field> <op> <value>]...")
	}

	cmp, err := parseComparison(args[1])
	if err != nil {
		return nil, err
	}
	b := filter.When(args[0], cmp, args[2])

	for i := 3; i < len(args); i += 4 {
		var next filter.AwaitingStatement
		switch strings.ToLower(args[i]) {
		case "and":
			next = b.And()
		case "or":
			next = b.Or()
		default:
			return nil, fmt.Errorf("expected and/or, got %q", args[i])
		}
		cmp, err := parseComparison(args[i+2])
		if err != nil {
			return nil, err
		}
		b = next.When(args[i+1], cmp, args[i+3])
	}
	return b.Build(), nil
}

func parseComparison(token string) (filter.Comparison, error) {
	for _, c := range []filter.Comparison{
		filter.Equal, filter.NotEqual,
		filter.GreaterThan, filter.GreaterThanOrEqual,
		filter.LessThan, filter.LessThanOrEqual,
	} {
		if strings.EqualFold(c.Token(), token) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown comparison %q", token)
}

type printedEntity struct {
	PartitionKey string         `json:"partitionKey"`
	RowKey       string         `json:"rowKey"`
	ETag         string         `json:"etag"`
	Timestamp    time.Time      `json:"timestamp"`
	Properties   map[string]any `json:"properties"`
}

// print writes one JSON object per entity.
func (c *cli) print(entities ...*storagemodels.DynamicEntity) error {
	enc := json.NewEncoder(c.out)
	for _, e := range entities {
		props := map[string]any{}
		if err := attributevalue.UnmarshalMap(e.Properties, &props); err != nil {
			return err
		}
		if err := enc.Encode(printedEntity{
			PartitionKey: e.PartitionKey,
			RowKey:       e.RowKey,
			ETag:         e.ETag,
			Timestamp:    e.Timestamp,
			Properties:   props,
		}); err != nil {
			return err
		}
	}
	return nil
}

func printMetrics(w io.Writer, reg *prometheus.Registry) {
	if reg == nil {
		return
	}
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(w, "metrics: %v\n", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				fmt.Fprintf(w, "%s_count{%s} %d\n", mf.GetName(), strings.Join(labels, ","), m.GetHistogram().GetSampleCount())
			}
		}
	}
}
