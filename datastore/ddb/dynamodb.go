/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suparena/tablestore/datastore"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// Client is the subset of the DynamoDB API used by Table.
type Client interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *sdk.CreateTableInput, optFns ...func(*sdk.Options)) (*sdk.CreateTableOutput, error)
}

var _ datastore.Table = (*Table)(nil)

// Table implements datastore.Table on a DynamoDB table keyed by PartitionKey (hash)
// and RowKey (range).
type Table struct {
	client    Client
	tableName string
	logger    *zap.Logger
	retry     RetryOptions
	clock     func() time.Time
	newETag   func() string
}

type options struct {
	createIfNotExists bool
	validator         datastore.TableNameValidator
	logger            *zap.Logger
	retry             RetryOptions
	createTimeout     time.Duration
}

// Option configures Open and New.
type Option func(*options)

// WithCreateIfNotExists creates the table on demand and waits until it is active.
func WithCreateIfNotExists() Option {
	return func(o *options) {
		o.createIfNotExists = true
	}
}

// WithTableNameValidator enforces v on the table name before any network call.
func WithTableNameValidator(v datastore.TableNameValidator) Option {
	return func(o *options) {
		o.validator = v
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRetryOptions overrides the retry policy for throttled requests.
func WithRetryOptions(retry RetryOptions) Option {
	return func(o *options) {
		o.retry = retry
	}
}

func buildOptions(opts []Option) options {
	o := options{
		validator:     datastore.PermissiveTableNameValidator{},
		logger:        zap.NewNop(),
		retry:         DefaultRetryOptions(),
		createTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open parses connectionString, builds a DynamoDB client and returns the table handle.
// Input is validated before any network call.
func Open(ctx context.Context, connectionString, tableName string, opts ...Option) (*Table, error) {
	if tableName == "" {
		return nil, storeerrors.NewValidationError("tableName", "cannot be empty")
	}
	settings, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	client, err := NewDynamoDBClient(ctx, settings)
	if err != nil {
		return nil, err
	}
	return New(ctx, client, tableName, opts...)
}

// NewDynamoDBClient initializes a DynamoDB client from parsed connection settings.
func NewDynamoDBClient(ctx context.Context, settings ConnectionSettings) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(settings.Region),
	}
	if settings.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, settings.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
		}
	}), nil
}

// New wraps an existing client.
func New(ctx context.Context, client Client, tableName string, opts ...Option) (*Table, error) {
	if client == nil {
		return nil, storeerrors.NewValidationError("client", "cannot be nil")
	}
	if tableName == "" {
		return nil, storeerrors.NewValidationError("tableName", "cannot be empty")
	}
	o := buildOptions(opts)
	if !o.validator.IsValid(tableName) {
		return nil, storeerrors.NewValidationError("tableName", fmt.Sprintf("%q is not a valid table name", tableName))
	}

	t := &Table{
		client:    client,
		tableName: tableName,
		logger:    o.logger.With(zap.String("table", tableName)),
		retry:     o.retry,
		clock:     time.Now,
		newETag:   uuid.NewString,
	}

	if o.createIfNotExists {
		if err := t.ensureTable(ctx, o.createTimeout); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Name returns the table name
func (t *Table) Name() string {
	return t.tableName
}

func (t *Table) ensureTable(ctx context.Context, timeout time.Duration) error {
	_, err := t.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(t.tableName)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", t.tableName, err)
	}

	t.logger.Info("creating table")
	_, err = t.client.CreateTable(ctx, &sdk.CreateTableInput{
		TableName: aws.String(t.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(storagemodels.PartitionKeyName), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(storagemodels.RowKeyName), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(storagemodels.PartitionKeyName), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(storagemodels.RowKeyName), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("create table %s: %w", t.tableName, err)
		}
	}

	waiter := sdk.NewTableExistsWaiter(t.client)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(t.tableName)}, timeout); err != nil {
		return fmt.Errorf("wait for table %s: %w", t.tableName, err)
	}
	return nil
}

// Insert stores a new item, rejecting existing keys with 409
func (t *Table) Insert(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
	const operation = "Insert"
	cond := expression.AttributeNotExists(expression.Name(storagemodels.PartitionKeyName))
	return t.put(ctx, operation, item, &cond)
}

// InsertOrReplace stores item unconditionally
func (t *Table) InsertOrReplace(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
	return t.put(ctx, "InsertOrReplace", item, nil)
}

// Replace overwrites an existing entity whose ETag matches
func (t *Table) Replace(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
	if item == nil {
		return nil, storeerrors.NewValidationError("item", "cannot be nil")
	}
	cond := existsCondition(item.ETag)
	return t.put(ctx, "Replace", item, &cond)
}

// InsertOrMerge merges item into an existing entity or creates it
func (t *Table) InsertOrMerge(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
	return t.update(ctx, "InsertOrMerge", item, nil)
}

// Merge updates the given properties of an existing entity whose ETag matches
func (t *Table) Merge(ctx context.Context, item *storagemodels.Item) (*storagemodels.Item, error) {
	if item == nil {
		return nil, storeerrors.NewValidationError("item", "cannot be nil")
	}
	cond := existsCondition(item.ETag)
	return t.update(ctx, "Merge", item, &cond)
}

// Delete removes an existing entity whose ETag matches
func (t *Table) Delete(ctx context.Context, item *storagemodels.Item) error {
	const operation = "Delete"
	if item == nil {
		return storeerrors.NewValidationError("item", "cannot be nil")
	}

	expr, err := expression.NewBuilder().WithCondition(existsCondition(item.ETag)).Build()
	if err != nil {
		return fmt.Errorf("%s: failed to build condition: %w", operation, err)
	}

	_, err = withRetry(ctx, t.logger, operation, t.retry, isThrottlingError, func() (*sdk.DeleteItemOutput, error) {
		return t.client.DeleteItem(ctx, &sdk.DeleteItemInput{
			TableName:                           aws.String(t.tableName),
			Key:                                 keyOf(item.PartitionKey, item.RowKey),
			ConditionExpression:                 expr.Condition(),
			ExpressionAttributeNames:            expr.Names(),
			ExpressionAttributeValues:           expr.Values(),
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
	})
	if err != nil {
		return classify(operation, err)
	}
	t.logger.Debug("deleted item", zap.String("key", item.Key()))
	return nil
}

// Retrieve returns the stored item, or nil when absent
func (t *Table) Retrieve(ctx context.Context, partitionKey, rowKey string) (*storagemodels.Item, error) {
	const operation = "Retrieve"
	out, err := withRetry(ctx, t.logger, operation, t.retry, isRetryableError, func() (*sdk.GetItemOutput, error) {
		return t.client.GetItem(ctx, &sdk.GetItemInput{
			TableName:      aws.String(t.tableName),
			Key:            keyOf(partitionKey, rowKey),
			ConsistentRead: aws.Bool(true),
		})
	})
	if err != nil {
		return nil, classify(operation, err)
	}
	if out.Item == nil {
		// Not found: return nil, nil
		return nil, nil
	}
	return fromAttributes(out.Item), nil
}

func (t *Table) put(ctx context.Context, operation string, item *storagemodels.Item, cond *expression.ConditionBuilder) (*storagemodels.Item, error) {
	if item == nil {
		return nil, storeerrors.NewValidationError("item", "cannot be nil")
	}

	stored := t.stamp(item)
	input := &sdk.PutItemInput{
		TableName: aws.String(t.tableName),
		Item:      toAttributes(stored),
	}
	if cond != nil {
		expr, err := expression.NewBuilder().WithCondition(*cond).Build()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to build condition: %w", operation, err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
		input.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld
	}

	if _, err := withRetry(ctx, t.logger, operation, t.retry, isThrottlingError, func() (*sdk.PutItemOutput, error) {
		return t.client.PutItem(ctx, input)
	}); err != nil {
		return nil, classify(operation, err)
	}
	t.logger.Debug("stored item", zap.String("operation", operation), zap.String("key", stored.Key()))
	return stored, nil
}

func (t *Table) update(ctx context.Context, operation string, item *storagemodels.Item, cond *expression.ConditionBuilder) (*storagemodels.Item, error) {
	if item == nil {
		return nil, storeerrors.NewValidationError("item", "cannot be nil")
	}

	stored := t.stamp(item)
	update := expression.
		Set(expression.Name(storagemodels.ETagName), expression.Value(stored.ETag)).
		Set(expression.Name(storagemodels.TimestampName), expression.Value(storagemodels.FormatTimestamp(stored.Timestamp)))
	for name, value := range stored.Properties {
		if isSystemProperty(name) {
			continue
		}
		update = update.Set(expression.Name(name), expression.Value(rawValue{value}))
	}

	builder := expression.NewBuilder().WithUpdate(update)
	if cond != nil {
		builder = builder.WithCondition(*cond)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build update expression: %w", operation, err)
	}

	input := &sdk.UpdateItemInput{
		TableName:                 aws.String(t.tableName),
		Key:                       keyOf(stored.PartitionKey, stored.RowKey),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	}
	if cond != nil {
		input.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld
	}

	out, err := withRetry(ctx, t.logger, operation, t.retry, isThrottlingError, func() (*sdk.UpdateItemOutput, error) {
		return t.client.UpdateItem(ctx, input)
	})
	if err != nil {
		return nil, classify(operation, err)
	}
	t.logger.Debug("merged item", zap.String("operation", operation), zap.String("key", stored.Key()))
	if out != nil && len(out.Attributes) > 0 {
		return fromAttributes(out.Attributes), nil
	}
	return stored, nil
}

// stamp copies item with a fresh ETag and Timestamp.
func (t *Table) stamp(item *storagemodels.Item) *storagemodels.Item {
	stored := &storagemodels.Item{
		PartitionKey: item.PartitionKey,
		RowKey:       item.RowKey,
		ETag:         t.newETag(),
		Timestamp:    t.clock().UTC(),
		Properties:   make(map[string]types.AttributeValue, len(item.Properties)),
	}
	maps.Copy(stored.Properties, item.Properties)
	return stored
}

// existsCondition requires the entity to exist and, unless etag is the wildcard, to
// carry etag.
func existsCondition(etag string) expression.ConditionBuilder {
	exists := expression.AttributeExists(expression.Name(storagemodels.PartitionKeyName))
	if etag == storagemodels.WildcardETag {
		return exists
	}
	return exists.And(expression.Name(storagemodels.ETagName).Equal(expression.Value(etag)))
}

// classify maps DynamoDB errors to store rejections. A failed condition check carries
// the old item when the entity exists, so its absence means 404.
func classify(operation string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		switch {
		case operation == "Insert":
			return storeerrors.NewStorageError(operation, http.StatusConflict, err)
		case len(ccf.Item) == 0:
			return storeerrors.NewStorageError(operation, http.StatusNotFound, err)
		default:
			return storeerrors.NewStorageError(operation, http.StatusPreconditionFailed, err)
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ValidationException":
			return storeerrors.NewStorageError(operation, http.StatusBadRequest, err)
		case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
			return storeerrors.NewStorageError(operation, http.StatusServiceUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// rawValue passes an already encoded attribute value through the expression builder.
type rawValue struct {
	av types.AttributeValue
}

func (r rawValue) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return r.av, nil
}

func keyOf(partitionKey, rowKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		storagemodels.PartitionKeyName: &types.AttributeValueMemberS{Value: partitionKey},
		storagemodels.RowKeyName:       &types.AttributeValueMemberS{Value: rowKey},
	}
}

func toAttributes(item *storagemodels.Item) map[string]types.AttributeValue {
	av := make(map[string]types.AttributeValue, len(item.Properties)+4)
	for name, value := range item.Properties {
		if isSystemProperty(name) {
			continue
		}
		av[name] = value
	}
	maps.Copy(av, keyOf(item.PartitionKey, item.RowKey))
	av[storagemodels.ETagName] = &types.AttributeValueMemberS{Value: item.ETag}
	av[storagemodels.TimestampName] = &types.AttributeValueMemberS{Value: storagemodels.FormatTimestamp(item.Timestamp)}
	return av
}

func fromAttributes(av map[string]types.AttributeValue) *storagemodels.Item {
	item := &storagemodels.Item{Properties: make(map[string]types.AttributeValue, len(av))}
	for name, value := range av {
		switch name {
		case storagemodels.PartitionKeyName:
			item.PartitionKey = stringValue(value)
		case storagemodels.RowKeyName:
			item.RowKey = stringValue(value)
		case storagemodels.ETagName:
			item.ETag = stringValue(value)
		case storagemodels.TimestampName:
			if ts, err := time.Parse(storagemodels.TimestampFormat, stringValue(value)); err == nil {
				item.Timestamp = ts
			}
		default:
			item.Properties[name] = value
		}
	}
	return item
}

func stringValue(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
