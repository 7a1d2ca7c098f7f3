/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package converters

import (
	"fmt"
	"maps"
	"reflect"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// ToItem converts an entity into the raw record written to the store. The system
// properties come from the embedded TableEntity; every other exported field is
// marshalled with attributevalue, except fields tagged decimal or enum which are
// written by their own rules.
func ToItem(entity storagemodels.Entity) (*storagemodels.Item, error) {
	v, err := entityValue(entity)
	if err != nil {
		return nil, err
	}

	props, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("converters: marshal %T: %w", entity, err)
	}

	plan, err := registry.PlanFor(reflect.TypeOf(entity))
	if err != nil {
		return nil, err
	}
	for _, f := range plan.Fields {
		props[f.Name] = encodeField(v.FieldByIndex(f.Index), f.Kind)
	}

	te := entity.GetTableEntity()
	return &storagemodels.Item{
		PartitionKey: te.PartitionKey,
		RowKey:       te.RowKey,
		ETag:         te.ETag,
		Timestamp:    te.Timestamp,
		Properties:   props,
	}, nil
}

// FromItem populates entity from a stored record. Decimal and enum fields are read
// leniently: a missing or unparseable value leaves the field at its zero value.
func FromItem(item *storagemodels.Item, entity storagemodels.Entity) error {
	if item == nil {
		return fmt.Errorf("converters: item cannot be nil")
	}
	v, err := entityValue(entity)
	if err != nil {
		return err
	}

	plan, err := registry.PlanFor(reflect.TypeOf(entity))
	if err != nil {
		return err
	}

	props := item.Properties
	if !plan.Empty() {
		// The custom fields are removed so attributevalue never sees their stored form.
		props = maps.Clone(item.Properties)
		for _, f := range plan.Fields {
			delete(props, f.Name)
		}
	}
	if props == nil {
		props = map[string]types.AttributeValue{}
	}

	if err := attributevalue.UnmarshalMap(props, entity); err != nil {
		return fmt.Errorf("converters: unmarshal %s into %T: %w", item.Key(), entity, err)
	}

	for _, f := range plan.Fields {
		decodeField(v.FieldByIndex(f.Index), f.Kind, item.Properties[f.Name])
	}

	te := entity.GetTableEntity()
	te.PartitionKey = item.PartitionKey
	te.RowKey = item.RowKey
	te.ETag = item.ETag
	te.Timestamp = item.Timestamp
	return nil
}

// entityValue returns the struct an entity pointer refers to.
func entityValue(entity storagemodels.Entity) (reflect.Value, error) {
	if entity == nil {
		return reflect.Value{}, fmt.Errorf("converters: entity cannot be nil")
	}
	v := reflect.ValueOf(entity)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return reflect.Value{}, fmt.Errorf("converters: entity cannot be nil")
	}
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("converters: entity must be a pointer to a struct, got %T", entity)
	}
	return v.Elem(), nil
}

func encodeField(field reflect.Value, kind registry.FieldKind) types.AttributeValue {
	switch kind {
	case registry.KindDecimal:
		return &types.AttributeValueMemberS{Value: strconv.FormatFloat(field.Float(), 'f', -1, field.Type().Bits())}
	default:
		if field.CanInt() {
			return &types.AttributeValueMemberN{Value: strconv.FormatInt(field.Int(), 10)}
		}
		return &types.AttributeValueMemberN{Value: strconv.FormatUint(field.Uint(), 10)}
	}
}

func decodeField(field reflect.Value, kind registry.FieldKind, av types.AttributeValue) {
	raw, ok := scalarText(av)
	if !ok {
		return
	}

	switch kind {
	case registry.KindDecimal:
		if f, err := strconv.ParseFloat(raw, field.Type().Bits()); err == nil {
			field.SetFloat(f)
		}
	case registry.KindEnum:
		if field.CanInt() {
			if i, err := strconv.ParseInt(raw, 10, field.Type().Bits()); err == nil {
				field.SetInt(i)
			}
			return
		}
		if u, err := strconv.ParseUint(raw, 10, field.Type().Bits()); err == nil {
			field.SetUint(u)
		}
	}
}

// scalarText returns the textual form of a string or number attribute.
func scalarText(av types.AttributeValue) (string, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, true
	case *types.AttributeValueMemberN:
		return v.Value, true
	default:
		return "", false
	}
}
