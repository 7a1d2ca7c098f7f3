/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"maps"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Entity is implemented by every type that embeds TableEntity.
type Entity interface {
	GetTableEntity() *TableEntity
}

// TableEntity carries the system properties of a stored entity. Embed it in entity types:
//
//	type Person struct {
//	    storagemodels.TableEntity
//	    Name string
//	    Age  string
//	}
//
// The fields are excluded from the property bag; the repository maps them explicitly.
type TableEntity struct {
	PartitionKey string    `dynamodbav:"-" json:"partitionKey"`
	RowKey       string    `dynamodbav:"-" json:"rowKey"`
	ETag         string    `dynamodbav:"-" json:"etag,omitempty"`
	Timestamp    time.Time `dynamodbav:"-" json:"timestamp,omitempty"`
}

// GetTableEntity returns the receiver so embedding types satisfy Entity.
func (e *TableEntity) GetTableEntity() *TableEntity {
	return e
}

// WildcardETag sets the ETag to "*" so the next replace, merge or delete ignores
// concurrent modifications.
func (e *TableEntity) WildcardETag() *TableEntity {
	e.ETag = WildcardETag
	return e
}

// DynamicEntity is an entity with a free-form property bag. It encodes to and from
// the bag unchanged.
type DynamicEntity struct {
	TableEntity
	Properties map[string]types.AttributeValue `dynamodbav:"-" json:"-"`
}

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler.
func (e *DynamicEntity) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	props := make(map[string]types.AttributeValue, len(e.Properties))
	maps.Copy(props, e.Properties)
	return &types.AttributeValueMemberM{Value: props}, nil
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler.
func (e *DynamicEntity) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return fmt.Errorf("dynamic entity: expected map attribute, got %T", av)
	}
	e.Properties = make(map[string]types.AttributeValue, len(m.Value))
	maps.Copy(e.Properties, m.Value)
	return nil
}
