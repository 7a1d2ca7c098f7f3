// Package converters maps entities to and from the raw records of a table store.
//
// Ordinary fields go through attributevalue, so dynamodbav tags apply. Fields tagged
// tablestore:"decimal" are stored as strings and fields tagged tablestore:"enum" as
// numbers; both are read back leniently. storagemodels.DynamicEntity passes its
// property bag through unchanged.
package converters
