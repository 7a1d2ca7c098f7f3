// Package filterexpr parses and evaluates the textual filter grammar produced by
// datastore.GenerateFilterCondition and datastore.CombineFilters.
//
// Backends that cannot push a filter down natively evaluate the parsed tree in
// memory; the DynamoDB backend walks the same tree to build key and filter
// conditions.
package filterexpr
