// Package filter builds typed filters and converts them to the table filter grammar.
//
// The builder alternates statements and operators through its return types, so a
// filter that ends in an operator, or has two statements in a row, does not compile.
package filter
