/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"fmt"
	"strings"
	"time"

	"github.com/suparena/tablestore/storagemodels"
)

// Comparison tokens of the filter grammar.
const (
	Equal              = "eq"
	NotEqual           = "ne"
	GreaterThan        = "gt"
	GreaterThanOrEqual = "ge"
	LessThan           = "lt"
	LessThanOrEqual    = "le"
)

// Boolean operator tokens of the filter grammar.
const (
	And = "and"
	Or  = "or"
	Not = "not"
)

// GenerateFilterCondition renders a single comparison against a string literal,
// e.g. Name eq 'John'. Single quotes in value are doubled.
func GenerateFilterCondition(property, operation, value string) string {
	return fmt.Sprintf("%s %s '%s'", property, operation, strings.ReplaceAll(value, "'", "''"))
}

// GenerateFilterConditionForDate renders a comparison against a datetime literal,
// e.g. Timestamp lt datetime'2024-01-02T03:04:05.0000000Z'.
func GenerateFilterConditionForDate(property, operation string, value time.Time) string {
	return fmt.Sprintf("%s %s datetime'%s'", property, operation, storagemodels.FormatTimestamp(value))
}

// CombineFilters joins two rendered conditions with a boolean operator, parenthesizing
// both sides: (left) and (right).
func CombineFilters(left, operator, right string) string {
	return fmt.Sprintf("(%s) %s (%s)", left, operator, right)
}
