/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/suparena/tablestore/datastore/filterexpr"
	"github.com/suparena/tablestore/storagemodels"
)

// queryPlan is a filter split into what DynamoDB can use as a key condition and
// what must stay a filter expression.
type queryPlan struct {
	keyCondition *expression.KeyConditionBuilder
	filter       *expression.ConditionBuilder
	projection   *expression.ProjectionBuilder
}

// usesQuery reports whether the plan can be served by Query rather than Scan.
func (p queryPlan) usesQuery() bool {
	return p.keyCondition != nil
}

// build returns the compiled expression, or ok=false when the plan is empty.
func (p queryPlan) build() (expr expression.Expression, ok bool, err error) {
	if p.keyCondition == nil && p.filter == nil && p.projection == nil {
		return expression.Expression{}, false, nil
	}
	builder := expression.NewBuilder()
	if p.keyCondition != nil {
		builder = builder.WithKeyCondition(*p.keyCondition)
	}
	if p.filter != nil {
		builder = builder.WithFilter(*p.filter)
	}
	if p.projection != nil {
		builder = builder.WithProjection(*p.projection)
	}
	expr, err = builder.Build()
	if err != nil {
		return expression.Expression{}, false, err
	}
	return expr, true, nil
}

// planQuery parses filter and promotes a top-level "PartitionKey eq" conjunct, plus
// one RowKey range or a ge/le pair folded into BETWEEN, to a key condition. DynamoDB
// rejects a Query whose filter names a key attribute, so when any key comparison
// would be left over the whole filter runs as a Scan instead.
func planQuery(filter string, selectColumns []string) (queryPlan, error) {
	var plan queryPlan

	node, err := filterexpr.Parse(filter)
	if err != nil {
		return plan, err
	}

	conjuncts := filterexpr.Conjuncts(node)
	remaining := conjuncts
	if keyCond, rest, ok := keyCondition(conjuncts); ok && !referencesKey(rest) {
		plan.keyCondition = &keyCond
		remaining = rest
	}

	if len(remaining) > 0 {
		conditions := make([]expression.ConditionBuilder, 0, len(remaining))
		for _, n := range remaining {
			c, err := toCondition(n)
			if err != nil {
				return plan, err
			}
			conditions = append(conditions, c)
		}
		combined := conditions[0]
		if len(conditions) > 1 {
			combined = expression.And(conditions[0], conditions[1], conditions[2:]...)
		}
		plan.filter = &combined
	}

	if len(selectColumns) > 0 {
		projection := expression.NamesList(
			expression.Name(storagemodels.PartitionKeyName),
			expression.Name(storagemodels.RowKeyName),
			expression.Name(storagemodels.ETagName),
			expression.Name(storagemodels.TimestampName),
		)
		for _, column := range selectColumns {
			if isSystemProperty(column) {
				continue
			}
			projection = projection.AddNames(expression.Name(column))
		}
		plan.projection = &projection
	}

	return plan, nil
}

// keyCondition splits the key condition off conjuncts. ok is false when there is no
// top-level "PartitionKey eq" string comparison.
func keyCondition(conjuncts []filterexpr.Node) (expression.KeyConditionBuilder, []filterexpr.Node, bool) {
	i := findKeyConjunct(conjuncts, storagemodels.PartitionKeyName, "eq")
	if i < 0 {
		return expression.KeyConditionBuilder{}, nil, false
	}
	pk := conjuncts[i].(*filterexpr.Comparison)
	keyCond := expression.Key(storagemodels.PartitionKeyName).Equal(expression.Value(pk.Value.Text))
	rest := without(conjuncts, i)

	if lo, hi := findKeyConjunct(rest, storagemodels.RowKeyName, "ge"), findKeyConjunct(rest, storagemodels.RowKeyName, "le"); lo >= 0 && hi >= 0 {
		low := rest[lo].(*filterexpr.Comparison)
		high := rest[hi].(*filterexpr.Comparison)
		keyCond = keyCond.And(expression.Key(storagemodels.RowKeyName).Between(
			expression.Value(low.Value.Text), expression.Value(high.Value.Text)))
		return keyCond, withoutAll(rest, lo, hi), true
	}

	if j := findKeyConjunct(rest, storagemodels.RowKeyName, ""); j >= 0 {
		rk := rest[j].(*filterexpr.Comparison)
		keyCond = keyCond.And(rowKeyCondition(rk))
		rest = without(rest, j)
	}
	return keyCond, rest, true
}

// findKeyConjunct returns the index of a string comparison on property. An empty op
// accepts any operator DynamoDB supports in a key condition.
func findKeyConjunct(conjuncts []filterexpr.Node, property, op string) int {
	for i, n := range conjuncts {
		c, ok := n.(*filterexpr.Comparison)
		if !ok || c.Property != property || c.Value.Kind != filterexpr.KindString {
			continue
		}
		if op != "" && c.Operator != op {
			continue
		}
		if c.Operator == "ne" {
			continue
		}
		return i
	}
	return -1
}

// referencesKey reports whether any node compares PartitionKey or RowKey.
func referencesKey(nodes []filterexpr.Node) bool {
	for _, n := range nodes {
		switch n := n.(type) {
		case *filterexpr.Comparison:
			if n.Property == storagemodels.PartitionKeyName || n.Property == storagemodels.RowKeyName {
				return true
			}
		case *filterexpr.Logical:
			if referencesKey([]filterexpr.Node{n.Left, n.Right}) {
				return true
			}
		case *filterexpr.Negation:
			if referencesKey([]filterexpr.Node{n.Operand}) {
				return true
			}
		}
	}
	return false
}

func without(nodes []filterexpr.Node, i int) []filterexpr.Node {
	return append(nodes[:i:i], nodes[i+1:]...)
}

func withoutAll(nodes []filterexpr.Node, indexes ...int) []filterexpr.Node {
	out := make([]filterexpr.Node, 0, len(nodes))
	for i, n := range nodes {
		if !slices.Contains(indexes, i) {
			out = append(out, n)
		}
	}
	return out
}

func rowKeyCondition(c *filterexpr.Comparison) expression.KeyConditionBuilder {
	key := expression.Key(storagemodels.RowKeyName)
	value := expression.Value(c.Value.Text)
	switch c.Operator {
	case "gt":
		return key.GreaterThan(value)
	case "ge":
		return key.GreaterThanEqual(value)
	case "lt":
		return key.LessThan(value)
	case "le":
		return key.LessThanEqual(value)
	default:
		return key.Equal(value)
	}
}

func toCondition(node filterexpr.Node) (expression.ConditionBuilder, error) {
	switch n := node.(type) {
	case *filterexpr.Logical:
		left, err := toCondition(n.Left)
		if err != nil {
			return expression.ConditionBuilder{}, err
		}
		right, err := toCondition(n.Right)
		if err != nil {
			return expression.ConditionBuilder{}, err
		}
		if n.Operator == "or" {
			return expression.Or(left, right), nil
		}
		return expression.And(left, right), nil
	case *filterexpr.Negation:
		operand, err := toCondition(n.Operand)
		if err != nil {
			return expression.ConditionBuilder{}, err
		}
		return expression.Not(operand), nil
	case *filterexpr.Comparison:
		name := expression.Name(n.Property)
		value := expression.Value(n.Value.Value())
		switch n.Operator {
		case "eq":
			return name.Equal(value), nil
		case "ne":
			return name.NotEqual(value), nil
		case "gt":
			return name.GreaterThan(value), nil
		case "ge":
			return name.GreaterThanEqual(value), nil
		case "lt":
			return name.LessThan(value), nil
		case "le":
			return name.LessThanEqual(value), nil
		}
		return expression.ConditionBuilder{}, fmt.Errorf("unsupported operator %q", n.Operator)
	}
	return expression.ConditionBuilder{}, fmt.Errorf("unsupported filter node %T", node)
}

func isSystemProperty(name string) bool {
	switch name {
	case storagemodels.PartitionKeyName, storagemodels.RowKeyName, storagemodels.ETagName, storagemodels.TimestampName:
		return true
	}
	return false
}
