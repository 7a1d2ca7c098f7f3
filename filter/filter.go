/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filter

import "slices"

// Comparison is the comparison kind of a statement.
type Comparison int

const (
	Equal Comparison = iota
	NotEqual
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

// Operator joins a statement to everything before it.
type Operator int

const (
	And Operator = iota
	Or
)

// Part is an element of a filter: a Statement or an Operator.
type Part interface {
	isPart()
}

// Statement is a single "field comparison value" condition.
type Statement struct {
	Field      string
	Comparison Comparison
	Value      string
}

func (Statement) isPart() {}

func (Operator) isPart() {}

// Filter is an immutable, alternating sequence of statements and operators that
// starts and ends with a statement.
type Filter struct {
	parts []Part
}

// Parts returns a copy of the filter's parts in order.
func (f *Filter) Parts() []Part {
	if f == nil {
		return nil
	}
	return slices.Clone(f.parts)
}

// StatementAdded is the builder state right after a statement: only an operator or
// Build may follow.
type StatementAdded interface {
	And() AwaitingStatement
	Or() AwaitingStatement
	Build() *Filter
}

// AwaitingStatement is the builder state right after an operator: only a statement
// may follow.
type AwaitingStatement interface {
	When(field string, comparison Comparison, value string) StatementAdded
}

// When starts a filter with its first statement.
//
//	f := filter.When("Age", filter.GreaterThanOrEqual, "50").
//	    And().When("Name", filter.Equal, "John").
//	    Build()
func When(field string, comparison Comparison, value string) StatementAdded {
	return builder{}.When(field, comparison, value)
}

// builder never mutates its slice in place, so intermediate states can be reused.
type builder struct {
	parts []Part
}

func (b builder) with(p Part) builder {
	parts := make([]Part, len(b.parts), len(b.parts)+1)
	copy(parts, b.parts)
	return builder{parts: append(parts, p)}
}

func (b builder) When(field string, comparison Comparison, value string) StatementAdded {
	return b.with(Statement{Field: field, Comparison: comparison, Value: value})
}

func (b builder) And() AwaitingStatement {
	return b.with(And)
}

func (b builder) Or() AwaitingStatement {
	return b.with(Or)
}

func (b builder) Build() *Filter {
	return &Filter{parts: slices.Clone(b.parts)}
}
