/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filter

import (
	"fmt"

	"github.com/suparena/tablestore/datastore"
)

// Token returns the grammar token of c. An unknown value panics.
func (c Comparison) Token() string {
	switch c {
	case Equal:
		return datastore.Equal
	case NotEqual:
		return datastore.NotEqual
	case GreaterThan:
		return datastore.GreaterThan
	case GreaterThanOrEqual:
		return datastore.GreaterThanOrEqual
	case LessThan:
		return datastore.LessThan
	case LessThanOrEqual:
		return datastore.LessThanOrEqual
	}
	panic(fmt.Sprintf("filter: unknown comparison %d", int(c)))
}

// Token returns the grammar token of o. An unknown value panics.
func (o Operator) Token() string {
	switch o {
	case And:
		return datastore.And
	case Or:
		return datastore.Or
	}
	panic(fmt.Sprintf("filter: unknown operator %d", int(o)))
}

// ToTableFilter renders f in the table filter grammar. Statements fold left, so
// A and B and C becomes ((A) and (B)) and (C). A nil filter renders as "", which
// matches everything.
func ToTableFilter(f *Filter) string {
	if f == nil {
		return ""
	}

	combined := ""
	var pending *Operator
	for _, part := range f.parts {
		switch p := part.(type) {
		case Operator:
			op := p
			pending = &op
		case Statement:
			condition := datastore.GenerateFilterCondition(p.Field, p.Comparison.Token(), p.Value)
			if pending == nil {
				combined = condition
				continue
			}
			combined = datastore.CombineFilters(combined, pending.Token(), condition)
			pending = nil
		}
	}
	return combined
}
