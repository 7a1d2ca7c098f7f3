/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filterexpr

import (
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/suparena/tablestore/storagemodels"
)

// Evaluate reports whether props satisfies node. A nil node matches everything.
// Comparisons against a missing property, or a property whose type does not
// match the literal, are false.
func Evaluate(node Node, props map[string]types.AttributeValue) bool {
	switch n := node.(type) {
	case nil:
		return true
	case *Logical:
		if n.Operator == "or" {
			return Evaluate(n.Left, props) || Evaluate(n.Right, props)
		}
		return Evaluate(n.Left, props) && Evaluate(n.Right, props)
	case *Negation:
		return !Evaluate(n.Operand, props)
	case *Comparison:
		cmp, ok := compare(props[n.Property], n.Value)
		if !ok {
			return false
		}
		return applyOperator(n.Operator, cmp)
	}
	return false
}

func compare(av types.AttributeValue, lit Literal) (int, bool) {
	switch lit.Kind {
	case KindString:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(s.Value, lit.Text), true
	case KindDateTime:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		t, ok := parseTime(s.Value)
		if !ok {
			return 0, false
		}
		return t.Compare(lit.Time), true
	case KindNumber:
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return 0, false
		}
		switch {
		case f < lit.Number:
			return -1, true
		case f > lit.Number:
			return 1, true
		}
		return 0, true
	case KindBool:
		b, ok := av.(*types.AttributeValueMemberBOOL)
		if !ok {
			return 0, false
		}
		switch {
		case b.Value == lit.Bool:
			return 0, true
		case !b.Value:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func parseTime(value string) (time.Time, bool) {
	if t, err := time.Parse(storagemodels.TimestampFormat, value); err == nil {
		return t, true
	}
	dt, err := strfmt.ParseDateTime(value)
	if err != nil {
		return time.Time{}, false
	}
	return time.Time(dt), true
}

func applyOperator(op string, cmp int) bool {
	switch op {
	case "eq":
		return cmp == 0
	case "ne":
		return cmp != 0
	case "gt":
		return cmp > 0
	case "ge":
		return cmp >= 0
	case "lt":
		return cmp < 0
	case "le":
		return cmp <= 0
	}
	return false
}
