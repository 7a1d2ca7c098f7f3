/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTableFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   string
	}{
		{
			name:   "nil filter matches everything",
			filter: nil,
			want:   "",
		},
		{
			name:   "single statement is bare",
			filter: When("Name", Equal, "John").Build(),
			want:   "Name eq 'John'",
		},
		{
			name:   "two statements",
			filter: When("Age", GreaterThanOrEqual, "50").And().When("Name", Equal, "John").Build(),
			want:   "(Age ge '50') and (Name eq 'John')",
		},
		{
			name: "three statements fold left",
			filter: When("A", Equal, "1").
				And().When("B", Equal, "2").
				And().When("C", NotEqual, "3").
				Build(),
			want: "((A eq '1') and (B eq '2')) and (C ne '3')",
		},
		{
			name: "mixed operators keep input order",
			filter: When("A", LessThan, "1").
				Or().When("B", LessThanOrEqual, "2").
				And().When("C", GreaterThan, "3").
				Build(),
			want: "((A lt '1') or (B le '2')) and (C gt '3')",
		},
		{
			name:   "quotes are escaped",
			filter: When("Name", Equal, "O'Brien").Build(),
			want:   "Name eq 'O''Brien'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToTableFilter(tt.filter))
		})
	}
}

func TestOperatorCount(t *testing.T) {
	next := When("F0", Equal, "v")
	for i := 1; i < 6; i++ {
		if i%2 == 0 {
			next = next.Or().When("F", Equal, "v")
		} else {
			next = next.And().When("F", Equal, "v")
		}
	}
	rendered := ToTableFilter(next.Build())

	operators := strings.Count(rendered, ") and (") + strings.Count(rendered, ") or (")
	assert.Equal(t, 5, operators)
	assert.True(t, strings.HasPrefix(rendered, "((((("), rendered)
}

func TestBuilderStatesAreIndependent(t *testing.T) {
	base := When("A", Equal, "1").And()
	left := base.When("B", Equal, "2").Build()
	right := base.When("C", Equal, "3").Build()

	assert.Equal(t, "(A eq '1') and (B eq '2')", ToTableFilter(left))
	assert.Equal(t, "(A eq '1') and (C eq '3')", ToTableFilter(right))
}

func TestPartsIsACopy(t *testing.T) {
	f := When("A", Equal, "1").Or().When("B", Equal, "2").Build()

	parts := f.Parts()
	require.Len(t, parts, 3)
	assert.Equal(t, Statement{Field: "A", Comparison: Equal, Value: "1"}, parts[0])
	assert.Equal(t, Or, parts[1])

	parts[0] = Statement{Field: "Z"}
	assert.Equal(t, "(A eq '1') or (B eq '2')", ToTableFilter(f))
	assert.Nil(t, (*Filter)(nil).Parts())
}

func TestUnknownEnumPanics(t *testing.T) {
	assert.Panics(t, func() {
		ToTableFilter(When("A", Comparison(42), "1").Build())
	})
	assert.Panics(t, func() {
		_ = Operator(7).Token()
	})
}
