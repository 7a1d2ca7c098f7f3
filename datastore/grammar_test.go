/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"testing"
	"time"
)

func TestGenerateFilterCondition(t *testing.T) {
	tests := []struct {
		property, op, value string
		want                string
	}{
		{"Name", Equal, "John", "Name eq 'John'"},
		{"Age", GreaterThanOrEqual, "50", "Age ge '50'"},
		{"Name", NotEqual, "O'Brien", "Name ne 'O''Brien'"},
		{"Name", Equal, "", "Name eq ''"},
	}
	for _, tt := range tests {
		if got := GenerateFilterCondition(tt.property, tt.op, tt.value); got != tt.want {
			t.Errorf("GenerateFilterCondition(%q, %q, %q) = %q, want %q", tt.property, tt.op, tt.value, got, tt.want)
		}
	}
}

func TestGenerateFilterConditionForDate(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	got := GenerateFilterConditionForDate("Timestamp", LessThan, ts)
	want := "Timestamp lt datetime'2024-01-02T02:04:05.0000000Z'"
	if got != want {
		t.Errorf("GenerateFilterConditionForDate() = %q, want %q", got, want)
	}
}

func TestCombineFilters(t *testing.T) {
	got := CombineFilters(CombineFilters("A", And, "B"), Or, "C")
	if want := "((A) and (B)) or (C)"; got != want {
		t.Errorf("CombineFilters() = %q, want %q", got, want)
	}
}

func TestTableNameValidators(t *testing.T) {
	if !(PermissiveTableNameValidator{}).IsValid("") {
		t.Error("permissive validator rejected a name")
	}

	strict := NewStrictTableNameValidator()
	tests := map[string]bool{
		"people":     true,
		"People2024": true,
		"ab":         false,
		"1people":    false,
		"peo-ple":    false,
		"tables":     false,
		"Tables":     false,
		"":           false,
		"a23456789012345678901234567890123456789012345678901234567890123":  true,
		"a234567890123456789012345678901234567890123456789012345678901234": false,
	}
	for name, want := range tests {
		if got := strict.IsValid(name); got != want {
			t.Errorf("IsValid(%q) = %v, want %v", name, got, want)
		}
	}
}
