/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// TableNameValidator decides whether a table name is acceptable to the store.
type TableNameValidator interface {
	IsValid(tableName string) bool
}

// PermissiveTableNameValidator accepts every name and leaves enforcement to the store.
type PermissiveTableNameValidator struct{}

// IsValid always reports true.
func (PermissiveTableNameValidator) IsValid(string) bool {
	return true
}

// StrictTableNameValidator enforces the classic table naming rules: 3 to 63
// alphanumeric characters, a leading letter, and not the reserved name "tables".
type StrictTableNameValidator struct {
	validate *validator.Validate
}

// NewStrictTableNameValidator creates a StrictTableNameValidator.
func NewStrictTableNameValidator() *StrictTableNameValidator {
	return &StrictTableNameValidator{validate: validator.New()}
}

// IsValid reports whether tableName satisfies the naming rules.
func (v *StrictTableNameValidator) IsValid(tableName string) bool {
	if err := v.validate.Var(tableName, "required,alphanum,min=3,max=63"); err != nil {
		return false
	}
	if tableName[0] >= '0' && tableName[0] <= '9' {
		return false
	}
	return !strings.EqualFold(tableName, "tables")
}
