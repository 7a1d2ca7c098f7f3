/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// TagName is the struct tag that marks fields needing a custom storage representation.
const TagName = "tablestore"

// FieldKind selects how a field is written to and read from the property bag.
type FieldKind int

const (
	// KindDecimal fields (float kinds) are stored as their string representation.
	KindDecimal FieldKind = iota + 1
	// KindEnum fields (integer kinds) are stored as numbers.
	KindEnum
)

func (k FieldKind) String() string {
	switch k {
	case KindDecimal:
		return "decimal"
	case KindEnum:
		return "enum"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Field is one tagged field of an entity type.
type Field struct {
	// Name is the attribute name in the property bag.
	Name string
	// Index is the reflect index path, usable with reflect.Value.FieldByIndex.
	Index []int
	Kind  FieldKind
}

// FieldPlan lists the tagged fields of one entity type.
type FieldPlan struct {
	Type   reflect.Type
	Fields []Field
}

// Empty reports whether the type has no tagged fields.
func (p *FieldPlan) Empty() bool {
	return p == nil || len(p.Fields) == 0
}

var (
	planRegistry = make(map[reflect.Type]*FieldPlan)
	mu           sync.RWMutex
)

// Plan returns the cached field plan for type T, building it on first use.
func Plan[T any]() (*FieldPlan, error) {
	var zero T
	return PlanFor(reflect.TypeOf(zero))
}

// PlanFor returns the cached field plan for t. Pointer types resolve to their element type.
// A tag on a field of the wrong kind is an error and is not cached.
func PlanFor(t reflect.Type) (*FieldPlan, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("registry: entity type must be a struct, got %v", t)
	}

	mu.RLock()
	p, ok := planRegistry[t]
	mu.RUnlock()
	if ok {
		return p, nil
	}

	fields, err := collectFields(t, nil)
	if err != nil {
		return nil, err
	}
	p = &FieldPlan{Type: t, Fields: fields}

	mu.Lock()
	defer mu.Unlock()
	if existing, ok := planRegistry[t]; ok {
		return existing, nil
	}
	planRegistry[t] = p
	return p, nil
}

func collectFields(t reflect.Type, parent []int) ([]Field, error) {
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			nested, err := collectFields(sf.Type, index)
			if err != nil {
				return nil, err
			}
			fields = append(fields, nested...)
			continue
		}
		if !sf.IsExported() {
			continue
		}

		tag, ok := sf.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		var kind FieldKind
		switch tag {
		case "decimal":
			if k := sf.Type.Kind(); k != reflect.Float32 && k != reflect.Float64 {
				return nil, fmt.Errorf("registry: %s.%s: decimal fields must be float32 or float64, got %s", t.Name(), sf.Name, k)
			}
			kind = KindDecimal
		case "enum":
			if !isInteger(sf.Type.Kind()) {
				return nil, fmt.Errorf("registry: %s.%s: enum fields must have an integer kind, got %s", t.Name(), sf.Name, sf.Type.Kind())
			}
			kind = KindEnum
		default:
			return nil, fmt.Errorf("registry: %s.%s: unknown %s tag %q", t.Name(), sf.Name, TagName, tag)
		}

		fields = append(fields, Field{Name: attributeName(sf), Index: index, Kind: kind})
	}
	return fields, nil
}

// attributeName follows the dynamodbav tag when it renames the field.
func attributeName(sf reflect.StructField) string {
	if tag := sf.Tag.Get("dynamodbav"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return sf.Name
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
