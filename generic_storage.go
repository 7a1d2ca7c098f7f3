/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"reflect"
	"slices"
	"sync"

	"github.com/suparena/tablestore/errors"
)

// TypedRepositories holds the repositories of one entity type, keyed by name
// (typically the table name).
type TypedRepositories[T any] struct {
	mu    sync.RWMutex
	repos map[string]TableRepository[T]
}

// NewTypedRepositories creates an empty TypedRepositories for type T.
func NewTypedRepositories[T any]() *TypedRepositories[T] {
	return &TypedRepositories[T]{
		repos: make(map[string]TableRepository[T]),
	}
}

// Register adds a repository under key.
func (tr *TypedRepositories[T]) Register(key string, repo TableRepository[T]) error {
	if repo == nil {
		return errors.NewValidationError("repository", "cannot be nil")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, exists := tr.repos[key]; exists {
		return errors.NewAlreadyExistsError("repository", key)
	}
	tr.repos[key] = repo
	return nil
}

// Get retrieves a repository by key.
func (tr *TypedRepositories[T]) Get(key string) (TableRepository[T], error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	repo, exists := tr.repos[key]
	if !exists {
		return nil, errors.NewNotFoundError("repository", key)
	}
	return repo, nil
}

// Remove deletes a repository by key.
func (tr *TypedRepositories[T]) Remove(key string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, exists := tr.repos[key]; !exists {
		return errors.NewNotFoundError("repository", key)
	}
	delete(tr.repos, key)
	return nil
}

// List returns the registered keys in sorted order.
func (tr *TypedRepositories[T]) List() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	keys := make([]string, 0, len(tr.repos))
	for k := range tr.repos {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MultiTypeRepositories manages a TypedRepositories per entity type.
type MultiTypeRepositories struct {
	mu    sync.Mutex
	types map[reflect.Type]any
}

// NewMultiTypeRepositories creates an empty MultiTypeRepositories.
func NewMultiTypeRepositories() *MultiTypeRepositories {
	return &MultiTypeRepositories{
		types: make(map[reflect.Type]any),
	}
}

// RepositoriesFor returns the TypedRepositories for T, creating it if necessary.
func RepositoriesFor[T any](m *MultiTypeRepositories) *TypedRepositories[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	typ := reflect.TypeFor[T]()
	if existing, ok := m.types[typ]; ok {
		return existing.(*TypedRepositories[T])
	}
	tr := NewTypedRepositories[T]()
	m.types[typ] = tr
	return tr
}

// RegisterRepository registers repo for type T under key.
func RegisterRepository[T any](m *MultiTypeRepositories, key string, repo TableRepository[T]) error {
	return RepositoriesFor[T](m).Register(key, repo)
}

// GetRepository returns the repository of type T registered under key.
func GetRepository[T any](m *MultiTypeRepositories, key string) (TableRepository[T], error) {
	return RepositoriesFor[T](m).Get(key)
}

// RemoveRepository removes the repository of type T registered under key.
func RemoveRepository[T any](m *MultiTypeRepositories, key string) error {
	return RepositoriesFor[T](m).Remove(key)
}

// ListRepositories lists the keys registered for type T.
func ListRepositories[T any](m *MultiTypeRepositories) []string {
	return RepositoriesFor[T](m).List()
}
