// Package metadata implements the typed key/value store attached to every
// declared class.
package metadata

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrAlreadySet is returned when a key is written twice.
var ErrAlreadySet = errors.New("metadata already set")

// Key identifies a value of type T inside a Store.
type Key[T any] struct {
	name string
}

// NewKey creates a typed key.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the key's name.
func (k Key[T]) Name() string {
	return k.name
}

// AlreadySetError reports a second write to the same key.
type AlreadySetError struct {
	Key string
}

func (e AlreadySetError) Error() string {
	return fmt.Sprintf("metadata %q already set", e.Key)
}

func (e AlreadySetError) Unwrap() error {
	return ErrAlreadySet
}

// Store holds the registration facts of one class. It has no logic
// beyond reading and writing values.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// New creates an empty store.
func New() *Store {
	return &Store{values: make(map[string]any)}
}

// Get reads the value stored under k.
func Get[T any](s *Store, k Key[T]) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[k.name]
	if !ok {
		var zero T
		return zero, false
	}
	typed, _ := v.(T)
	return typed, true
}

// Set writes v under k. It fails if k was already written.
func Set[T any](s *Store, k Key[T], v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.values[k.name]; exists {
		return AlreadySetError{Key: k.name}
	}
	s.values[k.name] = v
	return nil
}

// Update replaces the value under k with fn(current). Used for keys that
// accumulate, such as route tables.
func Update[T any](s *Store, k Key[T], fn func(current T, exists bool) T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.values[k.name]
	var typed T
	if ok {
		typed, _ = cur.(T)
	}
	s.values[k.name] = fn(typed, ok)
}

// Has reports whether k was written.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[name]
	return ok
}

// Keys returns the names of all written keys, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
