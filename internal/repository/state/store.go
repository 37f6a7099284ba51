package state

import (
	"maps"
	"slices"
)

// Attributes is the bag of values last observed for one entity.
type Attributes map[string]any

// Store maps entity keys to their last observed attributes.
// It is not safe for concurrent use: the owning beacon's ticks are serialized
// by the host runtime.
type Store struct {
	// entries maps entity keys to attribute bags.
	entries map[string]Attributes
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]Attributes),
	}
}

// Get returns a copy of the attributes recorded for key.
func (s *Store) Get(key string) (Attributes, bool) {
	attrs, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	return maps.Clone(attrs), true
}

// Has reports whether key is tracked.
func (s *Store) Has(key string) bool {
	_, ok := s.entries[key]

	return ok
}

// Value returns one attribute of key.
func (s *Store) Value(key, attribute string) (any, bool) {
	attrs, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	value, ok := attrs[attribute]

	return value, ok
}

// Set replaces the attributes of key.
func (s *Store) Set(key string, attrs Attributes) {
	s.entries[key] = maps.Clone(attrs)
}

// Update merges attrs into the bag of key, creating it when absent.
func (s *Store) Update(key string, attrs Attributes) {
	current, ok := s.entries[key]
	if !ok {
		current = make(Attributes, len(attrs))
		s.entries[key] = current
	}

	maps.Copy(current, attrs)
}

// Delete forgets key.
func (s *Store) Delete(key string) {
	delete(s.entries, key)
}

// Keys returns the tracked keys in sorted order.
func (s *Store) Keys() []string {
	return slices.Sorted(maps.Keys(s.entries))
}

// Len returns the number of tracked keys.
func (s *Store) Len() int {
	return len(s.entries)
}

// Flags holds named singleton markers of one beacon instance.
type Flags struct {
	// values maps flag names to their current value.
	values map[string]bool
}

// NewFlags creates a flag set with every flag cleared.
func NewFlags() *Flags {
	return &Flags{
		values: make(map[string]bool),
	}
}

// Get returns the value of the flag.
func (f *Flags) Get(name string) bool {
	return f.values[name]
}

// Set stores the value of the flag.
func (f *Flags) Set(name string, value bool) {
	f.values[name] = value
}
