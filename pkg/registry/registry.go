package registry

import (
	"sort"
	"sync"
)

// Registry is a named, priority-ordered collection safe for concurrent use.
// Registration is idempotent: a name can only be registered once until it is
// unregistered again.
type Registry[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	seq   int
}

type entry[T any] struct {
	name     string
	value    T
	priority int
	seq      int
}

// New creates a new empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		items: make(map[string]entry[T]),
	}
}

// Register adds value under name with the given priority.
// It returns false, leaving the registry untouched, if name is already taken.
func (r *Registry[T]) Register(name string, priority int, value T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[name]; exists {
		return false
	}
	r.seq++
	r.items[name] = entry[T]{name: name, value: value, priority: priority, seq: r.seq}
	return true
}

// Unregister removes name. It returns false if name was not registered.
func (r *Registry[T]) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[name]; !exists {
		return false
	}
	delete(r.items, name)
	return true
}

// Get looks up a value by name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[name]
	return e.value, ok
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of registered values.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Values returns a snapshot ordered by ascending priority. Equal priorities keep
// registration order.
func (r *Registry[T]) Values() []T {
	sorted := r.sorted()
	out := make([]T, len(sorted))
	for i, e := range sorted {
		out[i] = e.value
	}
	return out
}

// Names returns the registered names in the same order as Values.
func (r *Registry[T]) Names() []string {
	sorted := r.sorted()
	out := make([]string, len(sorted))
	for i, e := range sorted {
		out[i] = e.name
	}
	return out
}

func (r *Registry[T]) sorted() []entry[T] {
	r.mu.RLock()
	list := make([]entry[T], 0, len(r.items))
	for _, e := range r.items {
		list = append(list, e)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority < list[j].priority
		}
		return list[i].seq < list[j].seq
	})
	return list
}
