// Package syncx provides typed synchronization helpers.
package syncx

import "sync"

// RWGuard is a value behind an RWMutex with a version that bumps on every write.
// Readers get copies; pointer fields inside T must be treated as immutable.
type RWGuard[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
}

// NewGuard creates a guarded value.
func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// Get returns a copy of the value.
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Load returns a copy of the value and its version.
func (g *RWGuard[T]) Load() (T, uint64) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value, g.version
}

// Version returns the number of writes so far.
func (g *RWGuard[T]) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// Set replaces the value.
func (g *RWGuard[T]) Set(v T) {
	g.Write(func(p *T) { *p = v })
}

// Write mutates the value in place under the write lock.
func (g *RWGuard[T]) Write(fn func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.value)
	g.version++
}

// Swap replaces the value and returns the old one.
func (g *RWGuard[T]) Swap(v T) T {
	g.mu.Lock()
	defer g.mu.Unlock()
	old := g.value
	g.value = v
	g.version++
	return old
}

// View runs fn under the read lock and returns its result.
func View[T, R any](g *RWGuard[T], fn func(T) R) R {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn(g.value)
}

// Modify runs fn under the write lock and returns its result.
func Modify[T, R any](g *RWGuard[T], fn func(*T) R) R {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := fn(&g.value)
	g.version++
	return r
}
