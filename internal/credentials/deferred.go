package credentials

import (
	"context"
	"sync"
)

// Deferred is a single-assignment value. The first Resolve wins; later calls are no-ops.
// Await blocks until the value is resolved or ctx is done.
type Deferred[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
}

// NewDeferred creates an unresolved Deferred.
func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{done: make(chan struct{})}
}

// Resolve stores v if nothing was stored yet and reports whether it did.
func (d *Deferred[T]) Resolve(v T) bool {
	resolved := false
	d.once.Do(func() {
		d.value = v
		close(d.done)
		resolved = true
	})
	return resolved
}

// Await returns the resolved value. It never returns a zero value in place of a missing one:
// if ctx ends first the context error is returned.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the value is resolved.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Resolved reports whether Resolve already happened.
func (d *Deferred[T]) Resolved() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}
