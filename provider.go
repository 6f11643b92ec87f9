// File: propbind/provider.go
package propbind

import (
	"fmt"
	"reflect"
)

// Provider is a consumption target whose value is re-resolved on every
// access, always reflecting the current state of the configuration sources.
// Key usability is still checked eagerly during Start; only the value itself
// is deferred.
type Provider[T any] struct {
	fetch func() (any, error)
}

// NewProvider returns a Provider backed by a fixed function. Intended for
// tests and manual wiring; containers bind providers themselves.
func NewProvider[T any](fn func() (T, error)) Provider[T] {
	return Provider[T]{fetch: func() (any, error) { return fn() }}
}

// Get resolves the current value of the bound property.
// Lookup or conversion failures surface here, on access.
func (p Provider[T]) Get() (T, error) {
	var zero T
	if p.fetch == nil {
		return zero, ErrNotStarted
	}
	v, err := p.fetch()
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// MustGet is like Get but panics on error.
func (p Provider[T]) MustGet() T {
	v, err := p.Get()
	if err != nil {
		panic(fmt.Sprintf("propbind: provider access failed: %v", err))
	}
	return v
}

// providerTarget is how the container wires *Provider[T] fields without
// knowing T. Asserted on the field's address during registration.
type providerTarget interface {
	elemType() reflect.Type
	bindFetch(fn func() (any, error))
}

func (p *Provider[T]) elemType() reflect.Type {
	var zero T
	return reflect.TypeOf(&zero).Elem()
}

func (p *Provider[T]) bindFetch(fn func() (any, error)) {
	p.fetch = fn
}
