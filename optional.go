// File: propbind/optional.go
package propbind

import "reflect"

// Optional is a consumption target for properties that may legitimately be
// absent. When no source provides a value and no default applies, the
// target is left empty instead of failing startup validation.
type Optional[T any] struct {
	value   T
	present bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None returns an empty Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the held value and whether one is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// IsPresent reports whether a value is held.
func (o Optional[T]) IsPresent() bool {
	return o.present
}

// OrElse returns the held value, or fallback when absent.
func (o Optional[T]) OrElse(fallback T) T {
	if o.present {
		return o.value
	}
	return fallback
}

// optionalTarget is how the container manipulates *Optional[T] fields
// without knowing T. Asserted on the field's address during registration.
type optionalTarget interface {
	elemType() reflect.Type
	setPresent(v any)
	setAbsent()
}

func (o *Optional[T]) elemType() reflect.Type {
	var zero T
	return reflect.TypeOf(&zero).Elem()
}

func (o *Optional[T]) setPresent(v any) {
	o.value = v.(T)
	o.present = true
}

func (o *Optional[T]) setAbsent() {
	var zero T
	o.value = zero
	o.present = false
}
