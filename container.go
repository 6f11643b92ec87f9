// File: propbind/container.go
package propbind

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// targetKind classifies a consumption point by its injection style.
type targetKind int

const (
	kindEager targetKind = iota
	kindOptional
	kindProvider
)

func (k targetKind) String() string {
	switch k {
	case kindEager:
		return "eager"
	case kindOptional:
		return "optional"
	case kindProvider:
		return "provider"
	default:
		return "unknown"
	}
}

// point is a registered consumption point: an immutable binding marker plus
// the wiring needed to deliver a resolved value to its target.
type point struct {
	binding Binding
	key     string
	kind    targetKind
	elem    reflect.Type
	origin  string

	assign func(v any)                   // eager
	setVal func(v any)                   // optional: present
	clear  func()                        // optional: absent
	bind   func(fn func() (any, error))  // provider
}

// Container resolves registered consumption points against a source
// registry. Registration declares points; Start is the single validation
// and injection pass that reads every binding marker exactly once.
type Container struct {
	mu         sync.RWMutex
	registry   *Registry
	converters *Converters
	points     []point
	watchers   []*Watcher
	started    bool
}

// New returns a container with an empty source registry and the built-in
// converter set.
func New() *Container {
	return &Container{
		registry:   NewRegistry(),
		converters: NewConverters(),
	}
}

// Registry returns the container's source registry.
func (c *Container) Registry() *Registry {
	return c.registry
}

// AddSource registers a configuration source.
func (c *Container) AddSource(s Source) {
	c.registry.AddSource(s)
}

// RegisterConverter installs a custom converter for a target type.
// Pair with the Converter helper:
//
//	c.RegisterConverter(propbind.Converter(parseColor))
func (c *Container) RegisterConverter(target reflect.Type, fn ConverterFunc) {
	c.converters.Register(target, fn)
}

// Register declares an explicit consumption point. The binding must carry
// an explicit name: with no enclosing type available at the call site, a
// nameless binding has no derivable key.
//
// target must be a pointer: *T for an eager mandatory value, *Optional[T]
// for an optional value, or *Provider[T] for a deferred value.
func (c *Container) Register(b Binding, target any) error {
	key, err := ResolveKey("", "", b.Name)
	if err != nil {
		return err
	}
	p, err := buildPoint(b, key, "explicit", target)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = append(c.points, p)
	return nil
}

// Bind declares consumption points for every field of *structPtr carrying a
// `prop` tag. Fields whose tag omits the name get a key derived from the
// enclosing type's fully-qualified name and the field name. Untagged plain
// struct fields are descended into.
func (c *Container) Bind(structPtr any) error {
	rv := reflect.ValueOf(structPtr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("Bind requires a non-nil struct pointer, got %T", structPtr)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("Bind requires a struct pointer, got %T", structPtr)
	}

	var pts []point
	if err := collectPoints(rv, &pts); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = append(c.points, pts...)
	return nil
}

// collectPoints walks a struct value and gathers its tagged fields.
func collectPoints(rv reflect.Value, pts *[]point) error {
	rt := rv.Type()
	enclosing := typeFullName(rt)

	var errs []error
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		tag, hasTag := field.Tag.Lookup(TagName)
		fieldPtr := rv.Field(i).Addr().Interface()

		if !hasTag {
			// Descend into plain nested structs looking for tagged
			// fields. Optional and Provider fields never nest.
			if _, isOpt := fieldPtr.(optionalTarget); isOpt {
				continue
			}
			if _, isProv := fieldPtr.(providerTarget); isProv {
				continue
			}
			if field.Type.Kind() == reflect.Struct && field.Type != timeType {
				if err := collectPoints(rv.Field(i), pts); err != nil {
					errs = append(errs, err)
				}
			}
			continue
		}

		b, skip, err := parseBindingTag(tag)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s.%s: %w", rt.Name(), field.Name, err))
			continue
		}
		if skip {
			continue
		}

		key, err := b.Key(enclosing, field.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", field.Name, err))
			continue
		}

		origin := enclosing + "." + field.Name
		p, err := buildPoint(b, key, origin, fieldPtr)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s.%s: %w", rt.Name(), field.Name, err))
			continue
		}
		*pts = append(*pts, p)
	}

	return errors.Join(errs...)
}

// buildPoint classifies a target pointer and wires the point's delivery
// functions.
func buildPoint(b Binding, key, origin string, target any) (point, error) {
	p := point{binding: b, key: key, origin: origin}

	switch t := target.(type) {
	case optionalTarget:
		p.kind = kindOptional
		p.elem = t.elemType()
		p.setVal = t.setPresent
		p.clear = t.setAbsent
		return p, nil
	case providerTarget:
		p.kind = kindProvider
		p.elem = t.elemType()
		p.bind = t.bindFetch
		return p, nil
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return point{}, fmt.Errorf("binding target must be a non-nil pointer, got %T", target)
	}

	elem := rv.Elem()
	p.kind = kindEager
	p.elem = elem.Type()
	p.assign = func(v any) {
		elem.Set(reflect.ValueOf(v))
	}
	return p, nil
}

// resolveState is the outcome of resolving a point against the registry.
type resolveState int

const (
	statePresent resolveState = iota
	stateAbsent
)

// resolve runs the full lookup+convert path for a point. A source that
// contains the key decides the outcome: an empty value, or a conversion
// producing an absence, masks the default literal entirely. The default is
// consulted only when no source contains the key, and goes through the same
// conversion path as sourced values.
func (c *Container) resolve(p point) (any, resolveState, error) {
	raw, found, err := c.registry.Lookup(p.key)
	if err != nil {
		return nil, stateAbsent, fmt.Errorf("key %q: %w", p.key, err)
	}

	if found {
		if raw == "" {
			return nil, stateAbsent, nil // emptied by override
		}
		v, err := c.converters.Convert(raw, p.elem)
		if err != nil {
			return nil, stateAbsent, fmt.Errorf("key %q: %w", p.key, err)
		}
		if v == nil {
			return nil, stateAbsent, nil // converter reported absence
		}
		return v, statePresent, nil
	}

	def, ok := p.binding.DefaultLiteral()
	if !ok {
		return nil, stateAbsent, nil
	}
	v, err := c.converters.Convert(def, p.elem)
	if err != nil {
		return nil, stateAbsent, fmt.Errorf("key %q: default literal: %w", p.key, err)
	}
	if v == nil {
		return nil, stateAbsent, nil
	}
	return v, statePresent, nil
}

// Start walks every registered consumption point and applies the binding
// contract: eager mandatory targets fail fast when nothing resolves,
// optional targets accept absence, provider targets get their key checked
// now and their value deferred to access time. All failures are aggregated
// so a deployment error reports every broken point at once.
func (c *Container) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, p := range c.points {
		switch p.kind {
		case kindEager:
			v, state, err := c.resolve(p)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.origin, err))
				continue
			}
			if state == stateAbsent {
				errs = append(errs, fmt.Errorf("%s: %w: key %q", p.origin, ErrMissingValue, p.key))
				continue
			}
			p.assign(v)

		case kindOptional:
			v, state, err := c.resolve(p)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.origin, err))
				continue
			}
			if state == stateAbsent {
				p.clear()
			} else {
				p.setVal(v)
			}

		case kindProvider:
			// Bind first so the handle works even while diagnosing,
			// then check the key eagerly.
			pt := p
			pt.bind(func() (any, error) {
				v, state, err := c.resolve(pt)
				if err != nil {
					return nil, err
				}
				if state == stateAbsent {
					return nil, fmt.Errorf("%w: key %q", ErrMissingValue, pt.key)
				}
				return v, nil
			})

			_, state, err := c.resolve(p)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.origin, err))
				continue
			}
			if state == stateAbsent {
				errs = append(errs, fmt.Errorf("%s: %w: key %q", p.origin, ErrMissingValue, p.key))
			}
		}
	}

	c.started = true
	return errors.Join(errs...)
}

// trackWatcher ties a file watcher's lifetime to the container.
func (c *Container) trackWatcher(w *Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, w)
}

// Close stops any file watchers started on behalf of the container.
func (c *Container) Close() {
	c.mu.Lock()
	watchers := c.watchers
	c.watchers = nil
	c.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
}

// Started reports whether the startup validation pass has run.
func (c *Container) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Resolve converts the current value of key to T, applying the same
// lookup+convert path used for bound points. Absence is an error; use
// Optional targets for absent-is-fine access.
func Resolve[T any](c *Container, key string) (T, error) {
	var zero T
	elem := reflect.TypeOf(&zero).Elem()

	raw, found, err := c.registry.Lookup(key)
	if err != nil {
		return zero, fmt.Errorf("key %q: %w", key, err)
	}
	if !found || raw == "" {
		return zero, fmt.Errorf("%w: key %q", ErrMissingValue, key)
	}
	v, err := c.converters.Convert(raw, elem)
	if err != nil {
		return zero, fmt.Errorf("key %q: %w", key, err)
	}
	if v == nil {
		return zero, fmt.Errorf("%w: key %q", ErrMissingValue, key)
	}
	return v.(T), nil
}

// typeFullName returns the fully-qualified name of a type, or "" when the
// type is anonymous or predeclared.
func typeFullName(t reflect.Type) string {
	if t.Name() == "" {
		return ""
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
