// File: propbind/convert.go
package propbind

import (
	"encoding"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ConverterFunc converts a raw string value to a value of a specific target
// type. Returning (nil, nil) reports an "emptied" value: the raw string
// converts to an absence, which masks lower-ordinal values and the default
// literal exactly like an empty-string override.
type ConverterFunc func(raw string) (any, error)

// Converter pairs a target type with a typed conversion function, for
// registration via Builder.WithConverter or Converters.Register.
func Converter[T any](fn func(raw string) (T, error)) (reflect.Type, ConverterFunc) {
	var zero T
	target := reflect.TypeOf(&zero).Elem()
	return target, func(raw string) (any, error) {
		v, err := fn(raw)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Converters dispatches raw string values to typed values. Custom
// converters take precedence over the built-in set.
type Converters struct {
	mu     sync.RWMutex
	custom map[reflect.Type]ConverterFunc
}

// NewConverters returns a dispatcher with only the built-in conversions.
func NewConverters() *Converters {
	return &Converters{custom: make(map[reflect.Type]ConverterFunc)}
}

// Register installs fn for target, replacing any previous custom converter.
func (c *Converters) Register(target reflect.Type, fn ConverterFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.custom[target] = fn
}

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	timeType            = reflect.TypeOf(time.Time{})
	ipType              = reflect.TypeOf(net.IP{})
	urlType             = reflect.TypeOf(url.URL{})
	urlPtrType          = reflect.TypeOf(&url.URL{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// Convert converts raw to a value of exactly the target type.
// All errors wrap ErrConversion. A (nil, nil) result means the conversion
// produced an absence; callers treat it like an empty override.
func (c *Converters) Convert(raw string, target reflect.Type) (any, error) {
	c.mu.RLock()
	custom, hasCustom := c.custom[target]
	c.mu.RUnlock()

	if hasCustom {
		v, err := custom(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: custom converter for %s: %w", ErrConversion, target, err)
		}
		return v, nil
	}

	v, err := convertBuiltin(c, raw, target)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot convert %q to %s: %w", ErrConversion, raw, target, err)
	}
	return v, nil
}

// convertBuiltin handles the built-in type set. Named types with special
// parse rules come before kind-based dispatch; time.Duration in particular
// must be recognized before the generic int64 path.
func convertBuiltin(c *Converters, raw string, target reflect.Type) (any, error) {
	switch target {
	case durationType:
		return time.ParseDuration(raw)
	case timeType:
		return time.Parse(time.RFC3339, raw)
	case ipType:
		if len(raw) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(raw))
		}
		ip := net.ParseIP(raw)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", raw)
		}
		return ip, nil
	case urlType, urlPtrType:
		if len(raw) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(raw))
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if target == urlPtrType {
			return u, nil
		}
		return *u, nil
	}

	switch target.Kind() {
	case reflect.String:
		return viaReflect(target, func(v reflect.Value) { v.SetString(raw) })
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, err
		}
		return viaReflect(target, func(v reflect.Value) { v.SetBool(b) })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// Base 0 for auto-detection (e.g., "0xFF")
		i, err := strconv.ParseInt(raw, 0, target.Bits())
		if err != nil {
			return nil, err
		}
		return viaReflect(target, func(v reflect.Value) { v.SetInt(i) })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 0, target.Bits())
		if err != nil {
			return nil, err
		}
		return viaReflect(target, func(v reflect.Value) { v.SetUint(u) })
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, target.Bits())
		if err != nil {
			return nil, err
		}
		return viaReflect(target, func(v reflect.Value) { v.SetFloat(f) })
	case reflect.Slice:
		return convertSlice(c, raw, target)
	}

	// Last resort: types carrying their own text parsing.
	if reflect.PointerTo(target).Implements(textUnmarshalerType) {
		pv := reflect.New(target)
		if err := pv.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
			return nil, err
		}
		return pv.Elem().Interface(), nil
	}

	return nil, fmt.Errorf("no converter for type %s", target)
}

// convertSlice splits raw on commas and converts each element. Elements are
// not trimmed; the separator convention matches comma-joined list values
// produced by file sources.
func convertSlice(c *Converters, raw string, target reflect.Type) (any, error) {
	parts := strings.Split(raw, ",")
	out := reflect.MakeSlice(target, 0, len(parts))
	for i, part := range parts {
		elem, err := c.Convert(part, target.Elem())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if elem == nil {
			return nil, fmt.Errorf("element %d: converts to absence", i)
		}
		out = reflect.Append(out, reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}

// viaReflect builds a value of exactly the target type, covering named
// types like `type Port int`.
func viaReflect(target reflect.Type, set func(reflect.Value)) (any, error) {
	v := reflect.New(target).Elem()
	set(v)
	return v.Interface(), nil
}
