// File: propbind/binding.go
package propbind

import (
	"fmt"
	"strings"
)

// Unconfigured is the reserved literal meaning "no default was specified".
// A Binding carrying this value (or an empty string) in Default behaves as
// if no default had been declared. Any other literal must follow the
// formatting rules of the converter for the target type.
const Unconfigured = "propbind.binding.unconfigured"

// keySeparator joins the enclosing type name and the member name when a
// binding key is derived rather than declared.
const keySeparator = "."

// TagName is the struct tag consulted by Bind for binding markers.
const TagName = "prop"

// Binding is the declarative marker attached to a consumption point. It
// carries a lookup key and an optional fallback literal and nothing else;
// all resolution behavior lives in the Container and Registry.
//
// A zero Name means the key is derived from the enclosing type's
// fully-qualified name and the member name. A Default equal to Unconfigured
// or "" means no fallback applies.
type Binding struct {
	// Name is the exact lookup key. Used verbatim, no normalization.
	Name string

	// Default is the fallback literal, conceptually ranked below every
	// real configuration source.
	Default string
}

// ResolveKey returns the lookup key for a consumption point.
// An explicit non-empty name wins verbatim regardless of context.
// Otherwise the key is derived as <enclosingType>.<member>; if either part
// is unavailable the key cannot be determined.
func ResolveKey(enclosingType, member, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if enclosingType == "" || member == "" {
		return "", fmt.Errorf("%w: enclosing type %q, member %q",
			ErrKeyUndetermined, enclosingType, member)
	}
	return enclosingType + keySeparator + member, nil
}

// ResolveDefault reports whether a raw default literal is usable.
// The Unconfigured sentinel and the empty string both mean "no default";
// every other literal is returned unchanged, without trimming or escaping.
func ResolveDefault(raw string) (string, bool) {
	if raw == "" || raw == Unconfigured {
		return "", false
	}
	return raw, true
}

// Key resolves the binding's lookup key for the given consumption point.
func (b Binding) Key(enclosingType, member string) (string, error) {
	return ResolveKey(enclosingType, member, b.Name)
}

// DefaultLiteral returns the usable default, if any.
func (b Binding) DefaultLiteral() (string, bool) {
	return ResolveDefault(b.Default)
}

// parseBindingTag parses a `prop` struct tag into a Binding.
// Grammar: "name" or "name,default=literal". The name part may be empty to
// request key derivation ("" or ",default=x"). Everything after "default="
// is taken verbatim, commas included. A tag of "-" skips the field.
func parseBindingTag(tag string) (b Binding, skip bool, err error) {
	if tag == "-" {
		return Binding{}, true, nil
	}

	name := tag
	rest := ""
	if idx := strings.Index(tag, ","); idx >= 0 {
		name = tag[:idx]
		rest = tag[idx+1:]
	}

	b = Binding{Name: name, Default: Unconfigured}
	if rest == "" {
		return b, false, nil
	}

	if !strings.HasPrefix(rest, "default=") {
		return Binding{}, false, fmt.Errorf("invalid binding tag option %q in tag %q", rest, tag)
	}
	b.Default = strings.TrimPrefix(rest, "default=")
	return b, false, nil
}
