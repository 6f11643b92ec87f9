// File: propbind/convenience.go
package propbind

import (
	"fmt"
	"strings"
)

// Quick builds a fully wired container with a single call: args, env and
// file sources with standard ordinals, binding markers read from the
// `prop` tags of structPtr, and the startup validation pass. This is the
// recommended entry point for most applications.
func Quick(structPtr any, envPrefix, configFile string) (*Container, error) {
	return NewBuilder().
		WithEnvPrefix(envPrefix).
		WithFile(configFile).
		WithBind(structPtr).
		Build()
}

// MustQuick is like Quick but panics on error. A missing configuration
// file is not fatal.
func MustQuick(structPtr any, envPrefix, configFile string) *Container {
	return NewBuilder().
		WithEnvPrefix(envPrefix).
		WithFile(configFile).
		WithBind(structPtr).
		MustBuild()
}

// String resolves the current value of key as a string.
func (c *Container) String(key string) (string, error) {
	return Resolve[string](c, key)
}

// Int64 resolves the current value of key as an int64.
func (c *Container) Int64(key string) (int64, error) {
	return Resolve[int64](c, key)
}

// Bool resolves the current value of key as a bool.
func (c *Container) Bool(key string) (bool, error) {
	return Resolve[bool](c, key)
}

// Float64 resolves the current value of key as a float64.
func (c *Container) Float64(key string) (float64, error) {
	return Resolve[float64](c, key)
}

// Debug returns a formatted string showing all sources, consumption points,
// and where each point's value currently comes from.
func (c *Container) Debug() string {
	var b strings.Builder
	b.WriteString("Binding Debug Info:\n")

	b.WriteString("Sources (highest precedence first):\n")
	for _, src := range c.registry.Sources() {
		b.WriteString(fmt.Sprintf("  %s (ordinal %d)\n", src.Name(), src.Ordinal()))
	}

	c.mu.RLock()
	points := make([]point, len(c.points))
	copy(points, c.points)
	c.mu.RUnlock()

	b.WriteString("Consumption points:\n")
	for _, p := range points {
		b.WriteString(fmt.Sprintf("  %s:\n", p.origin))
		b.WriteString(fmt.Sprintf("    Key: %s (%s, %s)\n", p.key, p.kind, p.elem))

		raw, src, found, err := c.registry.LookupSource(p.key)
		switch {
		case err != nil:
			b.WriteString(fmt.Sprintf("    Value: error: %v\n", err))
		case found:
			b.WriteString(fmt.Sprintf("    Value: %q from %s\n", raw, src.Name()))
		default:
			if def, ok := p.binding.DefaultLiteral(); ok {
				b.WriteString(fmt.Sprintf("    Value: %q from default literal\n", def))
			} else {
				b.WriteString("    Value: <absent>\n")
			}
		}
	}

	return b.String()
}
