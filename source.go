// File: propbind/source.go
package propbind

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Standard source ordinals. Higher ordinal wins. Default literals declared
// on bindings rank below every source regardless of ordinal.
const (
	OrdinalMap  = 500
	OrdinalArgs = 400
	OrdinalEnv  = 300
	OrdinalFile = 100
)

// Source supplies raw string values for configuration keys.
//
// A source "contains" a key when Lookup reports found=true, even if the
// value it supplies is empty. Containment is what settles precedence: the
// highest-ordinal source containing a key decides its outcome.
type Source interface {
	// Name identifies the source in diagnostics.
	Name() string

	// Ordinal is the source's precedence rank.
	Ordinal() int

	// Lookup returns the raw value for key and whether the source
	// contains the key at all.
	Lookup(key string) (string, bool)

	// Keys lists the keys the source currently contains.
	Keys() []string
}

// EnvTransformFunc converts a configuration key to an environment variable
// name.
type EnvTransformFunc func(key string) string

// MapSource is a programmatic in-memory source, highest-ranked by default.
// Useful for tests and for values computed at wiring time.
type MapSource struct {
	mu      sync.RWMutex
	name    string
	ordinal int
	values  map[string]string
}

// NewMapSource returns a MapSource seeded with values at OrdinalMap.
func NewMapSource(values map[string]string) *MapSource {
	m := &MapSource{
		name:    "map",
		ordinal: OrdinalMap,
		values:  make(map[string]string, len(values)),
	}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// WithOrdinal overrides the source's ordinal and returns it for chaining.
func (m *MapSource) WithOrdinal(ordinal int) *MapSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ordinal = ordinal
	return m
}

// WithName overrides the diagnostic name and returns the source for chaining.
func (m *MapSource) WithName(name string) *MapSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// Set stores a value under key. Safe for concurrent use; providers observe
// the change on their next access.
func (m *MapSource) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Delete removes a key so the source no longer contains it.
func (m *MapSource) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

func (m *MapSource) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

func (m *MapSource) Ordinal() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ordinal
}

func (m *MapSource) Lookup(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MapSource) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvSource resolves keys against environment variables. Lookups read the
// live environment, so providers see changes made with os.Setenv.
type EnvSource struct {
	prefix    string
	transform EnvTransformFunc
	ordinal   int
}

// NewEnvSource returns an EnvSource at OrdinalEnv using the default
// transform: dots to underscores, uppercased, prefix prepended.
// Example: prefix "MYAPP_" maps "server.port" to "MYAPP_SERVER_PORT".
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		prefix:    prefix,
		transform: defaultEnvTransform(prefix),
		ordinal:   OrdinalEnv,
	}
}

// WithTransform overrides how keys map to environment variable names.
func (e *EnvSource) WithTransform(fn EnvTransformFunc) *EnvSource {
	if fn != nil {
		e.transform = fn
	}
	return e
}

// WithOrdinal overrides the source's ordinal and returns it for chaining.
func (e *EnvSource) WithOrdinal(ordinal int) *EnvSource {
	e.ordinal = ordinal
	return e
}

func (e *EnvSource) Name() string { return "env" }

func (e *EnvSource) Ordinal() int { return e.ordinal }

func (e *EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(e.transform(key))
}

// Keys lists keys reconstructed from prefixed environment variables by
// reversing the default transform (underscores to dots, lowercased). The
// reverse mapping is lossy for keys that themselves contain underscores;
// Lookup remains exact either way.
func (e *EnvSource) Keys() []string {
	var keys []string
	for _, entry := range os.Environ() {
		name, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if e.prefix != "" && !strings.HasPrefix(name, e.prefix) {
			continue
		}
		trimmed := strings.TrimPrefix(name, e.prefix)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(trimmed, "_", "."))
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// defaultEnvTransform creates the default environment variable transformer.
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(key string) string {
		env := strings.ReplaceAll(key, ".", "_")
		env = strings.ToUpper(env)
		if prefix != "" {
			env = prefix + env
		}
		return env
	}
}

// ArgsSource resolves keys against parsed command-line arguments.
type ArgsSource struct {
	values  map[string]string
	ordinal int
}

// NewArgsSource parses args (typically os.Args[1:]) into a source at
// OrdinalArgs. Supported forms: "--key=value", "--key value", and bare
// "--flag" which stores "true".
func NewArgsSource(args []string) (*ArgsSource, error) {
	values, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	return &ArgsSource{values: values, ordinal: OrdinalArgs}, nil
}

// WithOrdinal overrides the source's ordinal and returns it for chaining.
func (a *ArgsSource) WithOrdinal(ordinal int) *ArgsSource {
	a.ordinal = ordinal
	return a
}

func (a *ArgsSource) Name() string { return "args" }

func (a *ArgsSource) Ordinal() int { return a.ordinal }

func (a *ArgsSource) Lookup(key string) (string, bool) {
	v, ok := a.values[key]
	return v, ok
}

func (a *ArgsSource) Keys() []string {
	keys := make([]string, 0, len(a.values))
	for k := range a.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseArgs processes command-line arguments into key/value pairs.
// Values stay strings; conversion happens at binding time.
func parseArgs(args []string) (map[string]string, error) {
	result := make(map[string]string)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			// Skip non-flag arguments
			i++
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			// Skip "--" argument if used as a separator
			i++
			continue
		}

		var keyPath string
		var valueStr string

		// Check for "--key=value" format
		if strings.Contains(argContent, "=") {
			parts := strings.SplitN(argContent, "=", 2)
			keyPath = parts[0]
			valueStr = parts[1]
			i++ // Consume only this argument
		} else {
			// Handle "--key value" or "--booleanflag"
			keyPath = argContent
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				valueStr = "true"
				i++ // Consume only the flag argument
			} else {
				valueStr = args[i+1]
				i += 2 // Consume flag and value arguments
			}
		}

		if keyPath == "" {
			// Skip invalid flags like --=value
			continue
		}

		// Validate keyPath segments
		segments := strings.Split(keyPath, ".")
		for _, segment := range segments {
			if !isValidKeySegment(segment) {
				return nil, fmt.Errorf("%w: invalid key segment %q in %q",
					ErrArgsParse, segment, keyPath)
			}
		}

		result[keyPath] = valueStr
	}

	return result, nil
}
