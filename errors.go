// File: propbind/errors.go
package propbind

import "errors"

// MaxValueSize caps the size of a single raw configuration value.
// Lookups through the registry reject anything larger.
const MaxValueSize = 1 << 20 // 1MB

var (
	// ErrKeyUndetermined indicates a binding with no explicit name attached
	// to a point whose enclosing type or member name cannot be determined.
	ErrKeyUndetermined = errors.New("binding key cannot be determined")

	// ErrMissingValue indicates a mandatory point for which no source
	// provided a usable value and no default literal applies.
	ErrMissingValue = errors.New("missing mandatory configuration value")

	// ErrConversion indicates a raw value (sourced or default) that could
	// not be converted to the target type.
	ErrConversion = errors.New("configuration value conversion failed")

	// ErrFileNotFound indicates a configuration file that does not exist.
	ErrFileNotFound = errors.New("configuration file not found")

	// ErrArgsParse indicates malformed command-line arguments.
	ErrArgsParse = errors.New("failed to parse command-line arguments")

	// ErrValueSize indicates a raw value exceeding MaxValueSize.
	ErrValueSize = errors.New("configuration value exceeds maximum size")

	// ErrNotStarted is returned by provider access before Start has run.
	ErrNotStarted = errors.New("container has not been started")
)
