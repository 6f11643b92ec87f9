// File: propbind/builder.go
package propbind

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// ValidatorFunc validates a started Container. It runs at the end of Build
// and should return an error if the configuration is unacceptable.
type ValidatorFunc func(c *Container) error

// registration pairs an explicit binding with its target.
type registration struct {
	binding Binding
	target  any
}

// converterEntry pairs a target type with a custom converter.
type converterEntry struct {
	target reflect.Type
	fn     ConverterFunc
}

// Builder provides a fluent interface for assembling a container: sources,
// converters, bindings, and the startup validation pass in one expression.
type Builder struct {
	file         string
	fileFormat   string
	envPrefix    string
	envTransform EnvTransformFunc
	noEnv        bool
	args         []string
	sources      []Source
	converters   []converterEntry
	binds        []any
	regs         []registration
	validators   []ValidatorFunc
	watchOpts    *WatchOptions
	err          error
}

// NewBuilder creates a new container builder. Command-line arguments
// default to os.Args[1:]; override with WithArgs.
func NewBuilder() *Builder {
	return &Builder{
		args: os.Args[1:],
	}
}

// WithFile sets the configuration file path. An optional format hint
// ("toml", "json", "yaml", "properties") skips auto-detection.
func (b *Builder) WithFile(path string, formatHint ...string) *Builder {
	b.file = path
	if len(formatHint) > 0 {
		b.fileFormat = formatHint[0]
	}
	return b
}

// WithEnvPrefix sets the environment variable prefix.
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.envPrefix = prefix
	return b
}

// WithEnvTransform sets a custom key-to-environment-variable transformer.
func (b *Builder) WithEnvTransform(fn EnvTransformFunc) *Builder {
	b.envTransform = fn
	return b
}

// WithoutEnv removes the environment source entirely.
func (b *Builder) WithoutEnv() *Builder {
	b.noEnv = true
	return b
}

// WithArgs sets the command-line arguments. Pass nil to disable the args
// source.
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithSource registers an additional configuration source.
func (b *Builder) WithSource(s Source) *Builder {
	if s != nil {
		b.sources = append(b.sources, s)
	}
	return b
}

// WithConverter installs a custom converter for a target type. Pair with
// the Converter helper:
//
//	b.WithConverter(propbind.Converter(parseColor))
func (b *Builder) WithConverter(target reflect.Type, fn ConverterFunc) *Builder {
	b.converters = append(b.converters, converterEntry{target: target, fn: fn})
	return b
}

// WithBind declares consumption points from the `prop` tags of *structPtr.
func (b *Builder) WithBind(structPtr any) *Builder {
	b.binds = append(b.binds, structPtr)
	return b
}

// WithRegister declares an explicit consumption point.
func (b *Builder) WithRegister(binding Binding, target any) *Builder {
	b.regs = append(b.regs, registration{binding: binding, target: target})
	return b
}

// WithValidator adds a validation function that runs after the startup
// pass. Multiple validators execute in the order they are added.
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// WithAutoReload enables file watching on the configuration file so
// provider targets track edits. The watcher is stopped by Container.Close.
func (b *Builder) WithAutoReload(opts ...WatchOptions) *Builder {
	o := DefaultWatchOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	b.watchOpts = &o
	return b
}

// Build assembles the container, runs the startup validation pass, and
// runs the validators. A missing configuration file is not fatal: the
// container is returned alongside an error wrapping ErrFileNotFound so the
// caller can decide. Every other failure returns a nil container.
func (b *Builder) Build() (*Container, error) {
	if b.err != nil {
		return nil, b.err
	}

	c := New()
	var fileMissing error

	// Sources, highest-ordinal kinds first for readability; precedence is
	// settled by ordinals, not registration order.
	if len(b.args) > 0 {
		src, err := NewArgsSource(b.args)
		if err != nil {
			return nil, err
		}
		c.AddSource(src)
	}

	if !b.noEnv {
		env := NewEnvSource(b.envPrefix)
		if b.envTransform != nil {
			env.WithTransform(b.envTransform)
		}
		c.AddSource(env)
	}

	if b.file != "" {
		var hints []string
		if b.fileFormat != "" {
			hints = append(hints, b.fileFormat)
		}
		src, err := NewFileSource(b.file, hints...)
		if err != nil {
			if !errors.Is(err, ErrFileNotFound) {
				return nil, err
			}
			fileMissing = fmt.Errorf("%w: %s", ErrFileNotFound, b.file)
		} else {
			c.AddSource(src)
			if b.watchOpts != nil {
				c.trackWatcher(src.AutoReload(*b.watchOpts))
			}
		}
	}

	for _, s := range b.sources {
		c.AddSource(s)
	}

	for _, entry := range b.converters {
		c.RegisterConverter(entry.target, entry.fn)
	}

	// Consumption points
	for _, target := range b.binds {
		if err := c.Bind(target); err != nil {
			return nil, fmt.Errorf("failed to bind struct: %w", err)
		}
	}
	for _, reg := range b.regs {
		if err := c.Register(reg.binding, reg.target); err != nil {
			return nil, fmt.Errorf("failed to register binding: %w", err)
		}
	}

	// Startup validation pass
	if err := c.Start(); err != nil {
		return nil, err
	}

	// Run validators
	for _, validator := range b.validators {
		if err := validator(c); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	// fileMissing or nil
	return c, fileMissing
}

// MustBuild is like Build but panics on error. A missing configuration
// file is not fatal: the application can proceed with the other sources.
func (b *Builder) MustBuild() *Container {
	c, err := b.Build()
	if err != nil && !errors.Is(err, ErrFileNotFound) {
		panic(fmt.Sprintf("propbind build failed: %v", err))
	}
	return c
}
