// File: propbind/filesource.go
package propbind

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ordinalKey is a reserved key a configuration file may define to override
// the ordinal of the source loading it.
const ordinalKey = "config_ordinal"

// FileSource resolves keys against a configuration file. Nested documents
// are flattened to dot-notation keys; all values are exposed as raw strings.
// Reload re-reads the file, so providers bound through a reloaded source
// observe updated values.
type FileSource struct {
	mu      sync.RWMutex
	path    string
	format  string
	ordinal int
	// ordinalFixed is set when the ordinal was chosen by the caller and
	// must not be overridden by a config_ordinal key in the file.
	ordinalFixed bool
	values       map[string]string
}

// NewFileSource loads path into a source at OrdinalFile. An optional format
// hint ("toml", "json", "yaml", "properties") skips auto-detection.
// A config_ordinal key inside the file overrides the source's ordinal.
func NewFileSource(path string, formatHint ...string) (*FileSource, error) {
	f := &FileSource{
		path:    path,
		ordinal: OrdinalFile,
	}
	if len(formatHint) > 0 {
		f.format = formatHint[0]
	}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// WithOrdinal pins the source's ordinal, taking precedence over any
// config_ordinal key in the file. Returns the source for chaining.
func (f *FileSource) WithOrdinal(ordinal int) *FileSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ordinal = ordinal
	f.ordinalFixed = true
	return f
}

// Path returns the file path backing the source.
func (f *FileSource) Path() string { return f.path }

func (f *FileSource) Name() string {
	return "file:" + f.path
}

func (f *FileSource) Ordinal() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ordinal
}

func (f *FileSource) Lookup(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *FileSource) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reload re-reads and re-parses the backing file, atomically replacing the
// source's contents.
func (f *FileSource) Reload() error {
	fileData, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to read config file '%s': %w", f.path, err)
	}

	format := f.format
	if format == "" || format == "auto" {
		format = detectFileFormat(f.path)
		if format == "" {
			format = detectFormatFromContent(fileData)
		}
		if format == "" {
			return fmt.Errorf("unable to determine config format for file '%s'", f.path)
		}
	}

	var flat map[string]string
	switch format {
	case "properties":
		flat, err = parseProperties(fileData)
		if err != nil {
			return fmt.Errorf("failed to parse properties file '%s': %w", f.path, err)
		}
	case "toml":
		nested := make(map[string]any)
		if err := toml.Unmarshal(fileData, &nested); err != nil {
			return fmt.Errorf("failed to parse TOML config file '%s': %w", f.path, err)
		}
		flat = stringifyMap(flattenMap(nested, ""))
	case "json":
		nested := make(map[string]any)
		decoder := json.NewDecoder(bytes.NewReader(fileData))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&nested); err != nil {
			return fmt.Errorf("failed to parse JSON config file '%s': %w", f.path, err)
		}
		flat = stringifyMap(flattenMap(nested, ""))
	case "yaml":
		nested := make(map[string]any)
		if err := yaml.Unmarshal(fileData, &nested); err != nil {
			return fmt.Errorf("failed to parse YAML config file '%s': %w", f.path, err)
		}
		flat = stringifyMap(flattenMap(nested, ""))
	default:
		return fmt.Errorf("unsupported config format %q for file '%s'", format, f.path)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.ordinalFixed {
		if raw, ok := flat[ordinalKey]; ok {
			ord, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("invalid %s value %q in '%s': %w", ordinalKey, raw, f.path, err)
			}
			f.ordinal = ord
		}
	}
	delete(flat, ordinalKey)
	f.values = flat

	return nil
}

// snapshot returns a copy of the current key set, used by the watcher to
// diff reloads.
func (f *FileSource) snapshot() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap := make(map[string]string, len(f.values))
	for k, v := range f.values {
		snap[k] = v
	}
	return snap
}

// parseProperties parses simple key=value lines. Blank lines and lines
// starting with '#' or '!' are ignored. Values are taken verbatim after the
// first '=' with surrounding whitespace on the key trimmed.
func parseProperties(data []byte) (map[string]string, error) {
	result := make(map[string]string)
	for lineNo, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
			continue
		}
		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '=' in %q", lineNo+1, trimmed)
		}
		result[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return result, nil
}

// detectFileFormat determines format from file extension.
func detectFileFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".properties":
		return "properties"
	case ".conf", ".config":
		// Try to detect from content
		return ""
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing.
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	// Try TOML before YAML: YAML accepts nearly anything line-based
	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return "yaml"
	}

	return ""
}
