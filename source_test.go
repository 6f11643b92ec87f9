// File: propbind/source_test.go
package propbind_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"propbind"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSource(t *testing.T) {
	src := propbind.NewMapSource(map[string]string{
		"server.host": "localhost",
		"server.port": "8080",
	})

	assert.Equal(t, propbind.OrdinalMap, src.Ordinal())

	v, ok := src.Lookup("server.host")
	assert.True(t, ok)
	assert.Equal(t, "localhost", v)

	_, ok = src.Lookup("missing")
	assert.False(t, ok)

	src.Set("server.host", "remote")
	v, _ = src.Lookup("server.host")
	assert.Equal(t, "remote", v)

	src.Delete("server.host")
	_, ok = src.Lookup("server.host")
	assert.False(t, ok)

	assert.Equal(t, []string{"server.port"}, src.Keys())
}

func TestEnvSource(t *testing.T) {
	t.Run("DefaultTransform", func(t *testing.T) {
		t.Setenv("APP_SERVER_HOST", "envhost")

		src := propbind.NewEnvSource("APP_")
		v, ok := src.Lookup("server.host")
		assert.True(t, ok)
		assert.Equal(t, "envhost", v)

		_, ok = src.Lookup("server.port")
		assert.False(t, ok)
	})

	t.Run("EmptyOverrideVisible", func(t *testing.T) {
		t.Setenv("APP_SERVER_HOST", "")

		src := propbind.NewEnvSource("APP_")
		v, ok := src.Lookup("server.host")
		assert.True(t, ok, "empty env var still counts as contained")
		assert.Equal(t, "", v)
	})

	t.Run("CustomTransform", func(t *testing.T) {
		t.Setenv("DATABASE_HOSTNAME", "customhost")

		src := propbind.NewEnvSource("").WithTransform(func(key string) string {
			if key == "db.host" {
				return "DATABASE_HOSTNAME"
			}
			return key
		})

		v, ok := src.Lookup("db.host")
		assert.True(t, ok)
		assert.Equal(t, "customhost", v)
	})

	t.Run("Keys", func(t *testing.T) {
		t.Setenv("KEYSPFX_TEST_ONE", "1")
		t.Setenv("KEYSPFX_TEST_TWO", "2")

		src := propbind.NewEnvSource("KEYSPFX_")
		keys := src.Keys()
		assert.Contains(t, keys, "test.one")
		assert.Contains(t, keys, "test.two")
	})
}

func TestArgsSource(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected map[string]string
	}{
		{
			name: "KeyValueWithEquals",
			args: []string{"--server.host=example.com", "--server.port=9000"},
			expected: map[string]string{
				"server.host": "example.com",
				"server.port": "9000",
			},
		},
		{
			name: "KeyValueWithSpace",
			args: []string{"--server.host", "example.com", "--server.port", "9000"},
			expected: map[string]string{
				"server.host": "example.com",
				"server.port": "9000",
			},
		},
		{
			name: "BooleanFlags",
			args: []string{"--enable.debug", "--disable.cache", "false"},
			expected: map[string]string{
				"enable.debug":  "true",
				"disable.cache": "false",
			},
		},
		{
			name: "MixedFormats",
			args: []string{
				"--server.host=localhost",
				"--server.port", "8080",
				"--enable.tls",
				"--database.pool.size=10",
			},
			expected: map[string]string{
				"server.host":        "localhost",
				"server.port":        "8080",
				"enable.tls":         "true",
				"database.pool.size": "10",
			},
		},
		{
			name:     "SeparatorAndNonFlags",
			args:     []string{"positional", "--"},
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := propbind.NewArgsSource(tt.args)
			require.NoError(t, err)

			for key, expected := range tt.expected {
				v, ok := src.Lookup(key)
				assert.True(t, ok, "key %s should exist", key)
				assert.Equal(t, expected, v)
			}
			assert.Len(t, src.Keys(), len(tt.expected))
		})
	}

	t.Run("InvalidKeySegment", func(t *testing.T) {
		_, err := propbind.NewArgsSource([]string{"--invalid!key=value"})
		assert.ErrorIs(t, err, propbind.ErrArgsParse)
	})
}

func TestFileSource(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("TOML", func(t *testing.T) {
		path := filepath.Join(tmpDir, "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[server]
host = "toml-host"
port = 8080
enabled = true

[server.tls]
cert = "/path/to/cert.pem"

[database]
tags = ["primary", "replica"]
`), 0644))

		src, err := propbind.NewFileSource(path)
		require.NoError(t, err)

		v, ok := src.Lookup("server.host")
		assert.True(t, ok)
		assert.Equal(t, "toml-host", v)

		v, _ = src.Lookup("server.port")
		assert.Equal(t, "8080", v)

		v, _ = src.Lookup("server.enabled")
		assert.Equal(t, "true", v)

		v, _ = src.Lookup("server.tls.cert")
		assert.Equal(t, "/path/to/cert.pem", v)

		// Lists are comma-joined raw strings
		v, _ = src.Lookup("database.tags")
		assert.Equal(t, "primary,replica", v)
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(tmpDir, "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"server": {"host": "json-host", "port": 9090}
		}`), 0644))

		src, err := propbind.NewFileSource(path)
		require.NoError(t, err)

		v, _ := src.Lookup("server.host")
		assert.Equal(t, "json-host", v)

		// Number precision preserved through json.Number
		v, _ = src.Lookup("server.port")
		assert.Equal(t, "9090", v)
	})

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(tmpDir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: yaml-host
  port: 7070
`), 0644))

		src, err := propbind.NewFileSource(path)
		require.NoError(t, err)

		v, _ := src.Lookup("server.host")
		assert.Equal(t, "yaml-host", v)

		v, _ = src.Lookup("server.port")
		assert.Equal(t, "7070", v)
	})

	t.Run("Properties", func(t *testing.T) {
		path := filepath.Join(tmpDir, "config.properties")
		require.NoError(t, os.WriteFile(path, []byte(`
# comment
! also a comment
server.host = prop-host
server.port=6060
empty.value=
`), 0644))

		src, err := propbind.NewFileSource(path)
		require.NoError(t, err)

		v, _ := src.Lookup("server.host")
		assert.Equal(t, "prop-host", v)

		v, _ = src.Lookup("server.port")
		assert.Equal(t, "6060", v)

		// Empty value: contained, empty
		v, ok := src.Lookup("empty.value")
		assert.True(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("FormatHint", func(t *testing.T) {
		path := filepath.Join(tmpDir, "config.conf")
		require.NoError(t, os.WriteFile(path, []byte("a.b=hinted\n"), 0644))

		src, err := propbind.NewFileSource(path, "properties")
		require.NoError(t, err)

		v, _ := src.Lookup("a.b")
		assert.Equal(t, "hinted", v)
	})

	t.Run("ConfigOrdinal", func(t *testing.T) {
		path := filepath.Join(tmpDir, "ranked.properties")
		require.NoError(t, os.WriteFile(path, []byte("config_ordinal=350\nk=v\n"), 0644))

		src, err := propbind.NewFileSource(path)
		require.NoError(t, err)
		assert.Equal(t, 350, src.Ordinal())

		// The ordinal key itself is not exposed as configuration
		_, ok := src.Lookup("config_ordinal")
		assert.False(t, ok)
	})

	t.Run("ExplicitOrdinalWins", func(t *testing.T) {
		path := filepath.Join(tmpDir, "pinned.properties")
		require.NoError(t, os.WriteFile(path, []byte("config_ordinal=350\nk=v\n"), 0644))

		src, err := propbind.NewFileSource(path)
		require.NoError(t, err)
		src.WithOrdinal(50)
		require.NoError(t, src.Reload())
		assert.Equal(t, 50, src.Ordinal())
	})

	t.Run("NonExistentFile", func(t *testing.T) {
		_, err := propbind.NewFileSource(filepath.Join(tmpDir, "nope.toml"))
		assert.ErrorIs(t, err, propbind.ErrFileNotFound)
	})

	t.Run("InvalidTOML", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("invalid = toml content"), 0644))

		_, err := propbind.NewFileSource(path)
		assert.Error(t, err)
	})
}

func TestRegistryPrecedence(t *testing.T) {
	t.Run("HigherOrdinalWins", func(t *testing.T) {
		reg := propbind.NewRegistry()
		reg.AddSource(propbind.NewMapSource(map[string]string{"k": "low"}).WithOrdinal(100).WithName("low"))
		reg.AddSource(propbind.NewMapSource(map[string]string{"k": "high"}).WithOrdinal(400).WithName("high"))

		v, found, err := reg.Lookup("k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "high", v)
	})

	t.Run("EmptyOverrideStillWins", func(t *testing.T) {
		reg := propbind.NewRegistry()
		reg.AddSource(propbind.NewMapSource(map[string]string{"k": "5"}).WithOrdinal(100))
		reg.AddSource(propbind.NewMapSource(map[string]string{"k": ""}).WithOrdinal(400))

		v, found, err := reg.Lookup("k")
		require.NoError(t, err)
		assert.True(t, found, "empty value is an override, not an absence")
		assert.Equal(t, "", v)
	})

	t.Run("EqualOrdinalRegistrationOrder", func(t *testing.T) {
		reg := propbind.NewRegistry()
		reg.AddSource(propbind.NewMapSource(map[string]string{"k": "first"}).WithOrdinal(200))
		reg.AddSource(propbind.NewMapSource(map[string]string{"k": "second"}).WithOrdinal(200))

		v, _, err := reg.Lookup("k")
		require.NoError(t, err)
		assert.Equal(t, "first", v)
	})

	t.Run("WinningSourceReported", func(t *testing.T) {
		reg := propbind.NewRegistry()
		reg.AddSource(propbind.NewMapSource(map[string]string{"k": "v"}).WithName("winner"))

		_, src, found, err := reg.LookupSource("k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "winner", src.Name())
	})

	t.Run("KeysUnion", func(t *testing.T) {
		reg := propbind.NewRegistry()
		reg.AddSource(propbind.NewMapSource(map[string]string{"a": "1", "b": "2"}))
		reg.AddSource(propbind.NewMapSource(map[string]string{"b": "3", "c": "4"}))

		assert.Equal(t, []string{"a", "b", "c"}, reg.Keys())
	})
}

func TestRegistryValueSize(t *testing.T) {
	oversized := strings.Repeat("x", propbind.MaxValueSize+1)

	t.Run("LookupRejected", func(t *testing.T) {
		reg := propbind.NewRegistry()
		reg.AddSource(propbind.NewMapSource(map[string]string{"big": oversized}))

		_, found, err := reg.Lookup("big")
		assert.True(t, found)
		assert.ErrorIs(t, err, propbind.ErrValueSize)
	})

	t.Run("StartSurfacesIt", func(t *testing.T) {
		type Config struct {
			Big string `prop:"big"`
		}

		c := propbind.New()
		c.AddSource(propbind.NewMapSource(map[string]string{"big": oversized}))

		var cfg Config
		require.NoError(t, c.Bind(&cfg))
		assert.ErrorIs(t, c.Start(), propbind.ErrValueSize)
	})

	t.Run("AtLimitAccepted", func(t *testing.T) {
		atLimit := strings.Repeat("x", propbind.MaxValueSize)
		reg := propbind.NewRegistry()
		reg.AddSource(propbind.NewMapSource(map[string]string{"big": atLimit}))

		v, found, err := reg.Lookup("big")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Len(t, v, propbind.MaxValueSize)
	})
}
