// File: propbind/builder_test.go
package propbind_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"propbind"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBuilder(t *testing.T) {
	t.Run("FullStack", func(t *testing.T) {
		path := writeTempConfig(t, "app.toml", `
[server]
host = "from-file"
port = 7070
`)
		t.Setenv("BLDR_SERVER_PORT", "8080")

		type Config struct {
			Host    string        `prop:"server.host"`
			Port    int           `prop:"server.port"`
			Timeout time.Duration `prop:"server.timeout,default=30s"`
		}

		var cfg Config
		c, err := propbind.NewBuilder().
			WithEnvPrefix("BLDR_").
			WithFile(path).
			WithArgs(nil).
			WithBind(&cfg).
			Build()
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, "from-file", cfg.Host)
		assert.Equal(t, 8080, cfg.Port, "env outranks file")
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})

	t.Run("ArgsOutrankEnv", func(t *testing.T) {
		t.Setenv("BLDR_SERVER_HOST", "from-env")

		type Config struct {
			Host string `prop:"server.host"`
		}

		var cfg Config
		c, err := propbind.NewBuilder().
			WithEnvPrefix("BLDR_").
			WithArgs([]string{"--server.host=from-args"}).
			WithBind(&cfg).
			Build()
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, "from-args", cfg.Host)
	})

	t.Run("MissingFileNotFatal", func(t *testing.T) {
		type Config struct {
			Host string `prop:"server.host,default=fallback"`
		}

		var cfg Config
		c, err := propbind.NewBuilder().
			WithFile(filepath.Join(t.TempDir(), "missing.toml")).
			WithArgs(nil).
			WithBind(&cfg).
			Build()
		require.ErrorIs(t, err, propbind.ErrFileNotFound)
		require.NotNil(t, c, "container is usable despite the missing file")
		defer c.Close()

		assert.Equal(t, "fallback", cfg.Host)
	})

	t.Run("StartFailureIsFatal", func(t *testing.T) {
		type Config struct {
			Host string `prop:"server.host"`
		}

		var cfg Config
		c, err := propbind.NewBuilder().
			WithArgs(nil).
			WithoutEnv().
			WithBind(&cfg).
			Build()
		assert.ErrorIs(t, err, propbind.ErrMissingValue)
		assert.Nil(t, c)
	})

	t.Run("WithoutEnv", func(t *testing.T) {
		t.Setenv("BLDR_SERVER_HOST", "from-env")

		type Config struct {
			Host string `prop:"server.host,default=fallback"`
		}

		var cfg Config
		c, err := propbind.NewBuilder().
			WithEnvPrefix("BLDR_").
			WithoutEnv().
			WithArgs(nil).
			WithBind(&cfg).
			Build()
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, "fallback", cfg.Host)
	})

	t.Run("WithSourceAndRegister", func(t *testing.T) {
		var name string
		c, err := propbind.NewBuilder().
			WithArgs(nil).
			WithSource(propbind.NewMapSource(map[string]string{"app.name": "svc"})).
			WithRegister(propbind.Binding{Name: "app.name"}, &name).
			Build()
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, "svc", name)
	})

	t.Run("WithConverter", func(t *testing.T) {
		type Config struct {
			Port int `prop:"server.port"`
		}

		var cfg Config
		c, err := propbind.NewBuilder().
			WithArgs([]string{"--server.port=xxx"}).
			WithConverter(propbind.Converter(func(raw string) (int, error) {
				return len(raw), nil
			})).
			WithBind(&cfg).
			Build()
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, 3, cfg.Port)
	})

	t.Run("Validators", func(t *testing.T) {
		type Config struct {
			Port int `prop:"server.port,default=80"`
		}

		var cfg Config
		c, err := propbind.NewBuilder().
			WithArgs(nil).
			WithBind(&cfg).
			WithValidator(func(_ *propbind.Container) error {
				if cfg.Port < 1024 {
					return fmt.Errorf("privileged port %d", cfg.Port)
				}
				return nil
			}).
			Build()
		assert.ErrorContains(t, err, "privileged port 80")
		assert.Nil(t, c)
	})

	t.Run("InvalidArgsFatal", func(t *testing.T) {
		c, err := propbind.NewBuilder().
			WithArgs([]string{"--bad!key=1"}).
			Build()
		assert.ErrorIs(t, err, propbind.ErrArgsParse)
		assert.Nil(t, c)
	})
}

func TestMustBuild(t *testing.T) {
	t.Run("PanicsOnStartFailure", func(t *testing.T) {
		type Config struct {
			Host string `prop:"server.host"`
		}
		var cfg Config

		assert.Panics(t, func() {
			propbind.NewBuilder().
				WithArgs(nil).
				WithoutEnv().
				WithBind(&cfg).
				MustBuild()
		})
	})

	t.Run("ToleratesMissingFile", func(t *testing.T) {
		var c *propbind.Container
		assert.NotPanics(t, func() {
			c = propbind.NewBuilder().
				WithArgs(nil).
				WithFile(filepath.Join(t.TempDir(), "absent.toml")).
				MustBuild()
		})
		require.NotNil(t, c)
		c.Close()
	})
}

func TestQuick(t *testing.T) {
	path := writeTempConfig(t, "quick.toml", `
[app]
name = "quick-app"
`)

	type Config struct {
		Name  string                 `prop:"app.name"`
		Debug propbind.Optional[bool] `prop:"app.debug"`
	}

	var cfg Config
	c, err := propbind.Quick(&cfg, "QUICKTEST_", path)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "quick-app", cfg.Name)
	assert.False(t, cfg.Debug.IsPresent())
}

func TestFileDiscovery(t *testing.T) {
	t.Run("CLIFlagWins", func(t *testing.T) {
		path := writeTempConfig(t, "flagged.toml", "k = \"from-flag\"\n")

		type Config struct {
			K string `prop:"k"`
		}

		var cfg Config
		c, err := propbind.NewBuilder().
			WithArgs([]string{"--config", path}).
			WithFileDiscovery(propbind.DefaultDiscoveryOptions("discovertest")).
			WithBind(&cfg).
			Build()
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, "from-flag", cfg.K)
	})

	t.Run("EnvVarSecond", func(t *testing.T) {
		path := writeTempConfig(t, "from-env.toml", "k = \"from-env-path\"\n")
		t.Setenv("DISCOVERTEST_CONFIG", path)

		type Config struct {
			K string `prop:"k"`
		}

		var cfg Config
		c, err := propbind.NewBuilder().
			WithArgs(nil).
			WithFileDiscovery(propbind.DefaultDiscoveryOptions("discovertest")).
			WithBind(&cfg).
			Build()
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, "from-env-path", cfg.K)
	})

	t.Run("SearchPaths", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "discovertest.yaml"), []byte("k: from-search\n"), 0644))

		opts := propbind.DefaultDiscoveryOptions("discovertest")
		opts.Paths = []string{dir}
		opts.UseXDG = false
		opts.UseCurrentDir = false

		type Config struct {
			K string `prop:"k"`
		}

		var cfg Config
		c, err := propbind.NewBuilder().
			WithArgs(nil).
			WithFileDiscovery(opts).
			WithBind(&cfg).
			Build()
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, "from-search", cfg.K)
	})

	t.Run("NothingFoundNotFatal", func(t *testing.T) {
		opts := propbind.DefaultDiscoveryOptions("discovertest-nowhere")
		opts.UseXDG = false
		opts.UseCurrentDir = false

		c, err := propbind.NewBuilder().
			WithArgs(nil).
			WithFileDiscovery(opts).
			Build()
		require.NoError(t, err)
		c.Close()
	})
}
