// File: propbind/doc.go

// Package propbind binds configuration properties to consumption points:
// struct fields or explicitly registered targets that receive a configured
// value resolved across multiple sources with ordinal precedence.
//
// Features:
//   - Declarative binding markers via struct tags: `prop:"name,default=..."`
//   - Multiple configuration sources ranked by ordinal (args, env, file, map)
//   - Automatic key derivation from the enclosing type and field name
//   - Default literals ranked below every real source
//   - Fail-fast startup validation for mandatory targets
//   - Optional[T] targets for absent-is-fine properties
//   - Provider[T] targets re-resolved on every access
//   - Converter dispatch for common Go types, custom converters registrable
//   - File sources in TOML, JSON, YAML and key=value properties format
//   - Poll-based file reloading so providers track live values
//
// Quick Start:
//
//	type AppConfig struct {
//	    Host    string                    `prop:"server.host,default=localhost"`
//	    Port    int                       `prop:"server.port,default=8080"`
//	    Retries propbind.Optional[int]    `prop:"server.retries"`
//	    Token   propbind.Provider[string] `prop:"server.token"`
//	}
//
//	var cfg AppConfig
//	c := propbind.MustQuick(&cfg, "MYAPP_", "config.toml")
//	defer c.Close()
//
// Resolution rules follow a strict contract: the highest-ordinal source that
// defines a key decides its outcome, even when the value it supplies is
// empty. An empty override masks lower-ordinal values and the default
// literal alike; whether that counts as an error depends only on whether the
// target is mandatory.
//
// Default Ordinals (highest wins):
//  1. 500 MapSource (programmatic)
//  2. 400 ArgsSource (--server.port=9090)
//  3. 300 EnvSource (MYAPP_SERVER_PORT=9090)
//  4. 100 FileSource (config.toml)
//  5. default literals rank below all sources
//
// Thread Safety:
// Bindings are immutable metadata. The source registry uses read-write
// mutexes so providers can re-resolve concurrently with file reloads.
package propbind
