// File: propbind/example/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"propbind"
)

// AppConfig declares the application's consumption points. Tagged fields
// are bound at startup; the Provider field re-resolves on every access.
type AppConfig struct {
	Host     string                    `prop:"server.host,default=localhost"`
	Port     int                       `prop:"server.port,default=8080"`
	Timeout  time.Duration             `prop:"server.timeout,default=30s"`
	Retries  propbind.Optional[int]    `prop:"server.retries"`
	LogLevel propbind.Provider[string] `prop:"log.level,default=info"`
}

const configFilePath = "example_config.toml"

func main() {
	log.Println("➡️  Writing initial configuration file...")
	initial := `
[server]
host = "0.0.0.0"
port = 9090

[log]
level = "debug"
`
	if err := os.WriteFile(configFilePath, []byte(initial), 0644); err != nil {
		log.Fatal(err)
	}
	defer os.Remove(configFilePath)

	var cfg AppConfig
	c, err := propbind.NewBuilder().
		WithEnvPrefix("EXAMPLE_").
		WithFile(configFilePath).
		WithBind(&cfg).
		WithAutoReload(propbind.WatchOptions{
			PollInterval: 100 * time.Millisecond,
			Debounce:     50 * time.Millisecond,
		}).
		Build()
	if err != nil {
		log.Fatalf("startup validation failed: %v", err)
	}
	defer c.Close()

	fmt.Printf("host=%s port=%d timeout=%s\n", cfg.Host, cfg.Port, cfg.Timeout)
	fmt.Printf("retries set: %v (fallback %d)\n", cfg.Retries.IsPresent(), cfg.Retries.OrElse(3))
	fmt.Printf("log level now: %s\n", cfg.LogLevel.MustGet())

	log.Println("➡️  Updating log.level on disk...")
	updated := `
[server]
host = "0.0.0.0"
port = 9090

[log]
level = "warn"
`
	if err := os.WriteFile(configFilePath, []byte(updated), 0644); err != nil {
		log.Fatal(err)
	}

	// Wait for the watcher to pick up the change.
	time.Sleep(500 * time.Millisecond)
	fmt.Printf("log level after reload: %s\n", cfg.LogLevel.MustGet())

	fmt.Print(c.Debug())
}
