// internal/config/config.go
// Loads the daemon configuration file and resolves the socket path.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/erilali/circd/internal/logger"
)

const (
	DefaultPort = 6667

	socketDir      = ".circd"
	socketName     = "circd-socket"
	fallbackSocket = "/tmp/circd-socket"
)

// ConfigError reports a missing or invalid configuration. It is fatal at
// startup.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectionConfig describes the chat server connection.
type ConnectionConfig struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Nickname string `json:"nickname"`
	Realname string `json:"realname"`
}

// HostPort returns the dial address.
func (c ConnectionConfig) HostPort() string {
	return c.Address + ":" + strconv.Itoa(c.Port)
}

// Duration decodes from a Go duration string such as "5s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

type Config struct {
	ConnectionConfig

	// SocketPath overrides the default socket location when set.
	SocketPath string `json:"socket_path"`
	// NatsURL enables the message archive when set.
	NatsURL string `json:"nats_url"`
	// MonitorAddr enables the HTTP monitor when set, e.g. "127.0.0.1:8080".
	MonitorAddr string `json:"monitor_addr"`
	// RPCTimeout bounds each socket round trip. Zero disables it.
	RPCTimeout Duration `json:"rpc_timeout"`

	Log logger.LogConfig `json:"log"`
}

// Default returns a config with every optional field filled in.
func Default() Config {
	return Config{
		ConnectionConfig: ConnectionConfig{Port: DefaultPort},
		Log:              logger.DefaultLogConfig(),
	}
}

// Load reads a JSON config file. Comments and trailing commas are allowed.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{Path: path, Err: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, &ConfigError{Path: path, Err: err}
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.NatsURL = url
	}
	return cfg, nil
}

// Parse decodes and validates config data.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if cfg.Realname == "" {
		cfg.Realname = cfg.Nickname
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields required to connect.
func (c Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Nickname == "" {
		return fmt.Errorf("nickname is required")
	}
	if c.RPCTimeout < 0 {
		return fmt.Errorf("rpc_timeout must not be negative")
	}
	return nil
}

// ResolveSocketPath returns the configured socket path, or the default for
// home when none is set.
func (c Config) ResolveSocketPath(home string) string {
	if c.SocketPath != "" {
		return c.SocketPath
	}
	return SocketPath(home)
}

// SocketPath returns $HOME/.circd/circd-socket, or /tmp/circd-socket when
// home is empty.
func SocketPath(home string) string {
	if home == "" {
		return fallbackSocket
	}
	return filepath.Join(home, socketDir, socketName)
}
