// Package config loads configuration from defaults, a YAML file, the
// environment and command-line flags.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates nesting levels: SPARQLTUI_SERVICE__URL sets service.url.
const EnvPrefix = "SPARQLTUI_"

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "sparql-tui.yaml"

// DefaultQuery is the query the editor starts with.
const DefaultQuery = `PREFIX uni: <http://example.org/university#>
SELECT ?student ?courseTitle ?semester ?year
WHERE {
  ?student uni:hasEnrollment ?enrollment .
  ?enrollment uni:enrolledInCourse ?course ;
              uni:semester ?semester ;
              uni:year ?year .
  ?course uni:courseTitle ?courseTitle .
}`

// Config represents the application configuration.
type Config struct {
	Service ServiceConfig `koanf:"service"`
	UI      UIConfig      `koanf:"ui"`
	Gateway GatewayConfig `koanf:"gateway"`
	SSH     SSHConfig     `koanf:"ssh"`
	Log     LogConfig     `koanf:"log"`

	// path of the config file that was read, if any
	path string
}

// ServiceConfig locates the query service the clients talk to.
type ServiceConfig struct {
	URL          string `koanf:"url"`
	QueryPath    string `koanf:"query_path"`
	ExamplesPath string `koanf:"examples_path"`
	Timeout      string `koanf:"timeout"`
}

// UIConfig holds settings shared by the interactive surfaces.
type UIConfig struct {
	NotifyDelay   string `koanf:"notify_delay"`
	DefaultQuery  string `koanf:"default_query"`
	SnippetLength int    `koanf:"snippet_length"`
	HistoryLimit  int    `koanf:"history_limit"`
}

// GatewayConfig configures the HTTP gateway in front of a SPARQL endpoint.
type GatewayConfig struct {
	Listen      string   `koanf:"listen"`
	Endpoint    string   `koanf:"endpoint"`
	Timeout     string   `koanf:"timeout"`
	Examples    []string `koanf:"examples"`
	ShortenURIs bool     `koanf:"shorten_uris"`
}

// SSHConfig contains SSH server configuration.
type SSHConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Listen      string `koanf:"listen"`
	HostKeyPath string `koanf:"host_key_path"`
	IdleTimeout string `koanf:"idle_timeout"`
	MaxTimeout  string `koanf:"max_timeout"`
}

// LogConfig selects the log level and destination.
type LogConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

func defaults() map[string]any {
	return map[string]any{
		"service.url":           "http://localhost:5000",
		"service.query_path":    "/api/query",
		"service.examples_path": "/api/examples",
		"service.timeout":       "60s",

		"ui.notify_delay":   "5s",
		"ui.default_query":  DefaultQuery,
		"ui.snippet_length": 150,
		"ui.history_limit":  100,

		"gateway.listen":       ":5000",
		"gateway.endpoint":     "http://localhost:3030/university/query",
		"gateway.timeout":      "10s",
		"gateway.examples":     []string{},
		"gateway.shorten_uris": true,

		"ssh.enabled":       false,
		"ssh.listen":        ":2222",
		"ssh.host_key_path": ".sparql-tui/host_key",
		"ssh.idle_timeout":  "30m",
		"ssh.max_timeout":   "24h",

		"log.level": "info",
		"log.file":  "",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"service-url":     "service.url",
	"service-timeout": "service.timeout",
	"log-level":       "log.level",
	"log-file":        "log.file",
	"listen":          "gateway.listen",
	"endpoint":        "gateway.endpoint",
	"examples":        "gateway.examples",
	"ssh":             "ssh.enabled",
	"ssh-listen":      "ssh.listen",
	"host-key":        "ssh.host_key_path",
	"notify-delay":    "ui.notify_delay",
}

// DefaultConfig returns a configuration with sensible defaults, ignoring
// files, environment and flags.
func DefaultConfig() *Config {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(defaults(), "."), nil)

	var cfg Config
	_ = k.Unmarshal("", &cfg)
	return &cfg
}

// Load builds the configuration. Precedence, highest first: changed flags,
// environment, config file, defaults. An empty path falls back to DefaultFile
// when it exists.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" && flags != nil {
		if f := flags.Lookup("config"); f != nil {
			path = f.Value.String()
		}
	}
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns SPARQLTUI_SERVICE__QUERY_PATH into service.query_path.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Path returns the config file that was read, or "" when only defaults,
// environment and flags were used.
func (c *Config) Path() string {
	return c.path
}

// Validate checks URLs and durations.
func (c *Config) Validate() error {
	if err := validateURL("service.url", c.Service.URL); err != nil {
		return err
	}
	if err := validateURL("gateway.endpoint", c.Gateway.Endpoint); err != nil {
		return err
	}

	durations := []struct {
		key, value string
	}{
		{"service.timeout", c.Service.Timeout},
		{"ui.notify_delay", c.UI.NotifyDelay},
		{"gateway.timeout", c.Gateway.Timeout},
		{"ssh.idle_timeout", c.SSH.IdleTimeout},
		{"ssh.max_timeout", c.SSH.MaxTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", d.key, d.value)
		}
	}

	if c.UI.SnippetLength < 0 {
		return fmt.Errorf("ui.snippet_length must not be negative")
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url for %s: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url for %s: %q", key, raw)
	}
	return nil
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// GetTimeout returns the HTTP timeout for service calls. Zero means none.
func (s ServiceConfig) GetTimeout() time.Duration {
	return parseDuration(s.Timeout)
}

// GetNotifyDelay returns how long a notification stays visible.
func (u UIConfig) GetNotifyDelay() time.Duration {
	if d := parseDuration(u.NotifyDelay); d > 0 {
		return d
	}
	return 5 * time.Second
}

// GetTimeout returns the upstream timeout for SPARQL endpoint calls.
func (g GatewayConfig) GetTimeout() time.Duration {
	return parseDuration(g.Timeout)
}

// GetIdleTimeout returns the SSH idle timeout.
func (s SSHConfig) GetIdleTimeout() time.Duration {
	return parseDuration(s.IdleTimeout)
}

// GetMaxTimeout returns the SSH max session duration.
func (s SSHConfig) GetMaxTimeout() time.Duration {
	return parseDuration(s.MaxTimeout)
}
