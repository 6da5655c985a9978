package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sparql-tui.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:5000", cfg.Service.URL)
	assert.Equal(t, "/api/query", cfg.Service.QueryPath)
	assert.Equal(t, "/api/examples", cfg.Service.ExamplesPath)
	assert.Equal(t, 5*time.Second, cfg.UI.GetNotifyDelay())
	assert.Equal(t, 150, cfg.UI.SnippetLength)
	assert.Equal(t, 10*time.Second, cfg.Gateway.GetTimeout())
	assert.True(t, cfg.Gateway.ShortenURIs)
	assert.Equal(t, DefaultQuery, cfg.UI.DefaultQuery)
	assert.Empty(t, cfg.Path())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  url: http://example.com:8080
  timeout: 5s
ui:
  notify_delay: 2s
gateway:
  examples:
    - "examples/*.yaml"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://example.com:8080", cfg.Service.URL)
	assert.Equal(t, "/api/query", cfg.Service.QueryPath, "unset keys keep defaults")
	assert.Equal(t, 5*time.Second, cfg.Service.GetTimeout())
	assert.Equal(t, 2*time.Second, cfg.UI.GetNotifyDelay())
	assert.Equal(t, []string{"examples/*.yaml"}, cfg.Gateway.Examples)
	assert.Equal(t, path, cfg.Path())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "service:\n  url: http://file.example:1\n")
	t.Setenv("SPARQLTUI_SERVICE__URL", "http://env.example:2")
	t.Setenv("SPARQLTUI_LOG__LEVEL", "debug")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://env.example:2", cfg.Service.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ChangedFlagsWin(t *testing.T) {
	t.Setenv("SPARQLTUI_SERVICE__URL", "http://env.example:2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("service-url", "http://flag-default:3", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--log-level=warn"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "http://env.example:2", cfg.Service.URL, "unchanged flag must not override env")
	assert.Equal(t, "warn", cfg.Log.Level)

	require.NoError(t, flags.Parse([]string{"--service-url=http://flag.example:4"}))
	cfg, err = Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "http://flag.example:4", cfg.Service.URL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad service url", "service:\n  url: localhost:5000\n"},
		{"bad endpoint", "gateway:\n  endpoint: ftp://x/y\n"},
		{"bad duration", "ui:\n  notify_delay: soon\n"},
		{"negative snippet", "ui:\n  snippet_length: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "service.query_path", envKey("SPARQLTUI_SERVICE__QUERY_PATH"))
	assert.Equal(t, "ssh.enabled", envKey("SPARQLTUI_SSH__ENABLED"))
}

func TestDurations_EmptyMeansZero(t *testing.T) {
	assert.Zero(t, SSHConfig{}.GetIdleTimeout())
	assert.Zero(t, ServiceConfig{Timeout: "bogus"}.GetTimeout())
	assert.Equal(t, 5*time.Second, UIConfig{}.GetNotifyDelay())
}
