package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Storage.Backend)
	assert.Nil(t, cfg.Evaluation.Template)

	_, err = LoadConfig("")
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[storage]
backend = "redis"
redis-addr = "cache:6379"
redis-prefix = "eval:"

[evaluation]
template = "master"

[output]
color = "never"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Storage.Backend)
	assert.Equal(t, "redis", *cfg.Storage.Backend)
	assert.Equal(t, "cache:6379", *cfg.Storage.RedisAddr)
	assert.Equal(t, "eval:", *cfg.Storage.RedisPrefix)
	assert.Nil(t, cfg.Storage.Path)
	assert.Equal(t, "master", *cfg.Evaluation.Template)
	assert.Equal(t, ColorNever, *cfg.Output.Color)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "[storage]\nbackend = \"sqlite\"\ndriver = \"x\"\n"},
		{name: "unknown backend", content: "[storage]\nbackend = \"postgres\"\n"},
		{name: "bad color", content: "[output]\ncolor = \"sometimes\"\n"},
		{name: "syntax", content: "[storage\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	assert.Equal(t, filepath.Join("/tmp/cfg", "evalapp", "config.toml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join("/tmp/data", "evalapp", "evalapp.db"), DefaultDBPath())
}

func TestXDGPathsFallBackToHome(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{name: "unset", env: ""},
		{name: "relative", env: "relative/dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", "/home/eva")
			t.Setenv("XDG_CONFIG_HOME", tt.env)
			t.Setenv("XDG_DATA_HOME", tt.env)
			assert.Equal(t, "/home/eva/.config/evalapp/config.toml", DefaultConfigPath())
			assert.Equal(t, "/home/eva/.local/share/evalapp/evalapp.db", DefaultDBPath())
		})
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/eva")
	assert.Equal(t, "/home/eva/data/x.db", ExpandHome("~/data/x.db"))
	assert.Equal(t, "/srv/x.db", ExpandHome("/srv/x.db"))
	assert.Equal(t, "~eva/x.db", ExpandHome("~eva/x.db"))
}
