package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, Config{
		Database: "wikichain.db",
		Backend:  BackendSQLite,
		Log:      Log{Level: "info", Format: "text"},
	}, cfg)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wikichain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database: /var/lib/wikichain
backend: badger
agent: agent-0001
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/wikichain", cfg.Database)
	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "agent-0001", cfg.Agent)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown backend", "backend: postgres\n"},
		{"unknown key", "databse: x.db\n"},
		{"unknown log level", "log:\n  level: trace\n"},
		{"unknown log format", "log:\n  format: xml\n"},
		{"empty agent", "agent: \"\"\n"},
		{"wrong type", "database: 42\n"},
		{"not yaml", "database: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, Log{Level: name}.SlogLevel(), name)
	}
}
