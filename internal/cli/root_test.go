package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wikichain/internal/ir"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "wikichain", cmd.Use)
	assert.Contains(t, cmd.Long, "AuthorOnly")
	assert.Equal(t, ir.Version, cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"create"}, {"update"}, {"validate"}, {"get"}, {"history"}, {"log"},
		{"export"}, {"import"}, {"replay"}, {"test"}, {"agent", "new"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db", "backend", "agent", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestPageFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"create", "update"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)

		content := sub.Flags().Lookup("content")
		require.NotNil(t, content)
		assert.Equal(t, "c", content.Shorthand)

		perm := sub.Flags().Lookup("permission")
		require.NotNil(t, perm)
		assert.Equal(t, "p", perm.Shorthand)
	}
}

func TestInvalidFormat(t *testing.T) {
	env := newCLIEnv(t, "sqlite")
	_, err := env.run("--format", "xml", "log")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvalidBackend(t *testing.T) {
	env := newCLIEnv(t, "postgres")
	_, err := env.run("log")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid backend")
}

func TestInvalidLogFormat(t *testing.T) {
	env := newCLIEnv(t, "sqlite")
	_, err := env.run("--log-format", "xml", "log")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "from-config.db")
	cfg := filepath.Join(dir, "wikichain.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("database: "+db+"\nagent: agent-cfg\nlog:\n  format: json\n"), 0o644))

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "create", "--content", "x", "--permission", "Others"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(db)
	require.NoError(t, err, "database path should come from the config file")

	// The flag overrides the file.
	cmd = NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "--agent", "agent-flag", "create", "--content", "y", "--permission", "Others"})
	require.NoError(t, cmd.Execute())

	out.Reset()
	cmd = NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "--format", "json", "log"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"author":"agent-cfg"`)
	assert.Contains(t, out.String(), `"author":"agent-flag"`)
}

func TestConfigFileInvalid(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("backend: postgres\n"), 0o644))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "log"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestNewLogger(t *testing.T) {
	for _, format := range ValidLogFormats {
		buf := &bytes.Buffer{}
		logger, err := newLogger(buf, format, 0)
		require.NoError(t, err, format)
		logger.Info("hello", "k", "v")
		assert.Contains(t, buf.String(), "hello", format)
	}

	_, err := newLogger(&bytes.Buffer{}, "xml", 0)
	assert.Error(t, err)
}

func TestAgentNew(t *testing.T) {
	env := newCLIEnv(t, "sqlite")
	first := env.mustRun("agent", "new")
	second := env.mustRun("agent", "new")
	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)

	out := env.mustRun("--format", "json", "agent", "new")
	var data map[string]string
	resp := decodeJSON(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, data["agent"], 36)
}
