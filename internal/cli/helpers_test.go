package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testAlice = "agent-alice"
	testBob   = "agent-bob"
)

// cliEnv runs commands through the root command against one temp database.
type cliEnv struct {
	t      *testing.T
	db     string
	extra  []string
	stdin  string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newCLIEnv(t *testing.T, backend string) *cliEnv {
	t.Helper()
	name := "test.db"
	if backend == "badger" {
		name = "data"
	}
	return &cliEnv{
		t:     t,
		db:    filepath.Join(t.TempDir(), name),
		extra: []string{"--backend", backend},
	}
}

// run executes args and returns stdout and the command error.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	e.stdout = &bytes.Buffer{}
	e.stderr = &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)
	cmd.SetIn(strings.NewReader(e.stdin))
	cmd.SetArgs(append(append([]string{"--db", e.db}, e.extra...), args...))

	err := cmd.Execute()
	return e.stdout.String(), err
}

// mustRun executes args and fails the test on error.
func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "stdout=%s stderr=%s", out, e.stderr.String())
	return strings.TrimSpace(out)
}

// decodeJSON parses a CLIResponse and returns its data re-encoded into v.
func decodeJSON(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil && resp.Data != nil {
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, v))
	}
	return resp
}
