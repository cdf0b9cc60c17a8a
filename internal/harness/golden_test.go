package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioDir = "../../testdata/scenarios"

// TestScenarioGoldens runs every scenario shipped in testdata and compares
// its trace with the checked-in golden file.
func TestScenarioGoldens(t *testing.T) {
	files, err := FindScenarios(scenarioDir)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		name := filepath.Base(path)
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err, "failed to load scenario from %s", path)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario should pass: errors=%v", result.Errors)
		})
	}
}

// Running the same scenario twice must produce byte-identical traces.
func TestScenarioDeterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join(scenarioDir, "chain_one_hop.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalTrace(scenario, first)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

// The same steps produce the same trace on every backend.
func TestScenarioBackendsAgree(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join(scenarioDir, "relax_lock.yaml"))
	require.NoError(t, err)

	var traces [][]TraceEvent
	for _, backend := range []string{BackendSQLite, BackendBadger, BackendMemory} {
		s := *scenario
		s.Backend = backend
		result, err := Run(&s)
		require.NoError(t, err, backend)
		require.True(t, result.Pass, "%s: %v", backend, result.Errors)
		traces = append(traces, result.Trace)
	}
	assert.Equal(t, traces[0], traces[1])
	assert.Equal(t, traces[0], traces[2])
}

func TestMarshalTrace_Canonical(t *testing.T) {
	scenario := &Scenario{Name: "tiny"}
	result := NewResult()
	result.AddTrace(TraceEvent{Step: 0, Op: OpCreate, Agent: "alice", Content: "<b>", Permission: "Others", Outcome: "accept", Seq: 1})

	got, err := MarshalTrace(scenario, result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"tiny","trace":[{"agent":"alice","content":"<b>","op":"create","outcome":"accept","permission":"Others","seq":1,"step":0}]}`,
		string(got))
}
