package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wikichain/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Golden string // golden trace directory
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml|dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios, each against a fresh in-memory store.

With --golden, each scenario's trace is compared with <dir>/<name>.golden;
--update rewrites those files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  wikichain test ./testdata/scenarios
  wikichain test ./testdata/scenarios --filter "scenario_*"
  wikichain test ./testdata/scenarios --golden ./golden --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden trace files")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, path string, cmd *cobra.Command) error {
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	files, err := harness.FindScenarios(path)
	var notFound *harness.ScenarioNotFoundError
	if errors.As(err, &notFound) {
		return WrapExitError(ExitCommandError, "scenarios not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	f := newFormatter(cmd, opts.RootOptions)
	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	if len(files) == 0 {
		return f.Success(result, "No scenarios found.")
	}

	var out io.Writer = io.Discard
	if !f.IsJSON() {
		out = f.Writer
	}
	for _, file := range files {
		sr := runScenario(contextOrBackground(ctx), file, opts, out)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	summary := fmt.Sprintf("\n%d passed, %d failed, %d total", result.Passed, result.Failed, result.Total)
	if err := f.Success(result, summary); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenarios failed", result.Failed))
	}
	return nil
}

// filterScenarios keeps files whose base name (without extension) matches
// the glob pattern. An empty pattern keeps everything.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var kept []string
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, file)
		}
	}
	return kept, nil
}

// runScenario executes a single scenario and returns the result.
func runScenario(ctx context.Context, file string, opts *TestOptions, w io.Writer) ScenarioResult {
	fail := func(name string, errs ...string) ScenarioResult {
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range errs {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return ScenarioResult{Name: name, Pass: false, Errors: errs}
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail(filepath.Base(file), fmt.Sprintf("load error: %v", err))
	}

	result, err := harness.RunContext(ctx, scenario)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution error: %v", err))
	}
	if !result.Pass {
		return fail(scenario.Name, result.Errors...)
	}

	if opts.Golden != "" {
		if err := checkGolden(opts, scenario, result); err != nil {
			return fail(scenario.Name, err.Error())
		}
	}

	fmt.Fprintf(w, "✓ %s\n", scenario.Name)
	opts.logger().Debug("scenario passed", "scenario", scenario.Name, "steps", len(result.Trace))
	return ScenarioResult{Name: scenario.Name, Pass: true}
}

// checkGolden compares (or with --update, writes) the scenario's golden trace.
func checkGolden(opts *TestOptions, scenario *harness.Scenario, result *harness.Result) error {
	trace, err := harness.MarshalTrace(scenario, result)
	if err != nil {
		return fmt.Errorf("render trace: %w", err)
	}
	path := filepath.Join(opts.Golden, scenario.Name+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0o755); err != nil {
			return fmt.Errorf("update golden: %w", err)
		}
		if err := os.WriteFile(path, trace, 0o644); err != nil {
			return fmt.Errorf("update golden: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read golden: %w", err)
	}
	if !bytes.Equal(want, trace) {
		return fmt.Errorf("trace differs from %s", path)
	}
	return nil
}
