package cli

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wikichain/internal/validate"
)

// ReplayResult holds the replay outcome.
type ReplayResult struct {
	validate.ReplayReport
	Deterministic bool `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Re-validate every stored update and verify determinism",
		Long: `Re-validate every update in the log against the predecessor the store
holds now. The log is replayed twice and the two reports must match.

Updates appended through this node always pass. A failure means an imported
element was accepted elsewhere under a rule this node does not agree with.

Exit codes:
  0 - Every update validates and both replays agree
  1 - An update fails validation or the replays differ
  2 - Command error (database not found, storage failure)

Examples:
  wikichain replay --db ./wikichain.db
  wikichain replay --backend badger --db ./data --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runReplay(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	ctx = contextOrBackground(ctx)

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	log, err := st.Log(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}

	f := newFormatter(cmd, opts)
	f.VerboseLog("replaying %d elements twice", len(log))

	first, err := validate.Replay(ctx, st, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}
	second, err := validate.Replay(ctx, st, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{
		ReplayReport:  first,
		Deterministic: reflect.DeepEqual(first, second),
	}
	opts.logger().Debug("replay finished",
		"updates", first.Updates,
		"rejected", first.Rejected,
		"deterministic", result.Deterministic,
	)

	switch {
	case !result.Deterministic:
		if err := f.Error(ErrCodeReplay, "replay is not deterministic", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "replay is not deterministic")
	case !first.OK():
		if err := f.Error(ErrCodeReplay, fmt.Sprintf("%d stored updates fail validation", first.Rejected), result); err != nil {
			return err
		}
		if !f.IsJSON() {
			fmt.Fprintln(f.Writer, formatRejections(first))
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d stored updates fail validation", first.Rejected))
	}

	return f.Success(result, fmt.Sprintf("✓ %d creates, %d updates replayed; all accepted, deterministic",
		first.Creates, first.Updates))
}

func formatRejections(report validate.ReplayReport) string {
	var lines []string
	for _, ev := range report.Rejections() {
		lines = append(lines, fmt.Sprintf("✗ %s by %s -> %s: %s",
			shortAddress(ev.Address), ev.Author, shortAddress(ev.Target), ev.Verdict.Reason))
	}
	return strings.Join(lines, "\n")
}
