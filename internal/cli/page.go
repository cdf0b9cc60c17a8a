package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/wikichain/internal/ir"
	"github.com/roach88/wikichain/internal/validate"
)

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	page := &pageOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a page",
		Long: `Append a new page with no predecessor and print its address.

Examples:
  wikichain create --agent $AGENT --content "Beluga" --permission AuthorOnly
  wikichain create --content "Open notes" --permission Others --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd.Context(), rootOpts, page, cmd)
		},
	}

	cmd.Flags().AddFlagSet(page.flagSet())
	_ = cmd.MarkFlagRequired("permission")

	return cmd
}

func runCreate(ctx context.Context, opts *RootOptions, po *pageOptions, cmd *cobra.Command) error {
	author, err := requireAgent(opts)
	if err != nil {
		return err
	}
	page, err := po.page()
	if err != nil {
		return err
	}

	svc, st, err := openService(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	addr, err := svc.Create(contextOrBackground(ctx), page, author)
	if err != nil {
		return WrapExitError(ExitCommandError, "create failed", err)
	}

	return newFormatter(cmd, opts).Success(map[string]ir.Address{"address": addr}, string(addr))
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	page := &pageOptions{}

	cmd := &cobra.Command{
		Use:   "update <target>",
		Short: "Propose a page that supersedes target",
		Long: `Validate a new page against the page at target and append it if accepted.

The permission that decides is the one stored on target. The --permission
given here only governs later edits of the new page.

Exit codes:
  0 - Update accepted and appended
  1 - Update rejected (nothing appended)
  2 - Command error (bad flags, storage failure)

Examples:
  wikichain update 3f2a... --agent $AGENT --content "Orca" --permission Others`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), rootOpts, page, ir.Address(args[0]), cmd)
		},
	}

	cmd.Flags().AddFlagSet(page.flagSet())
	_ = cmd.MarkFlagRequired("permission")

	return cmd
}

func runUpdate(ctx context.Context, opts *RootOptions, po *pageOptions, target ir.Address, cmd *cobra.Command) error {
	author, err := requireAgent(opts)
	if err != nil {
		return err
	}
	page, err := po.page()
	if err != nil {
		return err
	}

	svc, st, err := openService(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := svc.Update(contextOrBackground(ctx), page, target, author)
	if err != nil {
		return WrapExitError(ExitCommandError, "update failed", err)
	}

	f := newFormatter(cmd, opts)
	if !res.Verdict.Accepted() {
		if err := f.Error(ErrCodeRejected, res.Verdict.Reason, res); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("update rejected: %s", res.Verdict.Reason))
	}
	return f.Success(res, string(res.Address))
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	OpFile string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a serialized update operation",
		Long: `Read an update operation as JSON and print the verdict without appending.

The operation has the form:
  {"page": {"content": "...", "permission": "AuthorOnly|Others"}, "target": "<address>"}

The submitting agent is always --agent; an "author" field in the payload is ignored.

Exit codes:
  0 - Accepted
  1 - Rejected
  2 - Command error (malformed operation, storage failure)

Examples:
  wikichain validate --op op.json --agent $AGENT
  echo '{"page":{...},"target":"..."}' | wikichain validate --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OpFile, "op", "-", "operation file, - for stdin")

	return cmd
}

func runValidate(ctx context.Context, opts *ValidateOptions, cmd *cobra.Command) error {
	author, err := requireAgent(opts.RootOptions)
	if err != nil {
		return err
	}

	payload, err := readInput(cmd, opts.OpFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read operation", err)
	}

	svc, st, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	out, err := validate.ValidateJSON(contextOrBackground(ctx), svc.Validator(), payload, author)
	if errors.Is(err, validate.ErrInvalidOperation) {
		return WrapExitError(ExitCommandError, "invalid operation", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "validation failed", err)
	}
	var verdict ir.Verdict
	if err := json.Unmarshal(out, &verdict); err != nil {
		return WrapExitError(ExitCommandError, "invalid verdict", err)
	}
	opts.logger().Debug("operation validated", "author", author, "verdict", string(out))

	if err := newFormatter(cmd, opts.RootOptions).Success(verdict, verdict.String()); err != nil {
		return err
	}
	if !verdict.Accepted() {
		return NewExitError(ExitFailure, fmt.Sprintf("rejected: %s", verdict.Reason))
	}
	return nil
}

// readInput reads path, or the command's stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// contextOrBackground returns ctx, or context.Background() for commands
// executed without one.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
