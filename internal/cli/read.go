package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wikichain/internal/ir"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <address>",
		Short: "Show the page stored at an address",
		Long: `Print the element stored at address with its metadata.

Exit codes:
  0 - Found
  1 - No element at address
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), rootOpts, ir.Address(args[0]), cmd)
		},
	}
}

func runGet(ctx context.Context, opts *RootOptions, addr ir.Address, cmd *cobra.Command) error {
	svc, st, err := openService(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	e, found, err := svc.Get(contextOrBackground(ctx), addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "lookup failed", err)
	}

	f := newFormatter(cmd, opts)
	if !found {
		if err := f.Error(ErrCodeNotFound, fmt.Sprintf("no element at %s", addr), nil); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("no element at %s", addr))
	}

	text, err := ir.MarshalIndent(e)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render element", err)
	}
	return f.Success(e, string(text))
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <address>",
		Short: "Show the chain of pages ending at an address",
		Long: `Walk predecessor links from address back to the original page, newest first.

The walk stops at the first predecessor this store does not hold.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), rootOpts, ir.Address(args[0]), cmd)
		},
	}
}

func runHistory(ctx context.Context, opts *RootOptions, addr ir.Address, cmd *cobra.Command) error {
	svc, st, err := openService(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	chain, err := svc.History(contextOrBackground(ctx), addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "history failed", err)
	}

	f := newFormatter(cmd, opts)
	if len(chain) == 0 {
		if err := f.Error(ErrCodeNotFound, fmt.Sprintf("no element at %s", addr), nil); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("no element at %s", addr))
	}
	return f.Success(chain, formatElements(chain))
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "log",
		Short:         "List every stored element in append order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			log, err := st.Log(contextOrBackground(cmd.Context()))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read log", err)
			}
			if len(log) == 0 {
				return newFormatter(cmd, rootOpts).Success(log, "No elements stored.")
			}
			return newFormatter(cmd, rootOpts).Success(log, formatElements(log))
		},
	}
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every stored element as JSON lines",
		Long: `Write the log to stdout, one element per line, for 'wikichain import'
on another node. The --format flag does not apply.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			log, err := st.Log(contextOrBackground(cmd.Context()))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read log", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			for _, e := range log {
				if err := enc.Encode(e); err != nil {
					return WrapExitError(ExitCommandError, "failed to write element", err)
				}
			}
			return nil
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import elements exported from another store",
		Long: `Read elements written by 'wikichain export' and store them with their
original author and chain position. Each element's address is recomputed
and must match. Imported updates are not validated; run 'wikichain replay'
to check them against this store.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runImport(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx = contextOrBackground(ctx)
	f := newFormatter(cmd, opts)
	dec := json.NewDecoder(bytes.NewReader(data))
	n := 0
	for {
		var e ir.Element
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("element %d", n+1), err)
		}
		if err := st.Import(ctx, e); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("element %d", n+1), err)
		}
		n++
		f.VerboseLog("imported %s (author %s, position %d)", e.Address, e.Author, e.AuthorSeq)
	}

	opts.logger().Info("import finished", "elements", n)
	return f.Success(map[string]int{"imported": n}, fmt.Sprintf("Imported %d elements.", n))
}

// formatElements renders one line per element: seq, address, author,
// permission, target and content.
func formatElements(elements []ir.Element) string {
	var b strings.Builder
	for i, e := range elements {
		if i > 0 {
			b.WriteByte('\n')
		}
		target := "-"
		if e.Target != "" {
			target = shortAddress(e.Target)
		}
		fmt.Fprintf(&b, "%4d  %s  %-12s  %-10s  <- %-12s  %q",
			e.Seq, shortAddress(e.Address), e.Author, e.Page.Permission, target, e.Page.Content)
	}
	return b.String()
}

func shortAddress(addr ir.Address) string {
	if len(addr) > 12 {
		return string(addr[:12])
	}
	return string(addr)
}
