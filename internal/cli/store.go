package cli

import (
	"context"
	"fmt"

	"github.com/roach88/wikichain/internal/config"
	"github.com/roach88/wikichain/internal/ir"
	"github.com/roach88/wikichain/internal/kvstore"
	"github.com/roach88/wikichain/internal/store"
	"github.com/roach88/wikichain/internal/wiki"
)

// recordStore is what the commands need from a backend. Both store.Store
// and kvstore.Store satisfy it.
type recordStore interface {
	wiki.RecordStore
	Successors(ctx context.Context, addr ir.Address) ([]ir.Element, error)
	Log(ctx context.Context) ([]ir.Element, error)
	Import(ctx context.Context, e ir.Element) error
	Close() error
}

var (
	_ recordStore = (*store.Store)(nil)
	_ recordStore = (*kvstore.Store)(nil)
)

// openStore opens the configured backend. An empty backend means sqlite.
func openStore(opts *RootOptions) (recordStore, error) {
	if opts.Database == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set database in the config file")
	}

	switch opts.Backend {
	case "", config.BackendSQLite:
		st, err := store.Open(opts.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return st, nil
	case config.BackendBadger:
		st, err := kvstore.Open(kvstore.Options{Dir: opts.Database, SyncWrites: true})
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return st, nil
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid backend %q: must be one of %v", opts.Backend, ValidBackends))
	}
}

// openService opens the store and wraps it in the append API.
// The caller closes the returned store.
func openService(opts *RootOptions) (*wiki.Service, recordStore, error) {
	st, err := openStore(opts)
	if err != nil {
		return nil, nil, err
	}
	return wiki.NewService(st, wiki.WithLogger(opts.logger())), st, nil
}

// requireAgent returns the submitting agent or a command error.
func requireAgent(opts *RootOptions) (ir.AgentID, error) {
	if opts.Agent == "" {
		return "", NewExitError(ExitCommandError,
			"no agent identity: pass --agent or set agent in the config file (create one with 'wikichain agent new')")
	}
	return ir.AgentID(opts.Agent), nil
}
