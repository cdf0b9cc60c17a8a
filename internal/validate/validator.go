package validate

import (
	"context"
	"log/slog"

	"github.com/roach88/wikichain/internal/ir"
)

// Resolver looks up a stored element by address.
// found is false with a nil error when the address is unknown.
type Resolver interface {
	Resolve(ctx context.Context, addr ir.Address) (ir.Element, bool, error)
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for verdict diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// Validator judges update operations against the records a Resolver holds.
//
// Thread-safety: a Validator holds no mutable state and is safe for
// concurrent use if its Resolver is.
type Validator struct {
	resolver Resolver
	logger   *slog.Logger
}

// New creates a validator reading predecessors from r.
func New(r Resolver, opts ...Option) *Validator {
	v := &Validator{
		resolver: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns the verdict for op.
//
// The returned error is non-nil only when the store failed; it is then a
// *ir.StorageError and the verdict is the zero value.
func (v *Validator) Validate(ctx context.Context, op ir.UpdateOperation) (ir.Verdict, error) {
	pred, found, err := v.resolver.Resolve(ctx, op.Target)
	if err != nil {
		v.logger.Error("predecessor lookup failed",
			"target", op.Target,
			"error", err,
		)
		return ir.Verdict{}, &ir.StorageError{Op: "resolve", Address: op.Target, Err: err}
	}
	if !found {
		v.logger.Debug("update rejected",
			"target", op.Target,
			"author", op.Author,
			"reason", ir.ReasonPredecessorNotFound,
		)
		return ir.Reject(ir.ReasonPredecessorNotFound), nil
	}

	verdict := Decide(pred, op.Author)
	if verdict.Accepted() {
		v.logger.Debug("update accepted",
			"target", op.Target,
			"author", op.Author,
			"permission", permissionName(pred.Page.Permission),
		)
	} else {
		v.logger.Debug("update rejected",
			"target", op.Target,
			"author", op.Author,
			"predecessor_author", pred.Author,
			"reason", verdict.Reason,
		)
	}
	return verdict, nil
}

// Decide applies the permission rule to a resolved predecessor.
// It performs no I/O: every node holding pred reaches the same verdict.
func Decide(pred ir.Element, author ir.AgentID) ir.Verdict {
	switch pred.Page.Permission.(type) {
	case ir.AuthorOnly:
		if author == pred.Author {
			return ir.Accept()
		}
		return ir.Reject(ir.ReasonAuthorOnly)
	case ir.Others:
		return ir.Accept()
	default:
		return ir.Reject(ir.ReasonUnknownPermission)
	}
}

func permissionName(p ir.Permission) string {
	if p == nil {
		return "<unset>"
	}
	return p.String()
}
