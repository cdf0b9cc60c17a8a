// Package wiki is the append API for wiki pages: create a page, or propose an
// update that is validated against its predecessor before it is stored.
package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/wikichain/internal/ir"
	"github.com/roach88/wikichain/internal/validate"
)

// ErrInvalidRecord is returned before any store call when a record is
// missing its author or permission, or carries text that is not valid UTF-8.
var ErrInvalidRecord = errors.New("invalid record")

// RecordStore is the storage a Service needs.
type RecordStore interface {
	validate.Resolver
	Append(ctx context.Context, rec ir.NewRecord) (ir.Address, error)
	History(ctx context.Context, addr ir.Address) ([]ir.Element, error)
}

// UpdateResult is the outcome of Update. Address is set only when the
// verdict accepted and the new page was appended.
type UpdateResult struct {
	Address ir.Address `json:"address,omitempty"`
	Verdict ir.Verdict `json:"verdict"`
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger. The validator logs through it too.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service creates and updates pages in a RecordStore.
type Service struct {
	store     RecordStore
	validator *validate.Validator
	logger    *slog.Logger
}

// NewService creates a service over store.
func NewService(store RecordStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = validate.New(store, validate.WithLogger(s.logger))
	return s
}

// Validator returns the validator the service runs updates through.
func (s *Service) Validator() *validate.Validator {
	return s.validator
}

// Create appends page with no predecessor and returns its address.
// Content is stored in NFC.
func (s *Service) Create(ctx context.Context, page ir.WikiPage, author ir.AgentID) (ir.Address, error) {
	page, err := checkRecord(page, author)
	if err != nil {
		return "", err
	}

	addr, err := s.store.Append(ctx, ir.NewRecord{Page: page, Author: author})
	if err != nil {
		return "", &ir.StorageError{Op: "append", Err: err}
	}

	s.logger.Info("page created",
		"address", addr,
		"author", author,
		"permission", page.Permission.String(),
	)
	return addr, nil
}

// Update validates page as a successor of target and appends it on accept.
// A rejection is reported in the result with a nil error and nothing is
// appended. A non-nil error means the update could not be evaluated or
// stored. An empty target resolves to nothing and is rejected like any
// other unknown address.
func (s *Service) Update(ctx context.Context, page ir.WikiPage, target ir.Address, author ir.AgentID) (UpdateResult, error) {
	page, err := checkRecord(page, author)
	if err != nil {
		return UpdateResult{}, err
	}

	verdict, err := s.validator.Validate(ctx, ir.UpdateOperation{
		Page:   page,
		Target: target,
		Author: author,
	})
	if err != nil {
		return UpdateResult{}, err
	}
	if !verdict.Accepted() {
		s.logger.Info("update rejected",
			"target", target,
			"author", author,
			"reason", verdict.Reason,
		)
		return UpdateResult{Verdict: verdict}, nil
	}

	addr, err := s.store.Append(ctx, ir.NewRecord{Page: page, Author: author, Target: target})
	if err != nil {
		return UpdateResult{}, &ir.StorageError{Op: "append", Address: target, Err: err}
	}

	s.logger.Info("page updated",
		"address", addr,
		"target", target,
		"author", author,
	)
	return UpdateResult{Address: addr, Verdict: verdict}, nil
}

// Get returns the element at addr. found is false when it is unknown.
func (s *Service) Get(ctx context.Context, addr ir.Address) (ir.Element, bool, error) {
	e, found, err := s.store.Resolve(ctx, addr)
	if err != nil {
		return ir.Element{}, false, &ir.StorageError{Op: "resolve", Address: addr, Err: err}
	}
	return e, found, nil
}

// History returns the chain ending at addr, newest first.
func (s *Service) History(ctx context.Context, addr ir.Address) ([]ir.Element, error) {
	chain, err := s.store.History(ctx, addr)
	if err != nil {
		return nil, &ir.StorageError{Op: "history", Address: addr, Err: err}
	}
	return chain, nil
}

// checkRecord returns page with its content normalized to NFC.
func checkRecord(page ir.WikiPage, author ir.AgentID) (ir.WikiPage, error) {
	if author == "" {
		return ir.WikiPage{}, fmt.Errorf("%w: author is required", ErrInvalidRecord)
	}
	if err := ir.CheckText(string(author)); err != nil {
		return ir.WikiPage{}, fmt.Errorf("%w: author: %w", ErrInvalidRecord, err)
	}
	if page.Permission == nil {
		return ir.WikiPage{}, fmt.Errorf("%w: permission is required", ErrInvalidRecord)
	}
	page, err := page.Normalized()
	if err != nil {
		return ir.WikiPage{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return page, nil
}
