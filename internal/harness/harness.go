package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/wikichain/internal/ir"
	"github.com/roach88/wikichain/internal/kvstore"
	"github.com/roach88/wikichain/internal/store"
	"github.com/roach88/wikichain/internal/testutil"
	"github.com/roach88/wikichain/internal/wiki"
)

// scenarioStore is what a scenario needs from its backend.
type scenarioStore interface {
	wiki.RecordStore
	Successors(ctx context.Context, addr ir.Address) ([]ir.Element, error)
	Log(ctx context.Context) ([]ir.Element, error)
	Close() error
}

// Harness executes the steps of one scenario.
type Harness struct {
	store   scenarioStore
	service *wiki.Service
	agents  *testutil.DeterministicAgents
	labels  map[string]ir.Address
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory store for isolation, and agent
// aliases map to deterministic ids, so the same scenario always yields the
// same addresses and trace.
//
// Execution flow:
// 1. Open a fresh store for the scenario's backend
// 2. Execute steps, checking each verdict against its expect clause
// 3. Evaluate assertions against the final store
// 4. Return result with pass/fail, trace, and errors
//
// A returned error means the scenario could not be executed (storage
// failure, unknown backend), not that it failed.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := openBackend(scenario.Backend)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store:   st,
		service: wiki.NewService(st, wiki.WithLogger(logger)),
		agents:  testutil.NewDeterministicAgents(),
		labels:  make(map[string]ir.Address),
		logger:  logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{
		Ctx:    ctx,
		Store:  st,
		Labels: h.labels,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func openBackend(name string) (scenarioStore, error) {
	switch name {
	case "", BackendSQLite:
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		return st, nil
	case BackendBadger:
		st, err := kvstore.Open(kvstore.Options{InMemory: true})
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory badger store: %w", err)
		}
		return st, nil
	case BackendMemory:
		return testutil.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

// executeStep runs one step, records it in the trace and checks its
// expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	page, err := step.Page.WikiPage()
	if err != nil {
		return err
	}
	author := h.agents.ID(step.As)

	var (
		verdict ir.Verdict
		addr    ir.Address
	)
	switch step.Op {
	case OpCreate:
		addr, err = h.service.Create(ctx, page, author)
		verdict = ir.Accept()
	case OpUpdate:
		var res wiki.UpdateResult
		res, err = h.service.Update(ctx, page, h.resolveTarget(step.Target), author)
		verdict, addr = res.Verdict, res.Address
	case OpValidate:
		verdict, err = h.service.Validator().Validate(ctx, ir.UpdateOperation{
			Page:   page,
			Target: h.resolveTarget(step.Target),
			Author: author,
		})
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if err != nil {
		return err
	}

	ev := TraceEvent{
		Step:       i,
		Op:         step.Op,
		Agent:      step.As,
		Content:    step.Page.Content,
		Permission: step.Page.Permission,
		Target:     step.Target,
		Outcome:    string(verdict.Outcome),
		Reason:     verdict.Reason,
	}

	if addr != "" {
		e, found, err := h.store.Resolve(ctx, addr)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("appended element %s not found", addr)
		}
		ev.Seq = e.Seq
		if step.Save != "" {
			h.labels[step.Save] = addr
			ev.Saved = step.Save
		}
	}
	result.AddTrace(ev)

	if want := step.Expect.Verdict(); verdict != want {
		result.AddError(fmt.Sprintf("step %d (%s as %s): expected %s, got %s", i, step.Op, step.As, want, verdict))
	}

	h.logger.Info("step completed",
		"step", i,
		"op", step.Op,
		"agent", author,
		"verdict", verdict.String(),
		"address", addr,
	)
	return nil
}

// resolveTarget maps a saved label to its address; anything else is taken
// as a literal address.
func (h *Harness) resolveTarget(target string) ir.Address {
	if addr, ok := h.labels[target]; ok {
		return addr
	}
	return ir.Address(target)
}
