package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/wikichain/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s as %s -> %s", ev.Step, ev.Op, ev.Agent, ev.Outcome)
		if ev.Reason != "" {
			fmt.Fprintf(&buf, " (%s)", ev.Reason)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// AssertionContext gives assertions access to the final store.
type AssertionContext struct {
	Ctx    context.Context
	Store  scenarioStore
	Labels map[string]ir.Address
}

func (a *AssertionContext) label(name string) (ir.Address, error) {
	addr, ok := a.Labels[name]
	if !ok {
		return "", fmt.Errorf("unknown label %q", name)
	}
	return addr, nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertVerdictCount:
			err = assertVerdictCount(result.Trace, assertion)
		case AssertLogCount, AssertHistory, AssertSuccessors:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a store", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertLogCount:
				err = assertLogCount(actx, result.Trace, assertion)
			case AssertHistory:
				err = assertHistory(actx, result.Trace, assertion)
			case AssertSuccessors:
				err = assertSuccessors(actx, result.Trace, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertVerdictCount checks how many steps produced the given outcome.
func assertVerdictCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Outcome == assertion.Outcome {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertVerdictCount,
			Expected: fmt.Sprintf("%d %s verdicts", assertion.Count, assertion.Outcome),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertLogCount checks the number of stored elements.
func assertLogCount(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	log, err := actx.Store.Log(actx.Ctx)
	if err != nil {
		return fmt.Errorf("log_count: %w", err)
	}
	if len(log) != assertion.Count {
		return &AssertionError{
			Type:     AssertLogCount,
			Expected: fmt.Sprintf("%d stored elements", assertion.Count),
			Actual:   fmt.Sprintf("%d", len(log)),
			Trace:    trace,
		}
	}
	return nil
}

// assertHistory checks the contents of the chain ending at head.
func assertHistory(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	head, err := actx.label(assertion.Head)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	chain, err := actx.Store.History(actx.Ctx, head)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	got := make([]string, len(chain))
	for i, e := range chain {
		got[i] = e.Page.Content
	}
	if !slices.Equal(got, assertion.Contents) {
		return &AssertionError{
			Type:     AssertHistory,
			Expected: fmt.Sprintf("chain from %s = %q", assertion.Head, assertion.Contents),
			Actual:   fmt.Sprintf("%q", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertSuccessors checks how many stored elements supersede a label.
func assertSuccessors(actx *AssertionContext, trace []TraceEvent, assertion Assertion) error {
	of, err := actx.label(assertion.Of)
	if err != nil {
		return fmt.Errorf("successors: %w", err)
	}
	succ, err := actx.Store.Successors(actx.Ctx, of)
	if err != nil {
		return fmt.Errorf("successors: %w", err)
	}
	if len(succ) != assertion.Count {
		return &AssertionError{
			Type:     AssertSuccessors,
			Expected: fmt.Sprintf("%d successors of %s", assertion.Count, assertion.Of),
			Actual:   fmt.Sprintf("%d", len(succ)),
			Trace:    trace,
		}
	}
	return nil
}
