package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wikichain/internal/ir"
)

// Scenario is a conformance test: a sequence of steps and assertions over
// the resulting store.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects the store: "sqlite" (default), "badger" or "memory".
	Backend string `yaml:"backend,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store and trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation against the append API.
type Step struct {
	// Op is "create", "update" or "validate".
	Op string `yaml:"op"`

	// As is the alias of the submitting agent.
	As string `yaml:"as"`

	// Page is the record carried by the operation.
	Page PageSpec `yaml:"page"`

	// Target is a saved label or a literal address. Required for update
	// and validate.
	Target string `yaml:"target,omitempty"`

	// Expect is the verdict the step must produce. Nil means accept.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Save names the appended address for later steps.
	Save string `yaml:"save,omitempty"`
}

// PageSpec is a page as written in a scenario.
type PageSpec struct {
	Content    string `yaml:"content"`
	Permission string `yaml:"permission"`
}

// WikiPage builds the page the scenario describes.
func (p PageSpec) WikiPage() (ir.WikiPage, error) {
	perm, err := ir.ParsePermission(p.Permission)
	if err != nil {
		return ir.WikiPage{}, err
	}
	return ir.NewWikiPage(p.Content, perm), nil
}

// ExpectClause is the expected verdict of a step.
type ExpectClause struct {
	Outcome string `yaml:"outcome"`
	Reason  string `yaml:"reason,omitempty"`
}

// Verdict converts the clause into the verdict it describes.
func (e *ExpectClause) Verdict() ir.Verdict {
	if e == nil || e.Outcome == string(ir.OutcomeAccept) {
		return ir.Accept()
	}
	return ir.Reject(e.Reason)
}

// Assertion validates the final state of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number (log_count, successors, verdict_count).
	Count int `yaml:"count,omitempty"`

	// Head is the label the history walk starts from (history).
	Head string `yaml:"head,omitempty"`

	// Contents lists page contents newest first (history).
	Contents []string `yaml:"contents,omitempty"`

	// Of is the label whose successors are counted (successors).
	Of string `yaml:"of,omitempty"`

	// Outcome is the verdict outcome being counted (verdict_count).
	Outcome string `yaml:"outcome,omitempty"`
}

// Operation names.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpValidate = "validate"
)

// Assertion type constants.
const (
	AssertLogCount     = "log_count"
	AssertHistory      = "history"
	AssertSuccessors   = "successors"
	AssertVerdictCount = "verdict_count"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Backend {
	case "", BackendSQLite, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	labels := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
		if step.Save != "" {
			if labels[step.Save] {
				return fmt.Errorf("steps[%d]: label %q saved twice", i, step.Save)
			}
			labels[step.Save] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	switch step.Op {
	case OpCreate:
		if step.Target != "" {
			return fmt.Errorf("steps[%d]: create takes no target", i)
		}
	case OpUpdate, OpValidate:
		if step.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for %s", i, step.Op)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if step.As == "" {
		return fmt.Errorf("steps[%d]: as is required", i)
	}
	if _, err := step.Page.WikiPage(); err != nil {
		return fmt.Errorf("steps[%d].page: %w", i, err)
	}
	if step.Op == OpValidate && step.Save != "" {
		return fmt.Errorf("steps[%d]: validate appends nothing to save", i)
	}

	if e := step.Expect; e != nil {
		switch ir.Outcome(e.Outcome) {
		case ir.OutcomeAccept:
			if e.Reason != "" {
				return fmt.Errorf("steps[%d].expect: accept carries no reason", i)
			}
		case ir.OutcomeReject:
			if step.Op == OpCreate {
				return fmt.Errorf("steps[%d].expect: create is never rejected", i)
			}
			if e.Reason == "" {
				return fmt.Errorf("steps[%d].expect: reason is required for reject", i)
			}
		default:
			return fmt.Errorf("steps[%d].expect: unknown outcome %q", i, e.Outcome)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertLogCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for log_count", index)
		}
	case AssertHistory:
		if a.Head == "" {
			return fmt.Errorf("assertions[%d]: head is required for history", index)
		}
		if len(a.Contents) == 0 {
			return fmt.Errorf("assertions[%d]: contents is required for history", index)
		}
	case AssertSuccessors:
		if a.Of == "" {
			return fmt.Errorf("assertions[%d]: of is required for successors", index)
		}
	case AssertVerdictCount:
		switch ir.Outcome(a.Outcome) {
		case ir.OutcomeAccept, ir.OutcomeReject:
		default:
			return fmt.Errorf("assertions[%d]: outcome must be accept or reject for verdict_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
