package ir

import (
	"encoding/json"
	"fmt"
)

// Outcome is the result class of a validation.
type Outcome string

const (
	OutcomeAccept Outcome = "accept"
	OutcomeReject Outcome = "reject"
)

// Rejection reasons. These strings are the only diagnostic a caller sees.
const (
	ReasonPredecessorNotFound = "predecessor record not found"
	ReasonAuthorOnly          = "only the author can edit this record"
	ReasonUnknownPermission   = "unrecognized permission"
)

// Verdict is the outcome of validating an update. A rejection is data,
// not an error.
type Verdict struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Accept returns an accepting verdict.
func Accept() Verdict {
	return Verdict{Outcome: OutcomeAccept}
}

// Reject returns a rejecting verdict carrying reason.
func Reject(reason string) Verdict {
	return Verdict{Outcome: OutcomeReject, Reason: reason}
}

// Accepted reports whether the verdict accepts the update.
func (v Verdict) Accepted() bool {
	return v.Outcome == OutcomeAccept
}

func (v Verdict) String() string {
	if v.Accepted() {
		return "accept"
	}
	return fmt.Sprintf("reject: %s", v.Reason)
}

// UnmarshalJSON rejects outcomes other than accept and reject.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	type plain Verdict
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Outcome {
	case OutcomeAccept:
		if raw.Reason != "" {
			return fmt.Errorf("verdict: accept carries no reason")
		}
	case OutcomeReject:
		if raw.Reason == "" {
			return fmt.Errorf("verdict: reject requires a reason")
		}
	default:
		return fmt.Errorf("verdict: unknown outcome %q", raw.Outcome)
	}
	*v = Verdict(raw)
	return nil
}
