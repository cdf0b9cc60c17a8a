package validate

import (
	"context"
	"fmt"

	"github.com/roach88/wikichain/internal/ir"
)

// ElementVerdict is the replayed verdict for one stored update.
type ElementVerdict struct {
	Address ir.Address `json:"address"`
	Target  ir.Address `json:"target"`
	Author  ir.AgentID `json:"author"`
	Verdict ir.Verdict `json:"verdict"`
}

// ReplayReport summarizes a re-validation of a stored log.
type ReplayReport struct {
	Creates  int              `json:"creates"`
	Updates  int              `json:"updates"`
	Accepted int              `json:"accepted"`
	Rejected int              `json:"rejected"`
	Verdicts []ElementVerdict `json:"verdicts"`
}

// OK reports whether every stored update still validates.
func (r ReplayReport) OK() bool {
	return r.Rejected == 0
}

// Rejections returns the verdicts that rejected.
func (r ReplayReport) Rejections() []ElementVerdict {
	var out []ElementVerdict
	for _, ev := range r.Verdicts {
		if !ev.Verdict.Accepted() {
			out = append(out, ev)
		}
	}
	return out
}

// Replay re-validates every update element in log against the predecessor
// r resolves now. Creates are counted but not judged.
//
// Replay has no side effects, so replaying an unchanged store twice yields
// equal reports. An element imported from another node that fails here
// means that node accepted something this one would not.
func Replay(ctx context.Context, r Resolver, log []ir.Element) (ReplayReport, error) {
	v := New(r)
	report := ReplayReport{Verdicts: []ElementVerdict{}}

	for _, e := range log {
		if err := ctx.Err(); err != nil {
			return ReplayReport{}, fmt.Errorf("replay: %w", err)
		}
		if !e.IsUpdate() {
			report.Creates++
			continue
		}
		report.Updates++

		verdict, err := v.Validate(ctx, ir.UpdateOperation{
			Page:   e.Page,
			Target: e.Target,
			Author: e.Author,
		})
		if err != nil {
			return ReplayReport{}, fmt.Errorf("replay %s: %w", e.Address, err)
		}
		if verdict.Accepted() {
			report.Accepted++
		} else {
			report.Rejected++
		}
		report.Verdicts = append(report.Verdicts, ElementVerdict{
			Address: e.Address,
			Target:  e.Target,
			Author:  e.Author,
			Verdict: verdict,
		})
	}
	return report, nil
}
