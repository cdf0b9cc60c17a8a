package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/wikichain/internal/ir"
)

// DeterministicAgents hands out stable agent ids for named test actors.
//
// The first alias seen becomes "agent-0001", the second "agent-0002", and so
// on, so the same scenario always produces the same ids and addresses.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type DeterministicAgents struct {
	mu  sync.Mutex
	ids map[string]ir.AgentID
	seq int
}

// NewDeterministicAgents creates an empty registry.
func NewDeterministicAgents() *DeterministicAgents {
	return &DeterministicAgents{ids: make(map[string]ir.AgentID)}
}

// ID returns the agent id for alias, assigning the next one on first use.
func (a *DeterministicAgents) ID(alias string) ir.AgentID {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.ids[alias]; ok {
		return id
	}
	a.seq++
	id := ir.AgentID(fmt.Sprintf("agent-%04d", a.seq))
	a.ids[alias] = id
	return id
}
