package ir

import "github.com/google/uuid"

// NewAgentID creates a time-sortable UUIDv7 agent identity.
//
// Panics if UUID generation fails (should never happen in practice).
func NewAgentID() AgentID {
	return AgentID(uuid.Must(uuid.NewV7()).String())
}
