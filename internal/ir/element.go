package ir

// Address is the hex SHA-256 identity of a stored element.
type Address string

// AgentID identifies the agent that authored or submitted a record.
type AgentID string

// NewRecord is what a caller hands the store to append.
// Target is empty for a fresh page and set for an update.
type NewRecord struct {
	Page   WikiPage
	Author AgentID
	Target Address
}

// IsUpdate reports whether the record supersedes a predecessor.
func (r NewRecord) IsUpdate() bool {
	return r.Target != ""
}

// Element is a page as the store holds it: the record plus the metadata the
// store attaches at append time.
type Element struct {
	Address   Address  `json:"address"`
	Page      WikiPage `json:"page"`
	Author    AgentID  `json:"author"`
	Target    Address  `json:"target,omitempty"` // Predecessor, empty for creates
	AuthorSeq int64    `json:"author_seq"`       // Position in the author's chain, from 1
	Seq       int64    `json:"seq"`              // Store-local log position, not hashed
}

// IsUpdate reports whether the element superseded a predecessor.
func (e Element) IsUpdate() bool {
	return e.Target != ""
}

// UpdateOperation is a proposed update. It is never stored verbatim.
//
// Author is filled in by the runtime that received the request and is not
// part of the JSON payload a caller submits.
type UpdateOperation struct {
	Page   WikiPage `json:"page"`
	Target Address  `json:"target"`
	Author AgentID  `json:"-"`
}
