package ir

// Version constants for the element format and the tool.
const (
	// FormatVersion is the element hashing format version.
	FormatVersion = "1"

	// Version is the wikichain release.
	Version = "0.1.0"
)
