package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Permission says who may supersede a page. It is a sealed sum type: only
// the variants declared in this file implement it, and callers branch with a
// type switch so a new variant (an allow-list, say) surfaces at every
// decision site instead of silently reading as true or false.
type Permission interface {
	permission() // Sealed
	String() string
}

// AuthorOnly permits updates only from the agent that authored the page.
type AuthorOnly struct{}

func (AuthorOnly) permission() {}

func (AuthorOnly) String() string { return "AuthorOnly" }

// Others permits updates from any agent.
type Others struct{}

func (Others) permission() {}

func (Others) String() string { return "Others" }

// Permission names as they appear on the wire and in storage.
const (
	PermissionAuthorOnly = "AuthorOnly"
	PermissionOthers     = "Others"
)

// ValidPermissions lists the accepted permission names in declaration order.
var ValidPermissions = []string{PermissionAuthorOnly, PermissionOthers}

// ParsePermission maps a wire name to its Permission variant.
func ParsePermission(name string) (Permission, error) {
	switch name {
	case PermissionAuthorOnly:
		return AuthorOnly{}, nil
	case PermissionOthers:
		return Others{}, nil
	default:
		return nil, fmt.Errorf("unknown permission %q: must be one of %v", name, ValidPermissions)
	}
}

// WikiPage is the record stored in the chain. Immutable once appended.
type WikiPage struct {
	Content    string
	Permission Permission
}

// NewWikiPage creates a page with the given content and permission.
func NewWikiPage(content string, perm Permission) WikiPage {
	return WikiPage{Content: content, Permission: perm}
}

// Normalized returns the page with its content in NFC, the form it is
// hashed and stored in.
func (p WikiPage) Normalized() (WikiPage, error) {
	content, err := NormalizeText(p.Content)
	if err != nil {
		return WikiPage{}, fmt.Errorf("wiki page: %w", err)
	}
	p.Content = content
	return p, nil
}

type wikiPageJSON struct {
	Content    string `json:"content"`
	Permission string `json:"permission"`
}

// MarshalJSON encodes the permission by variant name.
func (p WikiPage) MarshalJSON() ([]byte, error) {
	if p.Permission == nil {
		return nil, fmt.Errorf("wiki page: permission is not set")
	}
	return json.Marshal(wikiPageJSON{
		Content:    p.Content,
		Permission: p.Permission.String(),
	})
}

// UnmarshalJSON decodes a page and rejects unknown fields and unknown
// permission names.
func (p *WikiPage) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw wikiPageJSON
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("wiki page: %w", err)
	}
	perm, err := ParsePermission(raw.Permission)
	if err != nil {
		return fmt.Errorf("wiki page: %w", err)
	}
	p.Content = raw.Content
	p.Permission = perm
	return nil
}

// canonical returns the page as a canonical-JSON-ready map.
func (p WikiPage) canonical() (map[string]any, error) {
	if p.Permission == nil {
		return nil, fmt.Errorf("permission is not set")
	}
	return map[string]any{
		"content":    p.Content,
		"permission": p.Permission.String(),
	}, nil
}
