package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEntry   = "wikichain/entry/v" + FormatVersion
	DomainElement = "wikichain/element/v" + FormatVersion
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EntryHash computes the content hash of a page alone.
// Two authors writing identical pages share an entry hash but not an address.
func EntryHash(page WikiPage) (string, error) {
	if err := CheckText(page.Content); err != nil {
		return "", fmt.Errorf("EntryHash: content: %w", err)
	}
	obj, err := page.canonical()
	if err != nil {
		return "", fmt.Errorf("EntryHash: %w", err)
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EntryHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainEntry, canonical), nil
}

// ElementAddress computes the address of an element from its page, its
// author, the author's chain position and the predecessor (if any).
//
// The store-local Seq is excluded: it differs between replicas, while the
// address must be identical on every node that holds the element.
//
// Every string must pass CheckText, so two different elements never share
// an address.
func ElementAddress(page WikiPage, author AgentID, authorSeq int64, target Address) (Address, error) {
	entryHash, err := EntryHash(page)
	if err != nil {
		return "", err
	}
	if err := CheckText(string(author)); err != nil {
		return "", fmt.Errorf("ElementAddress: author: %w", err)
	}
	if err := CheckText(string(target)); err != nil {
		return "", fmt.Errorf("ElementAddress: target: %w", err)
	}

	obj := map[string]any{
		"entry_hash": entryHash,
		"author":     string(author),
		"author_seq": authorSeq,
	}
	if target != "" {
		obj["target"] = string(target)
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ElementAddress: failed to marshal: %w", err)
	}

	return Address(hashWithDomain(DomainElement, canonical)), nil
}

// MustElementAddress is like ElementAddress but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustElementAddress(page WikiPage, author AgentID, authorSeq int64, target Address) Address {
	addr, err := ElementAddress(page, author, authorSeq, target)
	if err != nil {
		panic(err)
	}
	return addr
}

// VerifyElement recomputes an element's address and compares it with the
// stored one.
func VerifyElement(e Element) error {
	want, err := ElementAddress(e.Page, e.Author, e.AuthorSeq, e.Target)
	if err != nil {
		return err
	}
	if want != e.Address {
		return fmt.Errorf("element %s: address mismatch (computed %s)", e.Address, want)
	}
	return nil
}
