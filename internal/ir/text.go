package ir

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInvalidUTF8 marks text that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("text is not valid UTF-8")

	// ErrNotNFC marks text that is not in Unicode normalization form C.
	ErrNotNFC = errors.New("text is not NFC-normalized")
)

// CheckText reports whether s hashes without loss. Canonical JSON
// normalizes to NFC, so only valid UTF-8 already in NFC maps to exactly one
// canonical form.
func CheckText(s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	if !norm.NFC.IsNormalString(s) {
		return ErrNotNFC
	}
	return nil
}

// NormalizeText returns s in NFC. Invalid UTF-8 is an error.
func NormalizeText(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}
	return norm.NFC.String(s), nil
}
