// Package fingerprint derives the short, stable identifiers that key every
// extracted string in a strings file.
//
// A fingerprint is the first 16 hex characters of the SHA-256 digest of
//
//	text || file || path || event || map
//
// where "||" is the literal two-byte separator. An absent event or map id
// is hashed as the placeholder "None". A present id equal to "None" (or
// starting with the ESC byte) is hashed with a leading ESC byte, so presence
// and absence can never produce the same input.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// Length is the number of hex characters in a fingerprint.
	Length = 16

	// Separator joins the hashed components.
	Separator = "||"

	// Absent is hashed in place of a missing event or map id.
	Absent = "None"

	escape = "\x1b"
)

// Of returns the fingerprint of a string found at path inside file.
func Of(text, file, path string, eventID, mapID *string) string {
	input := strings.Join([]string{
		text,
		file,
		path,
		optional(eventID),
		optional(mapID),
	}, Separator)

	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:Length]
}

func optional(s *string) string {
	if s == nil {
		return Absent
	}
	if *s == Absent || strings.HasPrefix(*s, escape) {
		return escape + *s
	}
	return *s
}

// Valid reports whether s looks like a fingerprint.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
