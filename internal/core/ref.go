package core

import (
	"regexp"
	"strings"
)

// RefKind discriminates the three identifier forms a caller may pass.
type RefKind int

const (
	// RefLocalID is a purely numeric id issued by the current server.
	RefLocalID RefKind = iota
	// RefURI is a full https URI pointing at the object's origin server.
	RefURI
	// RefHandle is a webfinger-style user@host (or bare local username).
	RefHandle
	// RefInvalid matches none of the accepted shapes.
	RefInvalid
)

var numericRe = regexp.MustCompile(`^\d+$`)

// EntityRef is a parsed identifier. Immutable once parsed.
type EntityRef struct {
	Kind RefKind

	// ID is set for RefLocalID, URI for RefURI, Handle for RefHandle.
	ID     string
	URI    string
	Handle string
}

// ParseRef classifies a raw identifier without validating it against any
// server. Handle shapes are accepted loosely here; the identity normalizer
// owns the strict rules.
func ParseRef(s string) EntityRef {
	s = strings.TrimSpace(s)

	switch {
	case s == "":
		return EntityRef{Kind: RefInvalid}
	case numericRe.MatchString(s):
		return EntityRef{Kind: RefLocalID, ID: s}
	case strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://"):
		return EntityRef{Kind: RefURI, URI: s}
	default:
		return EntityRef{Kind: RefHandle, Handle: s}
	}
}

// IsNumericID reports whether s looks like a server-issued local id.
func IsNumericID(s string) bool {
	return numericRe.MatchString(s)
}
