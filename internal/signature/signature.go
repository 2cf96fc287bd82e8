// Package signature computes and verifies operation signatures.
//
// A signature is the lowercase SHA-256 hex digest of the normalized
// operation document. Normalization must match what the registry computes
// server-side, otherwise every manifest entry would look like a mismatch.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a GraphQL operation document for hashing:
//
//  1. NFC unicode normalization (the registry normalizes at its boundary too)
//  2. comments stripped (# to end of line, except inside string literals)
//  3. runs of whitespace outside string literals collapsed to a single space
//  4. leading and trailing whitespace trimmed
func Normalize(document string) string {
	document = norm.NFC.String(document)

	var b strings.Builder
	b.Grow(len(document))

	inString := false      // inside "..."
	inBlockString := false // inside """..."""
	pendingSpace := false

	runes := []rune(document)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if inBlockString {
			b.WriteRune(r)
			if r == '"' && hasPrefixAt(runes, i, `"""`) {
				b.WriteString(`""`)
				i += 2
				inBlockString = false
			}
			continue
		}

		if inString {
			b.WriteRune(r)
			if r == '\\' && i+1 < len(runes) {
				// Escaped character, copy verbatim so \" doesn't end the string.
				i++
				b.WriteRune(runes[i])
				continue
			}
			if r == '"' {
				inString = false
			}
			continue
		}

		switch {
		case r == '#':
			// Comment runs to end of line.
			for i+1 < len(runes) && runes[i+1] != '\n' {
				i++
			}
		case r == '"':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			if hasPrefixAt(runes, i, `"""`) {
				b.WriteString(`"""`)
				i += 2
				inBlockString = true
			} else {
				b.WriteRune(r)
				inString = true
			}
		case isWhitespace(r):
			pendingSpace = true
		default:
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Hash returns the signature of a document: SHA-256 hex of its normalized form.
func Hash(document string) string {
	sum := sha256.Sum256([]byte(Normalize(document)))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether sig matches the signature computed from document.
// Comparison is case-insensitive since hex digests vary in casing across tools.
func Verify(document, sig string) bool {
	return strings.EqualFold(Hash(document), sig)
}

func hasPrefixAt(runes []rune, i int, prefix string) bool {
	for j, p := range prefix {
		if i+j >= len(runes) || runes[i+j] != p {
			return false
		}
	}
	return true
}

func isWhitespace(r rune) bool {
	// GraphQL ignored tokens: space, tab, newlines, and commas.
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
}
