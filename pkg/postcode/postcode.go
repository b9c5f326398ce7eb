// Package postcode provides UK postcode normalization.
package postcode

import (
	"unicode"
)

// Normalize canonicalizes a free-form UK postcode: surrounding and internal
// whitespace is removed, letters are uppercased, and for inputs of at least
// 5 characters a single space is inserted before the final 3 characters
// (the inward code). Accepts both spaced ("EC1A 1BB") and unspaced
// ("ec1a1bb") input. Validity is not enforced; an empty or whitespace-only
// input yields "".
//
// Normalize is idempotent: the inserted space is itself stripped before
// re-insertion, so normalizing an already-normalized postcode returns it
// unchanged.
func Normalize(raw string) string {
	collapsed := make([]rune, 0, len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		collapsed = append(collapsed, unicode.ToUpper(r))
	}

	// Rune-wise split keeps multibyte input intact.
	if len(collapsed) < 5 {
		return string(collapsed)
	}

	split := len(collapsed) - 3
	return string(collapsed[:split]) + " " + string(collapsed[split:])
}
