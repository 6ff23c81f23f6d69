package utils

import (
	"crypto/rand"
	"strings"
	"unicode"
)

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// GenerateRoomCode returns n random decimal digits. Rejection sampling keeps
// the distribution uniform; the caller handles collisions against the store.
func GenerateRoomCode(n int) string {
	const digits = "0123456789"
	const max = byte(255 - (256 % len(digits)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, digits[int(b)%len(digits)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}

	return string(out)
}

// GetMaskedWord converts a word to underscores for display. Letters become
// "_", everything else (spaces, hyphens, punctuation) passes through as-is.
// The format matches the per-round snapshots, so clients render one shape
// whichever transport delivered it.
func GetMaskedWord(word string) string {
	var b strings.Builder
	for _, r := range word {
		if unicode.IsLetter(r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AlphaChars returns the distinct uppercase letters of an answer, the set a
// round must cover to count as solved.
func AlphaChars(answer string) map[rune]bool {
	set := make(map[rune]bool)
	for _, r := range strings.ToUpper(answer) {
		if r >= 'A' && r <= 'Z' {
			set[r] = true
		}
	}
	return set
}
