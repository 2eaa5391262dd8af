// Package features canonicalizes crop names and encodes readings into the
// fixed-order feature vector the irrigation classifier expects.
package features

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldKey decomposes s, drops combining marks, lowercases and collapses
// whitespace: "  Espárrago " and "ESPARRAGO" both fold to "esparrago".
func FoldKey(s string) string {
	// transform.Chain keeps state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
