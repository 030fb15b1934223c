package keyword

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars   = regexp.MustCompile(`[^\pL\pN]+`)
	zeroWidthChars = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)
	nonAlnumChars  = regexp.MustCompile(`[^a-z0-9]+`)

	// common look-alike substitutions used to sneak terms past matchers
	leetFolder = strings.NewReplacer(
		"0", "o",
		"1", "i",
		"3", "e",
		"4", "a",
		"5", "s",
		"7", "t",
		"$", "s",
		"@", "a",
		"!", "i",
	)
)

// Takes an arbitrary string (eg, an identifier or free-form text) and returns a version with all non-letter, non-digit characters removed, and all lower-case
func Slugify(orig string) string {
	return strings.ToLower(nonSlugChars.ReplaceAllString(orig, ""))
}

// Aggressively folds free-form text down to a bare lower-case alphanumeric
// string, for substring matching against hard block-term lists.
//
// Defends against simple obfuscation: zero-width character insertion,
// leetspeak substitutions, diacritic stacking, and punctuation padding. The
// same function must be applied to both the configured terms and the text
// being checked, or matching silently breaks.
func Normalize(orig string) string {
	t := strings.ToLower(orig)
	t = zeroWidthChars.ReplaceAllString(t, "")
	t = leetFolder.Replace(t)
	t = foldAccents(t)
	return nonAlnumChars.ReplaceAllString(t, "")
}

// strip combining marks after NFD decomposition (eg, "ñ" -> "n")
func foldAccents(text string) string {
	// the transform chain is stateful and not safe for concurrent reuse, so build per call
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(normFunc, text)
	if err != nil {
		return text
	}
	return out
}
