package alias

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	decimalDot   = regexp.MustCompile(`(\d)\.(\d)`)
	trailingTier = regexp.MustCompile(`\s+\d{1,3}(\.\d+)?$`)
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]+`)
)

// stripMarks removes combining marks after canonical decomposition.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lower-cases s, strips diacritics, turns punctuation into spaces
// and collapses whitespace. Decimal points between digits survive so grade
// tokens like 10.5 stay intact.
func Normalize(s string) string {
	s = stripMarks(strings.ToLower(strings.TrimSpace(s)))
	s = decimalDot.ReplaceAllString(s, "${1}\x00${2}")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == 0:
			return r
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		}
		return ' '
	}, s)
	s = strings.ReplaceAll(s, "\x00", ".")
	return strings.Join(strings.Fields(s), " ")
}

// normKey folds separators the way catalog keys are compared: `_` and `-`
// become spaces.
func normKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Snake converts s to a snake_case key.
func Snake(s string) string {
	s = stripMarks(strings.ToLower(strings.TrimSpace(s)))
	return strings.Trim(nonAlnum.ReplaceAllString(s, "_"), "_")
}

// stripTrailingGrade drops a trailing numeric grade ("fish meal 54" ->
// "fish meal"). SBM grades are part of the key and are kept.
func stripTrailingGrade(s string) string {
	if s == "sbm" || strings.HasPrefix(s, "sbm ") {
		return s
	}
	return strings.TrimSpace(trailingTier.ReplaceAllString(s, ""))
}
