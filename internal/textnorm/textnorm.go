// Package textnorm folds free text into lookup tokens so that station and
// line names match regardless of case, accents, script punctuation or the
// provider's spelling of separators.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Name folds a display name into a space separated, lower case, accent free
// token: "Σύνταγμα" -> "συνταγμα", "Syngrou-Fix" -> "syngrou fix".
func Name(s string) string {
	s = strings.ToLower(stripMarks(s))
	s = strings.ReplaceAll(s, "ς", "σ")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// Code folds a line or route code into an upper case token without
// separators: "e-14" -> "E14", " Line 1 " -> "LINE1".
func Code(s string) string {
	s = strings.ToUpper(stripMarks(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
