// Package label prepares raw label text for matching: folding, OCR cleanup
// and locating the ingredient list inside a full label transcript.
package label

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// dotless i has no decomposition, so it is mapped explicitly after the
// accent strip. Dotted capital İ lower-cases to i + U+0307, which the
// strip already reduces to i.
var dotlessI = strings.NewReplacer("ı", "i")

// Normalize lower-cases text and folds letter variants: diacritics are
// removed and both Turkish i forms become plain i. Normalize(Normalize(s))
// equals Normalize(s).
func Normalize(text string) string {
	// transform.Chain keeps internal buffers, so each call gets its own.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(fold, strings.ToLower(text))
	if err != nil {
		out = strings.ToLower(text)
	}
	return dotlessI.Replace(out)
}

// foldRune folds a single rune the same way Normalize folds it in context.
func foldRune(r rune) string {
	if r < utf8.RuneSelf {
		return string(unicode.ToLower(r))
	}
	return Normalize(string(r))
}

var (
	lineBreaks    = regexp.MustCompile(`\r\n?`)
	horizontalWS  = regexp.MustCompile(`[ \t]+`)
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
)

// CleanText tidies an OCR transcript: unified line endings, single spaces,
// at most one empty line in a row and no padding around lines.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	s := lineBreaks.ReplaceAllString(text, "\n")
	s = horizontalWS.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = blankLineRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
