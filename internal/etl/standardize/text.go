package standardize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiSpaceRe = regexp.MustCompile(`\s+`)

// stripMarks decomposes to NFD, drops combining marks and recomposes.
// Chains carry buffers, so each call gets its own.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Fold upper-cases s, strips diacritics and collapses whitespace.
// "  San  José de Chamanga " becomes "SAN JOSE DE CHAMANGA".
func Fold(s string) string {
	out, _, err := transform.String(stripMarks(), s)
	if err != nil {
		out = s
	}
	out = multiSpaceRe.ReplaceAllString(strings.ToUpper(out), " ")
	return strings.TrimSpace(out)
}

// NameKey normalizes a person or organization name for identity matching:
// folded, punctuation removed.
func NameKey(name string) string {
	name = strings.NewReplacer(
		",", " ",
		".", " ",
		"'", "",
		"\"", "",
		"-", " ",
	).Replace(name)
	return Fold(name)
}
