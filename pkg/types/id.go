package types

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// idSeparator joins the words of a generated identifier.
const idSeparator = '_'

// GenerateID derives the stable identifier of an item. With a non-empty
// category the identifier is the slug of "category_name", otherwise the slug
// of name alone. An empty name yields a degenerate but defined identifier.
func GenerateID(name, category string) string {
	if strings.TrimSpace(category) != "" {
		return Slugify(category + "_" + name)
	}
	return Slugify(name)
}

// Slugify lowercases s, folds accented letters to their base form, and
// replaces every run of characters that are not letters or digits with a
// single underscore. Leading and trailing separators are dropped.
func Slugify(s string) string {
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))

	var b strings.Builder
	b.Grow(len(folded))
	pending := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteRune(idSeparator)
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
