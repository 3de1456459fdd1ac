package reply

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// letterFolder maps Arabic code points commonly produced by keyboards and
// recognizers onto their Persian equivalents, and Persian digits onto ASCII.
var letterFolder = strings.NewReplacer(
	"\u064a", "\u06cc", "\u0649", "\u06cc", "\u0643", "\u06a9", "\u0629", "\u0647",
	"\u0623", "\u0627", "\u0625", "\u0627",
	"\u200c", " ", "\u200f", "", "\u200e", "", "\u0640", "",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
)

// Normalize folds text for keyword matching: NFKC, case folding, Persian
// letter unification, ZWNJ to space, and whitespace collapsing.
func Normalize(text string) string {
	s := norm.NFKC.String(text)
	s = cases.Fold().String(s)
	s = letterFolder.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// tokens strips punctuation from normalized text and pads it with spaces so
// whole-word keywords can be found with a plain substring search.
func tokens(normalized string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			return r
		}
		return ' '
	}, normalized)
	return " " + strings.Join(strings.Fields(stripped), " ") + " "
}

// keyword is one alternative of a pattern set.
type keyword struct {
	text  string
	whole bool
}

// sub builds keywords that match anywhere in the text.
func sub(words ...string) []keyword {
	out := make([]keyword, len(words))
	for i, w := range words {
		out[i] = keyword{text: Normalize(w)}
	}
	return out
}

// word builds keywords that only match as whole words, for short keywords
// that occur inside unrelated words ("بای" in "باید", "hi" in "this").
func word(words ...string) []keyword {
	out := make([]keyword, len(words))
	for i, w := range words {
		out[i] = keyword{text: " " + Normalize(w) + " ", whole: true}
	}
	return out
}

func join(sets ...[]keyword) []keyword {
	var out []keyword
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// matchText holds both views of an utterance used by keyword matching.
type matchText struct {
	normalized string
	padded     string
}

func newMatchText(text string) matchText {
	n := Normalize(text)
	return matchText{normalized: n, padded: tokens(n)}
}

func (m matchText) any(set []keyword) bool {
	for _, k := range set {
		if k.whole && strings.Contains(m.padded, k.text) {
			return true
		}
		if !k.whole && strings.Contains(m.normalized, k.text) {
			return true
		}
	}
	return false
}
