package lexicon

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// clitics are split off the end of a word the way Treebank tokenizers do:
// "IT'S" becomes "IT" "'S" and "DON'T" becomes "DO" "N'T".
var clitics = []string{"'s", "'m", "'d", "'re", "'ve", "'ll", "n't"}

// Tokenize splits text into tokens. A word token is a maximal run of
// letters and digits; an apostrophe between two such characters stays part
// of the word ("MA'ARUF") unless it starts a clitic suffix, which becomes a
// token of its own. Every other non-space character becomes a
// one-character punctuation token. Whitespace only separates tokens.
func Tokenize(text string) []string {
	var tokens []string
	EachToken(text, func(tok string) {
		tokens = append(tokens, tok)
	})
	return tokens
}

// EachToken calls fn for every token of text, in order, without building
// the token slice.
func EachToken(text string, fn func(string)) {
	start := -1
	for i, r := range text {
		switch {
		case isWordRune(r):
			if start < 0 {
				start = i
			}
		case r == '\'' && start >= 0 && nextIsWordRune(text[i+1:]):
			// internal apostrophe, keep scanning the word
		default:
			if start >= 0 {
				emitWord(text[start:i], fn)
				start = -1
			}
			if !unicode.IsSpace(r) {
				fn(string(r))
			}
		}
	}
	if start >= 0 {
		emitWord(text[start:], fn)
	}
}

func emitWord(word string, fn func(string)) {
	if strings.IndexByte(word, '\'') >= 0 {
		for _, c := range clitics {
			n := len(word) - len(c)
			if n > 0 && strings.EqualFold(word[n:], c) {
				fn(word[:n])
				fn(word[n:])
				return
			}
		}
	}
	fn(word)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func nextIsWordRune(rest string) bool {
	r, n := utf8.DecodeRuneInString(rest)
	return n > 0 && isWordRune(r)
}
