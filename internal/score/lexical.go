package score

import "monocrack/internal/lexicon"

// LexicalScore returns the percentage (0-100) of tokens in text that the
// lexicon recognizes. Text without tokens scores 0.
func LexicalScore(lex lexicon.Lexicon, text string) float64 {
	total, valid := 0, 0
	lexicon.EachToken(text, func(tok string) {
		total++
		if lex.Contains(tok) {
			valid++
		}
	})
	if total == 0 {
		return 0
	}
	return float64(valid) / float64(total) * 100
}
