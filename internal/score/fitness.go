package score

import (
	"errors"

	"monocrack/internal/lexicon"
)

var (
	ErrNoTable   = errors.New("bigram table is required")
	ErrNoLexicon = errors.New("lexicon is required")
)

// Fitness rates candidate plaintext as the bigram score plus the lexical
// percentage. It holds only read-only references and is safe to share
// between searches.
type Fitness struct {
	table Table
	lex   lexicon.Lexicon
}

// NewFitness checks that both reference sources are present.
func NewFitness(table Table, lex lexicon.Lexicon) (*Fitness, error) {
	if len(table) == 0 {
		return nil, ErrNoTable
	}
	if lex == nil {
		return nil, ErrNoLexicon
	}
	return &Fitness{table: table, lex: lex}, nil
}

func (f *Fitness) Score(text string) float64 {
	return BigramScore(f.table, text) + LexicalScore(f.lex, text)
}

// Breakdown returns both components of Score.
func (f *Fitness) Breakdown(text string) (bigram, lexical float64) {
	return BigramScore(f.table, text), LexicalScore(f.lex, text)
}
