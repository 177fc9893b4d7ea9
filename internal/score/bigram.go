package score

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ErrEmptyTable = errors.New("bigram table is empty")

// Table maps an uppercase letter pair to its relative frequency in English
// text. Pairs that are not listed score 0. A Table is never modified after
// it is built and may be shared by concurrent searches.
type Table map[string]float64

// EnglishBigrams holds the most common English digraphs, in percent of all
// letter pairs.
var EnglishBigrams = Table{
	"TH": 1.52, "HE": 1.28, "IN": 0.94, "ER": 0.94, "AN": 0.82, "RE": 0.68, "ND": 0.63, "AT": 0.59, "ON": 0.57,
	"NT": 0.56, "HA": 0.56, "ES": 0.56, "ST": 0.55, "EN": 0.55, "ED": 0.53, "TO": 0.52, "IT": 0.50, "OU": 0.50,
	"EA": 0.47, "HI": 0.46, "IS": 0.46, "OR": 0.43, "TI": 0.34, "AS": 0.33, "TE": 0.27, "ET": 0.19, "NG": 0.18,
	"OF": 0.16, "AL": 0.09, "DE": 0.09, "SE": 0.08, "LE": 0.08, "SA": 0.06, "SI": 0.05, "AR": 0.05, "VE": 0.04,
	"RA": 0.04, "LD": 0.02, "UR": 0.02, "NO": 0.01,
}

// Freq returns the frequency of an uppercase pair, or 0 when it is unknown.
func (t Table) Freq(pair string) float64 {
	return t[pair]
}

// BigramScore sums the table frequency of every pair of adjacent letters in
// text. A pair is only formed when both characters are letters, so pairs
// that straddle spaces or punctuation are skipped rather than scored as 0.
// Lookups are case-insensitive.
func BigramScore(t Table, text string) float64 {
	var (
		score    float64
		prev     rune
		havePrev bool
		buf      [2 * utf8.UTFMax]byte
	)
	for _, r := range text {
		if !unicode.IsLetter(r) {
			havePrev = false
			continue
		}
		r = unicode.ToUpper(r)
		if havePrev {
			n := utf8.EncodeRune(buf[:], prev)
			n += utf8.EncodeRune(buf[n:], r)
			score += t[string(buf[:n])]
		}
		prev = r
		havePrev = true
	}
	return score
}

// LoadTable reads a table with one "PAIR value" entry per line. Blank lines
// and lines starting with '#' are ignored. Pairs are uppercased.
func LoadTable(r io.Reader) (Table, error) {
	t := make(Table)
	s := bufio.NewScanner(r)
	lno := 0
	for s.Scan() {
		lno++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"PAIR value\", got %q", lno, line)
		}
		pair := strings.ToUpper(fields[0])
		if utf8.RuneCountInString(pair) != 2 {
			return nil, fmt.Errorf("line %d: %q is not a letter pair", lno, fields[0])
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid frequency %q: %w", lno, fields[1], err)
		}
		t[pair] = v
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return nil, ErrEmptyTable
	}
	return t, nil
}

// LoadTableFile reads a table from path. See LoadTable.
func LoadTableFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("load bigram table %s: %w", path, err)
	}
	return t, nil
}
