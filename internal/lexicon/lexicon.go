package lexicon

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

//go:embed data/words.txt
var defaultWords []byte

var ErrEmpty = errors.New("lexicon has no words")

// Lexicon answers membership questions about known words. Implementations
// must be safe for concurrent readers.
type Lexicon interface {
	Contains(word string) bool
}

// WordSet is an immutable set of case-folded words.
type WordSet struct {
	words map[string]struct{}
}

// NewWordSet builds a set from the given words.
func NewWordSet(words ...string) *WordSet {
	s := &WordSet{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			s.words[Fold(w)] = struct{}{}
		}
	}
	return s
}

// Contains reports whether the case-folded word is in the set.
func (s *WordSet) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[Fold(word)]
	return ok
}

func (s *WordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Fold returns the case-folded form used for lookups.
func Fold(s string) string {
	if isASCII(s) {
		return strings.ToLower(s)
	}
	// Casers keep state and are not shared between goroutines.
	return cases.Fold().String(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Load reads a word list. Each non-blank line holds a word, optionally
// followed by a space and an integer frequency ("word 1234"), which is the
// format of frequency-sorted word lists. Lines starting with '#' are
// comments.
func Load(r io.Reader) (*WordSet, error) {
	s := &WordSet{words: make(map[string]struct{})}

	sc := bufio.NewScanner(r)
	lno := 0
	for sc.Scan() {
		lno++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		l := bytes.Fields(line)
		if len(l) > 2 {
			return nil, fmt.Errorf("line %d: invalid input (too many fields)", lno)
		}
		if len(l) == 2 {
			if _, err := strconv.Atoi(string(l[1])); err != nil {
				return nil, fmt.Errorf("line %d: invalid input (invalid number %q)", lno, l[1])
			}
		}
		s.words[Fold(string(l[0]))] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(s.words) == 0 {
		return nil, ErrEmpty
	}
	return s, nil
}

// LoadFile reads a word list from path. See Load.
func LoadFile(path string) (*WordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load word list %s: %w", path, err)
	}
	return s, nil
}

var (
	defaultOnce sync.Once
	defaultSet  *WordSet
	defaultErr  error
)

// Default returns the embedded English word list. It is parsed once and
// shared.
func Default() (*WordSet, error) {
	defaultOnce.Do(func() {
		defaultSet, defaultErr = Load(bytes.NewReader(defaultWords))
	})
	return defaultSet, defaultErr
}
