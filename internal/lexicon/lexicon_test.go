package lexicon

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordSetCaseFolded(t *testing.T) {
	s := NewWordSet("Cab", "the", "  ", "Straße")
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("CAB"))
	assert.True(t, s.Contains("cab"))
	assert.True(t, s.Contains("The"))
	assert.True(t, s.Contains("STRASSE"))
	assert.False(t, s.Contains("cabs"))
	assert.False(t, s.Contains(""))
}

func TestNilWordSet(t *testing.T) {
	var s *WordSet
	assert.False(t, s.Contains("a"))
	assert.Zero(t, s.Len())
}

func TestLoadFormats(t *testing.T) {
	in := strings.Join([]string{
		"# comment",
		"the 23135851162",
		"",
		"Of 13151942776",
		"queen",
	}, "\n")
	s, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	for _, w := range []string{"THE", "OF", "QUEEN"} {
		assert.True(t, s.Contains(w), w)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(strings.NewReader("# nothing here\n\n"))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Load(strings.NewReader("the many words here\n"))
	assert.Error(t, err)

	_, err = Load(strings.NewReader("the often\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\nbeta 2\n"), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, s.Contains("BETA"))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestDefaultSharedAndConcurrent(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)
	require.Greater(t, s.Len(), 100)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, s, again)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, w := range []string{"THE", "KING", "NIGHTS", "zzzz"} {
				s.Contains(w)
			}
		}()
	}
	wg.Wait()
	assert.True(t, s.Contains("THE"))
}

func TestDefaultCoversGeneralProse(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)
	require.Greater(t, s.Len(), 5000)

	passages := []string{
		"Four score and seven years ago our fathers brought forth on this continent a new nation, conceived in liberty, and dedicated to the proposition that all men are created equal.",
		"It is a truth universally acknowledged, that a single man in possession of a good fortune, must be in want of a wife.",
		"The old man walked down to the river with his dog, and the children followed him through the trees.",
	}
	for _, text := range passages {
		words, known := 0, 0
		for _, tok := range Tokenize(text) {
			if !isWordRune([]rune(tok)[0]) {
				continue
			}
			words++
			if s.Contains(tok) {
				known++
			}
		}
		require.NotZero(t, words)
		assert.GreaterOrEqual(t, float64(known)/float64(words), 0.85, text)
	}
}
