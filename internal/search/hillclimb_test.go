package search

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monocrack/internal/cipher"
	"monocrack/internal/lexicon"
	"monocrack/internal/score"
)

const sampleCiphertext = `PCQ VMJYPD LBYK LYSO KBXBJXWXV BXV ZCJPO EYPD KBXBJYUXJ LBJOO KCPK.
CP LBO LBCMKXPV XPV IYJKL PYDBL, QBOP KBO BXV OPVOV LBO LXRO CI SX'XJMI.`

func newFitness(t *testing.T, words ...string) *score.Fitness {
	t.Helper()
	f, err := score.NewFitness(score.EnglishBigrams, lexicon.NewWordSet(words...))
	require.NoError(t, err)
	return f
}

func TestHillClimberInputValidation(t *testing.T) {
	fitness := newFitness(t, "a")

	_, err := (&HillClimber{Scorer: fitness}).Run("ABC", nil)
	assert.ErrorIs(t, err, ErrNilRand)

	var nilClimber *HillClimber
	_, err = nilClimber.Run("ABC", nil)
	assert.ErrorIs(t, err, ErrNilRand)

	_, err = (&HillClimber{Rand: rand.New(rand.NewSource(1))}).Run("ABC", nil)
	assert.ErrorIs(t, err, ErrNilScorer)
}

func TestHillClimberRecoversShortWord(t *testing.T) {
	// Under a key whose images of W, K and F are A, B and C, the ciphertext
	// "FWK" decrypts to "CAB".
	key := cipher.Identity()
	key.Swap('W'-'A', 'A'-'A')
	key.Swap('K'-'A', 'B'-'A')
	key.Swap('F'-'A', 'C'-'A')
	ciphertext := cipher.Encrypt("CAB", key)
	require.Equal(t, "FWK", ciphertext)

	// A three letter text leaves the climber on wide plateaus and only about
	// one restart in a thousand lands next to the answer, so the budget leans
	// on restarts.
	h := &HillClimber{
		Rand:          rand.New(rand.NewSource(2024)),
		MaxIterations: 100,
		Restarts:      20000,
		Scorer:        newFitness(t, "cab"),
	}
	res, err := h.Run(ciphertext, nil)
	require.NoError(t, err)

	assert.Equal(t, "CAB", res.Text)
	assert.Equal(t, byte('A'), res.Key.Image('W'))
	assert.Equal(t, byte('B'), res.Key.Image('K'))
	assert.Equal(t, byte('C'), res.Key.Image('F'))
	assert.InDelta(t, 100, res.Score, 1e-9)
	assert.True(t, res.Key.Valid())
}

func TestHillClimberConvergesOnSeparableObjective(t *testing.T) {
	target := cipher.RandomKey(rand.New(rand.NewSource(99)))
	ciphertext := "THE QUICK BROWN FOX JUMPS OVER THE LAZY DOG"
	want := cipher.Decrypt(ciphertext, target)

	matches := ScorerFunc(func(text string) float64 {
		n := 0
		for i := 0; i < len(text); i++ {
			if text[i] == want[i] {
				n++
			}
		}
		return float64(n)
	})

	h := &HillClimber{Rand: rand.New(rand.NewSource(5)), MaxIterations: 20000, Restarts: 1, Scorer: matches}
	res, err := h.Run(ciphertext, nil)
	require.NoError(t, err)
	assert.Equal(t, want, res.Text)
	assert.Equal(t, target, res.Key)
}

func TestHillClimberDeterministicWithSeed(t *testing.T) {
	fitness := newFitness(t, "the", "and", "king", "night", "thousand", "first", "when", "she", "had", "ended")

	run := func() (Result, []float64) {
		var trail []float64
		h := &HillClimber{Rand: rand.New(rand.NewSource(77)), MaxIterations: 400, Restarts: 3, Scorer: fitness}
		res, err := h.Run(sampleCiphertext, func(_ int, s float64, _ string) {
			trail = append(trail, s)
		})
		require.NoError(t, err)
		return res, trail
	}

	a, trailA := run()
	b, trailB := run()
	assert.Equal(t, a.Key, b.Key)
	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, a.Report, b.Report)
	assert.Equal(t, trailA, trailB)
}

func TestHillClimberMonotonicProgress(t *testing.T) {
	fitness := newFitness(t, "the", "and", "king")

	const (
		iterations = 300
		restarts   = 4
	)
	lastAccepted := make(map[int]float64)
	acceptedIter := -1
	acceptedRestart := -1
	h := &HillClimber{
		Rand:          rand.New(rand.NewSource(3)),
		MaxIterations: iterations,
		Restarts:      restarts,
		Scorer:        fitness,
		OnAccept: func(restart, iteration int, s float64) {
			if prev, ok := lastAccepted[restart]; ok {
				require.Greater(t, s, prev, "accepted scores must strictly increase within a restart")
			}
			lastAccepted[restart] = s
			acceptedRestart, acceptedIter = restart, iteration
		},
	}

	var (
		lastIter  = -1
		lastScore = math.Inf(-1)
		calls     int
	)
	res, err := h.Run(sampleCiphertext, func(iteration int, best float64, text string) {
		calls++
		require.Greater(t, iteration, lastIter)
		require.Less(t, iteration, iterations*restarts)
		require.Equal(t, acceptedRestart*iterations+acceptedIter, iteration)
		require.GreaterOrEqual(t, best, lastScore)
		require.Len(t, text, len(sampleCiphertext))
		lastIter, lastScore = iteration, best
	})
	require.NoError(t, err)

	assert.Equal(t, res.Report.Improvements, calls)
	assert.Equal(t, lastScore, res.Score)
	assert.Equal(t, restarts, res.Report.RestartsExecuted)
	assert.Equal(t, iterations*restarts, res.Report.IterationsExecuted)
	assert.Equal(t, res.Report.IterationsExecuted, res.Report.AcceptedCandidates+res.Report.RejectedCandidates)
	assert.InDelta(t, fitness.Score(res.Text), res.Score, 1e-9)
	assert.Equal(t, cipher.Decrypt(sampleCiphertext, res.Key), res.Text)
}

func TestHillClimberEmptyCiphertext(t *testing.T) {
	h := &HillClimber{Rand: rand.New(rand.NewSource(1)), MaxIterations: 50, Restarts: 2, Scorer: newFitness(t, "a")}
	res, err := h.Run("", nil)
	require.NoError(t, err)

	// Every key scores 0, so nothing is ever accepted.
	assert.Equal(t, "", res.Text)
	assert.True(t, math.IsInf(res.Score, -1))
	assert.True(t, res.Key.Valid())
	assert.Zero(t, res.Report.AcceptedCandidates)
}

func TestHillClimberNonPositiveBudget(t *testing.T) {
	for _, tc := range []struct{ iterations, restarts int }{{0, 5}, {5, 0}, {-1, -1}} {
		called := false
		h := &HillClimber{Rand: rand.New(rand.NewSource(1)), MaxIterations: tc.iterations, Restarts: tc.restarts, Scorer: newFitness(t, "a")}
		res, err := h.Run("ABC", func(int, float64, string) { called = true })
		require.NoError(t, err)
		assert.False(t, called)
		assert.True(t, res.Key.Valid())
		assert.Zero(t, res.Report.IterationsExecuted)
	}
}
