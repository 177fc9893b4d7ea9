package search

import (
	"errors"
	"math"
	"math/rand"

	"monocrack/internal/cipher"
)

var (
	ErrNilRand   = errors.New("random source is required")
	ErrNilScorer = errors.New("scorer is required")
)

// Scorer rates a candidate plaintext; higher is better.
type Scorer interface {
	Score(text string) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(text string) float64

func (f ScorerFunc) Score(text string) float64 { return f(text) }

// ProgressFunc is called each time the global best improves, with the
// iteration index counted across all restarts. It runs inside the search
// loop and must return quickly.
type ProgressFunc func(iteration int, bestScore float64, bestText string)

// AcceptFunc observes every accepted move within a restart.
type AcceptFunc func(restart, iteration int, score float64)

type Report struct {
	RestartsExecuted   int `json:"restarts_executed"`
	IterationsExecuted int `json:"iterations_executed"`
	AcceptedCandidates int `json:"accepted_candidates"`
	RejectedCandidates int `json:"rejected_candidates"`
	Improvements       int `json:"improvements"`
}

type Result struct {
	Key    cipher.Key
	Text   string
	Score  float64
	Report Report
}

// HillClimber searches the key space by greedy single-swap hill climbing
// with random restarts. A HillClimber owns its random source and is not
// safe for concurrent use; run independent searches on separate values.
type HillClimber struct {
	Rand          *rand.Rand
	MaxIterations int
	Restarts      int
	Scorer        Scorer

	// OnAccept is an optional diagnostics hook.
	OnAccept AcceptFunc
}

func (h *HillClimber) Name() string {
	return "hillclimb_restarts"
}

// Run searches for the key that maximizes the score of the decrypted
// ciphertext. Non-positive MaxIterations or Restarts are not rejected; the
// search then does little or nothing. When no candidate is ever accepted
// the result holds the first random key, empty text and a score of -Inf.
func (h *HillClimber) Run(ciphertext string, progress ProgressFunc) (Result, error) {
	if h == nil || h.Rand == nil {
		return Result{}, ErrNilRand
	}
	if h.Scorer == nil {
		return Result{}, ErrNilScorer
	}

	var report Report
	bestKey := cipher.RandomKey(h.Rand)
	bestScore := math.Inf(-1)
	bestText := ""

	for restart := 0; restart < h.Restarts; restart++ {
		report.RestartsExecuted++
		current := cipher.RandomKey(h.Rand)
		currentScore := h.Scorer.Score(cipher.Decrypt(ciphertext, current))

		for i := 0; i < h.MaxIterations; i++ {
			report.IterationsExecuted++
			candidate := cipher.Mutate(h.Rand, current)
			text := cipher.Decrypt(ciphertext, candidate)
			candidateScore := h.Scorer.Score(text)

			if !(candidateScore > currentScore) {
				report.RejectedCandidates++
				continue
			}
			report.AcceptedCandidates++
			current, currentScore = candidate, candidateScore
			if h.OnAccept != nil {
				h.OnAccept(restart, i, currentScore)
			}

			if currentScore > bestScore {
				report.Improvements++
				bestKey, bestScore, bestText = current, currentScore, text
				if progress != nil {
					progress(restart*h.MaxIterations+i, bestScore, bestText)
				}
			}
		}
	}

	return Result{Key: bestKey, Text: bestText, Score: bestScore, Report: report}, nil
}
