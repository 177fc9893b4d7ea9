package model

import "math"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// SearchConfig is the budget and seeding of one solve request.
type SearchConfig struct {
	MaxIterations int   `json:"max_iterations"`
	Restarts      int   `json:"restarts"`
	Runs          int   `json:"runs"`
	Workers       int   `json:"workers"`
	Seed          int64 `json:"seed"`
}

// RunFinal is the outcome of one independent search inside a solve.
type RunFinal struct {
	Run          int     `json:"run"`
	Seed         int64   `json:"seed"`
	Key          string  `json:"key"`
	Text         string  `json:"text"`
	Score        float64 `json:"score"`
	Iterations   int     `json:"iterations"`
	Accepted     int     `json:"accepted"`
	Rejected     int     `json:"rejected"`
	Improvements int     `json:"improvements"`
}

// Run is the persisted summary of a solve.
type Run struct {
	VersionedRecord
	ID           string       `json:"id"`
	CreatedAtUTC string       `json:"created_at_utc"`
	Ciphertext   string       `json:"ciphertext"`
	Config       SearchConfig `json:"config"`
	BestKey      string       `json:"best_key"`
	BestText     string       `json:"best_text"`
	BestScore    float64      `json:"best_score"`
	BestRun      int          `json:"best_run"`
	Finals       []RunFinal   `json:"finals"`
	Completed    bool         `json:"completed"`
}

// ProgressPoint is one improvement of a run's global best. Iteration counts
// across every run and restart of a solve.
type ProgressPoint struct {
	Run       int     `json:"run"`
	Iteration int     `json:"iteration"`
	BestScore float64 `json:"best_score"`
	BestText  string  `json:"best_text"`
}

// FiniteScore maps -Inf, the score of a search that never accepted a
// candidate, to the lowest finite float so records stay JSON encodable.
func FiniteScore(s float64) float64 {
	if math.IsInf(s, -1) {
		return -math.MaxFloat64
	}
	return s
}
