package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"monocrack/internal/cipher"
	"monocrack/internal/model"
	"monocrack/internal/search"
)

const defaultProgressBuffer = 1024

var ErrInvalidRequest = errors.New("invalid solve request")

type Request struct {
	Ciphertext string
	Config     model.SearchConfig
}

// Sink receives progress points from a single goroutine. Points of
// different runs interleave in arrival order.
type Sink func(model.ProgressPoint)

type Result struct {
	BestKey   cipher.Key
	BestText  string
	BestScore float64
	BestRun   int
	Finals    []model.RunFinal
	Completed int
	Dropped   int
}

// Runner executes independent hill-climbing searches over one ciphertext.
type Runner struct {
	Scorer search.Scorer
	Logger *slog.Logger
	// ProgressBuffer bounds the progress channel; points that do not fit are
	// dropped and counted.
	ProgressBuffer int
}

func New(scorer search.Scorer, logger *slog.Logger) *Runner {
	return &Runner{Scorer: scorer, Logger: logger}
}

func Validate(cfg model.SearchConfig) error {
	switch {
	case cfg.Runs <= 0:
		return fmt.Errorf("%w: runs must be > 0", ErrInvalidRequest)
	case cfg.Workers <= 0:
		return fmt.Errorf("%w: workers must be > 0", ErrInvalidRequest)
	case cfg.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations must be > 0", ErrInvalidRequest)
	case cfg.Restarts <= 0:
		return fmt.Errorf("%w: restarts must be > 0", ErrInvalidRequest)
	}
	return nil
}

// Run executes req.Config.Runs searches, run r seeded with Seed+r. Progress
// iterations are offset by r*MaxIterations*Restarts so they are unique across
// the batch. Cancellation stops runs that have not started; the partial
// result is returned together with the context error.
func (r *Runner) Run(ctx context.Context, req Request, sink Sink) (Result, error) {
	if r == nil || r.Scorer == nil {
		return Result{}, search.ErrNilScorer
	}
	cfg := req.Config
	if err := Validate(cfg); err != nil {
		return Result{}, err
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	buffer := r.ProgressBuffer
	if buffer <= 0 {
		buffer = defaultProgressBuffer
	}
	points := make(chan model.ProgressPoint, buffer)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for p := range points {
			if sink != nil {
				sink(p)
			}
		}
	}()

	var dropped atomic.Int64
	perRun := cfg.MaxIterations * cfg.Restarts
	finals := make([]model.RunFinal, cfg.Runs)
	keys := make([]cipher.Key, cfg.Runs)
	done := make([]bool, cfg.Runs)
	errs := make([]error, cfg.Runs)

	p := pool.New().WithMaxGoroutines(cfg.Workers)
	for run := 0; run < cfg.Runs; run++ {
		if ctx.Err() != nil {
			break
		}
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			seed := cfg.Seed + int64(run)
			h := &search.HillClimber{
				Rand:          rand.New(rand.NewSource(seed)),
				MaxIterations: cfg.MaxIterations,
				Restarts:      cfg.Restarts,
				Scorer:        r.Scorer,
			}
			offset := run * perRun
			res, err := h.Run(req.Ciphertext, func(iteration int, best float64, text string) {
				point := model.ProgressPoint{Run: run, Iteration: offset + iteration, BestScore: best, BestText: text}
				select {
				case points <- point:
				default:
					dropped.Add(1)
				}
			})
			if err != nil {
				errs[run] = err
				return
			}
			keys[run] = res.Key
			finals[run] = model.RunFinal{
				Run:          run,
				Seed:         seed,
				Key:          res.Key.String(),
				Text:         res.Text,
				Score:        res.Score,
				Iterations:   res.Report.IterationsExecuted,
				Accepted:     res.Report.AcceptedCandidates,
				Rejected:     res.Report.RejectedCandidates,
				Improvements: res.Report.Improvements,
			}
			done[run] = true
			logger.Debug("run finished", "searcher", h.Name(), "run", run, "seed", seed, "score", res.Score)
		})
	}
	p.Wait()
	close(points)
	<-drained

	if err := errors.Join(errs...); err != nil {
		return Result{}, err
	}

	result := Result{BestScore: math.Inf(-1), BestRun: -1, Dropped: int(dropped.Load())}
	for run := range finals {
		if !done[run] {
			continue
		}
		f := finals[run]
		result.Finals = append(result.Finals, f)
		result.Completed++
		if result.BestRun < 0 || f.Score > result.BestScore {
			result.BestRun = run
			result.BestKey = keys[run]
			result.BestText = f.Text
			result.BestScore = f.Score
		}
	}

	if result.Dropped > 0 {
		logger.Warn("progress points dropped", "dropped", result.Dropped)
	}
	logger.Info("solve finished",
		"runs", cfg.Runs,
		"completed", result.Completed,
		"best_run", result.BestRun,
		"best_score", result.BestScore,
	)

	if result.Completed < cfg.Runs {
		return result, ctx.Err()
	}
	return result, nil
}
