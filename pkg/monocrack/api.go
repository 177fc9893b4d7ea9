package monocrack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"monocrack/internal/cipher"
	"monocrack/internal/lexicon"
	"monocrack/internal/model"
	"monocrack/internal/runner"
	"monocrack/internal/score"
	"monocrack/internal/stats"
	"monocrack/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "monocrack.db"

	DefaultMaxIterations = 10000
	DefaultRestarts      = 10
	DefaultRuns          = 3
)

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string

	// Lexicon and Bigrams default to the embedded English word list and
	// digraph table.
	Lexicon       lexicon.Lexicon
	LexiconSource string
	Bigrams       score.Table
	BigramSource  string

	Logger *slog.Logger
}

type Client struct {
	store     storage.Store
	storeInit bool
	fitness   *score.Fitness
	logger    *slog.Logger

	runsDir       string
	exportsDir    string
	lexiconSource string
	bigramSource  string
}

type SolveRequest struct {
	Ciphertext    string
	MaxIterations int
	Restarts      int
	Runs          int
	Workers       int
	Seed          int64
	// Progress receives improvements from a single goroutine while the
	// solve is in flight.
	Progress func(model.ProgressPoint)
}

type SolveSummary struct {
	RunID        string
	ArtifactsDir string
	Key          cipher.Key
	Text         string
	Score        float64
	BestRun      int
	Finals       []model.RunFinal
	Completed    bool
	Dropped      int
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID         string
	CreatedAtUTC  string
	Seed          int64
	MaxIterations int
	Restarts      int
	Runs          int
	BestScore     float64
	BestText      string
}

type RunRequest struct {
	RunID  string
	Latest bool
}

type ProgressRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lex := opts.Lexicon
	lexiconSource := opts.LexiconSource
	if lex == nil {
		words, err := lexicon.Default()
		if err != nil {
			return nil, fmt.Errorf("load default lexicon: %w", err)
		}
		lex = words
		lexiconSource = "embedded"
	}
	bigrams := opts.Bigrams
	bigramSource := opts.BigramSource
	if bigrams == nil {
		bigrams = score.EnglishBigrams
		bigramSource = "embedded"
	}
	fitness, err := score.NewFitness(bigrams, lex)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		fitness:       fitness,
		logger:        logger.With("component", "client"),
		runsDir:       runsDir,
		exportsDir:    exportsDir,
		lexiconSource: lexiconSource,
		bigramSource:  bigramSource,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

// Reset clears persisted runs. Artifact directories on disk are kept.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	return c.store.Reset(ctx)
}

// Fitness exposes the scorer the client solves with.
func (c *Client) Fitness() *score.Fitness {
	return c.fitness
}

// Solve runs a batch of independent searches, persists the outcome and
// writes run artifacts. When ctx is cancelled mid-batch the finished runs
// are still persisted and the summary is returned with the context error.
func (c *Client) Solve(ctx context.Context, req SolveRequest) (SolveSummary, error) {
	if req.MaxIterations == 0 {
		req.MaxIterations = DefaultMaxIterations
	}
	if req.Restarts == 0 {
		req.Restarts = DefaultRestarts
	}
	if req.Runs == 0 {
		req.Runs = DefaultRuns
	}
	if req.Workers == 0 {
		req.Workers = req.Runs
	}
	cfg := model.SearchConfig{
		MaxIterations: req.MaxIterations,
		Restarts:      req.Restarts,
		Runs:          req.Runs,
		Workers:       req.Workers,
		Seed:          req.Seed,
	}
	if err := runner.Validate(cfg); err != nil {
		return SolveSummary{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return SolveSummary{}, err
	}

	runID := uuid.NewString()
	now := time.Now().UTC()
	logger := c.logger.With("run_id", runID)
	logger.Info("solve started",
		"ciphertext_len", len(req.Ciphertext),
		"max_iterations", cfg.MaxIterations,
		"restarts", cfg.Restarts,
		"runs", cfg.Runs,
		"workers", cfg.Workers,
		"seed", cfg.Seed,
	)

	var points []model.ProgressPoint
	r := &runner.Runner{Scorer: c.fitness, Logger: logger}
	result, runErr := r.Run(ctx, runner.Request{Ciphertext: req.Ciphertext, Config: cfg}, func(p model.ProgressPoint) {
		points = append(points, p)
		if req.Progress != nil {
			req.Progress(p)
		}
	})
	if runErr != nil && (result.Completed == 0 || !isContextErr(runErr)) {
		return SolveSummary{}, runErr
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Iteration < points[j].Iteration })

	run := model.Run{
		ID:           runID,
		CreatedAtUTC: now.Format(time.RFC3339Nano),
		Ciphertext:   req.Ciphertext,
		Config:       cfg,
		BestKey:      result.BestKey.String(),
		BestText:     result.BestText,
		BestScore:    model.FiniteScore(result.BestScore),
		BestRun:      result.BestRun,
		Finals:       finiteFinals(result.Finals),
		Completed:    result.Completed == cfg.Runs,
	}
	storage.Stamp(&run.VersionedRecord)
	// Finished runs are kept after cancellation, so persistence ignores it.
	saveCtx := context.WithoutCancel(ctx)
	if err := c.store.SaveRun(saveCtx, run); err != nil {
		return SolveSummary{}, fmt.Errorf("save run: %w", err)
	}
	if err := c.store.SaveProgress(saveCtx, runID, points); err != nil {
		return SolveSummary{}, fmt.Errorf("save progress: %w", err)
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:         runID,
			Config:        cfg,
			CiphertextLen: len(req.Ciphertext),
			LexiconSource: c.lexiconSource,
			BigramSource:  c.bigramSource,
			CreatedAtUTC:  run.CreatedAtUTC,
		},
		Result: stats.RunResult{
			BestKey:   run.BestKey,
			BestText:  run.BestText,
			BestScore: run.BestScore,
			BestRun:   run.BestRun,
			Finals:    run.Finals,
			Dropped:   result.Dropped,
		},
		Progress: points,
	})
	if err != nil {
		return SolveSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:         runID,
		MaxIterations: cfg.MaxIterations,
		Restarts:      cfg.Restarts,
		Runs:          cfg.Runs,
		Workers:       cfg.Workers,
		Seed:          cfg.Seed,
		BestScore:     run.BestScore,
		BestText:      run.BestText,
		CreatedAtUTC:  run.CreatedAtUTC,
	}); err != nil {
		return SolveSummary{}, err
	}

	summary := SolveSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Key:          result.BestKey,
		Text:         result.BestText,
		Score:        result.BestScore,
		BestRun:      result.BestRun,
		Finals:       append([]model.RunFinal(nil), result.Finals...),
		Completed:    run.Completed,
		Dropped:      result.Dropped,
	}
	return summary, runErr
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:         e.RunID,
			CreatedAtUTC:  e.CreatedAtUTC,
			Seed:          e.Seed,
			MaxIterations: e.MaxIterations,
			Restarts:      e.Restarts,
			Runs:          e.Runs,
			BestScore:     e.BestScore,
			BestText:      e.BestText,
		})
	}
	return out, nil
}

// Run loads a persisted run. Runs missing from the store, as with a fresh
// memory store, are rebuilt from their artifacts.
func (c *Client) Run(ctx context.Context, req RunRequest) (model.Run, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "show")
	if err != nil {
		return model.Run{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return model.Run{}, err
	}

	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.Run{}, err
	}
	if ok {
		return run, nil
	}

	cfg, ok, err := stats.ReadRunConfig(c.runsDir, runID)
	if err != nil {
		return model.Run{}, err
	}
	if !ok {
		return model.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	result, _, err := stats.ReadRunResult(c.runsDir, runID)
	if err != nil {
		return model.Run{}, err
	}
	return model.Run{
		ID:           runID,
		CreatedAtUTC: cfg.CreatedAtUTC,
		Config:       cfg.Config,
		BestKey:      result.BestKey,
		BestText:     result.BestText,
		BestScore:    result.BestScore,
		BestRun:      result.BestRun,
		Finals:       result.Finals,
		Completed:    len(result.Finals) == cfg.Config.Runs,
	}, nil
}

func (c *Client) Progress(ctx context.Context, req ProgressRequest) ([]model.ProgressPoint, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "progress")
	if err != nil {
		return nil, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	points, ok, err := c.store.GetProgress(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		points, ok, err = stats.ReadProgress(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			points, ok, err = stats.ReadProgressCSV(c.runsDir, runID)
			if err != nil {
				return nil, err
			}
		}
		if !ok {
			return nil, fmt.Errorf("progress not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(points) > req.Limit {
		points = points[:req.Limit]
	}
	return append([]model.ProgressPoint(nil), points...), nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveRunID(runID string, latest bool, op string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", fmt.Errorf("%s requires run id or latest", op)
	}
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.storeInit {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.storeInit = true
	return nil
}

func finiteFinals(finals []model.RunFinal) []model.RunFinal {
	out := make([]model.RunFinal, len(finals))
	for i, f := range finals {
		f.Score = model.FiniteScore(f.Score)
		out[i] = f
	}
	return out
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
