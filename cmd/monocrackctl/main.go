package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strconv"

	"github.com/cheynewallace/tabby"

	"monocrack/internal/cipher"
	"monocrack/internal/lexicon"
	"monocrack/internal/model"
	"monocrack/internal/score"
	"monocrack/internal/storage"
	"monocrack/pkg/monocrack"
)

const (
	runsDir       = "runs"
	exportsDir    = "exports"
	defaultDBPath = "monocrack.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "solve":
		return runSolve(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "progress":
		return runProgress(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "decrypt":
		return runDecrypt(ctx, args[1:])
	case "encrypt":
		return runEncrypt(ctx, args[1:])
	case "freq":
		return runFreq(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type storeFlags struct {
	kind   *string
	dbPath *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:   fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath: fs.String("db-path", defaultDBPath, "sqlite database path"),
	}
}

func (f storeFlags) client() (*monocrack.Client, error) {
	return newClient(*f.kind, *f.dbPath, "", "", slog.Default())
}

func newClient(storeKind, dbPath, wordsPath, bigramsPath string, logger *slog.Logger) (*monocrack.Client, error) {
	opts := monocrack.Options{
		StoreKind:  storeKind,
		DBPath:     dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
		Logger:     logger,
	}
	if wordsPath != "" {
		words, err := lexicon.LoadFile(wordsPath)
		if err != nil {
			return nil, err
		}
		opts.Lexicon = words
		opts.LexiconSource = wordsPath
	}
	if bigramsPath != "" {
		table, err := score.LoadTableFile(bigramsPath)
		if err != nil {
			return nil, err
		}
		opts.Bigrams = table
		opts.BigramSource = bigramsPath
	}
	return monocrack.New(opts)
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *sf.kind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *sf.kind)
	return nil
}

func runSolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("solve", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML config path; explicitly set flags win")
	text := fs.String("text", "", "ciphertext")
	file := fs.String("file", "", "read ciphertext from file")
	iterations := fs.Int("iterations", monocrack.DefaultMaxIterations, "iterations per restart")
	restarts := fs.Int("restarts", monocrack.DefaultRestarts, "restarts per run")
	runs := fs.Int("runs", monocrack.DefaultRuns, "independent runs")
	workers := fs.Int("workers", 0, "parallel runs (0 uses one per run)")
	seed := fs.Int64("seed", 1, "rng seed; run r uses seed+r")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	words := fs.String("words", "", "word list path (default: embedded English list)")
	bigrams := fs.String("bigrams", "", "bigram table path (default: embedded English table)")
	upper := fs.Bool("upper", false, "uppercase the ciphertext before solving")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	jsonOut := fs.Bool("json", false, "emit the result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	cfg, err := loadSolveConfig(*configPath, solveConfig{
		MaxIterations: *iterations,
		Restarts:      *restarts,
		Runs:          *runs,
		Workers:       *workers,
		Seed:          *seed,
		Store:         *storeKind,
		DBPath:        *dbPath,
		Words:         *words,
		Bigrams:       *bigrams,
		Upper:         *upper,
		LogLevel:      *logLevel,
	})
	if err != nil {
		return err
	}
	if *configPath != "" {
		if err := overrideFromFlags(&cfg, setFlags, map[string]any{
			"iterations": *iterations,
			"restarts":   *restarts,
			"runs":       *runs,
			"workers":    *workers,
			"seed":       *seed,
			"store":      *storeKind,
			"db-path":    *dbPath,
			"words":      *words,
			"bigrams":    *bigrams,
			"upper":      *upper,
			"log-level":  *logLevel,
		}); err != nil {
			return err
		}
	}
	if cfg.MaxIterations <= 0 || cfg.Restarts <= 0 || cfg.Runs <= 0 {
		return errors.New("iterations, restarts and runs must be > 0")
	}
	if cfg.Workers < 0 {
		return errors.New("workers must be >= 0")
	}

	logger, err := newLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	ciphertext, err := readInput(*text, *file, os.Stdin, cfg.Upper)
	if err != nil {
		return err
	}

	client, err := newClient(cfg.Store, cfg.DBPath, cfg.Words, cfg.Bigrams, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Solve(ctx, monocrack.SolveRequest{
		Ciphertext:    ciphertext,
		MaxIterations: cfg.MaxIterations,
		Restarts:      cfg.Restarts,
		Runs:          cfg.Runs,
		Workers:       cfg.Workers,
		Seed:          cfg.Seed,
		Progress: func(p model.ProgressPoint) {
			logger.Debug("improved", "run", p.Run, "iteration", p.Iteration, "score", p.BestScore)
		},
	})
	if err != nil && summary.RunID == "" {
		return err
	}
	if err != nil {
		logger.Warn("solve interrupted; partial result kept", "error", err)
	}

	if *jsonOut {
		return printJSON(struct {
			RunID        string           `json:"run_id"`
			ArtifactsDir string           `json:"artifacts_dir"`
			Key          string           `json:"key"`
			Plaintext    string           `json:"plaintext"`
			Score        float64          `json:"score"`
			BestRun      int              `json:"best_run"`
			Completed    bool             `json:"completed"`
			Finals       []model.RunFinal `json:"finals"`
		}{
			RunID:        summary.RunID,
			ArtifactsDir: summary.ArtifactsDir,
			Key:          summary.Key.String(),
			Plaintext:    summary.Text,
			Score:        model.FiniteScore(summary.Score),
			BestRun:      summary.BestRun,
			Completed:    summary.Completed,
			Finals:       finiteFinals(summary.Finals),
		})
	}

	fmt.Printf("run completed run_id=%s best_run=%d best_score=%.4f completed=%t\n", summary.RunID, summary.BestRun, summary.Score, summary.Completed)
	fmt.Printf("artifacts=%s\n", summary.ArtifactsDir)
	fmt.Printf("key=%s\n", summary.Key.Pairs())
	fmt.Printf("plaintext=%s\n", summary.Text)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	items, err := client.Runs(ctx, monocrack.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	if *jsonOut {
		type runsItem struct {
			RunID         string  `json:"run_id"`
			CreatedAtUTC  string  `json:"created_at_utc"`
			Seed          int64   `json:"seed"`
			MaxIterations int     `json:"max_iterations"`
			Restarts      int     `json:"restarts"`
			Runs          int     `json:"runs"`
			BestScore     float64 `json:"best_score"`
			BestText      string  `json:"best_text"`
		}
		out := make([]runsItem, 0, len(items))
		for _, item := range items {
			out = append(out, runsItem(item))
		}
		return printJSON(out)
	}

	table := tabby.New()
	table.AddHeader("RUN ID", "CREATED", "SEED", "ITERATIONS", "RESTARTS", "RUNS", "BEST SCORE")
	for _, item := range items {
		table.AddLine(item.RunID, item.CreatedAtUTC, item.Seed, item.MaxIterations, item.Restarts, item.Runs, formatScore(item.BestScore))
	}
	table.Print()
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the latest run")
	jsonOut := fs.Bool("json", false, "emit the run as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	run, err := client.Run(ctx, monocrack.RunRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(run)
	}

	key := run.BestKey
	if parsed, err := cipher.ParseKey(run.BestKey); err == nil {
		key = parsed.Pairs()
	}
	fmt.Printf("run_id=%s created_at=%s best_run=%d best_score=%s completed=%t\n", run.ID, run.CreatedAtUTC, run.BestRun, formatScore(run.BestScore), run.Completed)
	fmt.Printf("key=%s\n", key)
	fmt.Printf("plaintext=%s\n", run.BestText)

	table := tabby.New()
	table.AddHeader("RUN", "SEED", "SCORE", "ACCEPTED", "REJECTED", "IMPROVEMENTS")
	for _, f := range run.Finals {
		table.AddLine(f.Run, f.Seed, formatScore(f.Score), f.Accepted, f.Rejected, f.Improvements)
	}
	table.Print()
	return nil
}

func runProgress(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("progress", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the latest run")
	limit := fs.Int("limit", 0, "max points to print (0 prints all)")
	jsonOut := fs.Bool("json", false, "emit progress as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	points, err := client.Progress(ctx, monocrack.ProgressRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(points)
	}
	table := tabby.New()
	table.AddHeader("ITERATION", "RUN", "BEST SCORE", "TEXT")
	for _, p := range points {
		table.AddLine(p.Iteration, p.Run, formatScore(p.BestScore), truncate(p.BestText, 60))
	}
	table.Print()
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the latest run")
	outDir := fs.String("out", exportsDir, "export directory")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	exported, err := client.Export(ctx, monocrack.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runDecrypt(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("decrypt", flag.ContinueOnError)
	keyText := fs.String("key", "", "key as 26 letter images or A=X pairs")
	text := fs.String("text", "", "ciphertext")
	file := fs.String("file", "", "read ciphertext from file")
	upper := fs.Bool("upper", false, "uppercase the ciphertext first")
	showScore := fs.Bool("score", false, "also print the fitness breakdown")
	words := fs.String("words", "", "word list path for -score")
	bigrams := fs.String("bigrams", "", "bigram table path for -score")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keyText == "" {
		return errors.New("decrypt requires -key")
	}
	key, err := cipher.ParseKey(*keyText)
	if err != nil {
		return err
	}
	ciphertext, err := readInput(*text, *file, os.Stdin, *upper)
	if err != nil {
		return err
	}

	plaintext := cipher.Decrypt(ciphertext, key)
	fmt.Printf("plaintext=%s\n", plaintext)
	if !*showScore {
		return nil
	}
	client, err := newClient("memory", "", *words, *bigrams, slog.Default())
	if err != nil {
		return err
	}
	bigram, lexical := client.Fitness().Breakdown(plaintext)
	fmt.Printf("score=%.4f bigram=%.4f lexical=%.4f\n", bigram+lexical, bigram, lexical)
	return nil
}

func runEncrypt(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	keyText := fs.String("key", "", "key as 26 letter images or A=X pairs (default: random)")
	seed := fs.Int64("seed", 1, "rng seed for a random key")
	text := fs.String("text", "", "plaintext")
	file := fs.String("file", "", "read plaintext from file")
	upper := fs.Bool("upper", false, "uppercase the plaintext first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var key cipher.Key
	if *keyText != "" {
		parsed, err := cipher.ParseKey(*keyText)
		if err != nil {
			return err
		}
		key = parsed
	} else {
		key = cipher.RandomKey(rand.New(rand.NewSource(*seed)))
	}
	plaintext, err := readInput(*text, *file, os.Stdin, *upper)
	if err != nil {
		return err
	}

	fmt.Printf("key=%s\n", key)
	fmt.Printf("ciphertext=%s\n", cipher.Encrypt(plaintext, key))
	return nil
}

func runFreq(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("freq", flag.ContinueOnError)
	text := fs.String("text", "", "text to analyse")
	file := fs.String("file", "", "read text from file")
	upper := fs.Bool("upper", false, "uppercase the text first")
	jsonOut := fs.Bool("json", false, "emit counts as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	input, err := readInput(*text, *file, os.Stdin, *upper)
	if err != nil {
		return err
	}

	counts := cipher.Frequencies(input)
	if *jsonOut {
		type freqItem struct {
			Letter string `json:"letter"`
			Count  int    `json:"count"`
		}
		out := make([]freqItem, 0, len(counts))
		for _, c := range counts {
			out = append(out, freqItem{Letter: string(c.Letter), Count: c.Count})
		}
		return printJSON(out)
	}
	if len(counts) == 0 {
		fmt.Println("no letters found")
		return nil
	}
	table := tabby.New()
	table.AddHeader("LETTER", "COUNT")
	for _, c := range counts {
		table.AddLine(string(c.Letter), c.Count)
	}
	table.Print()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func finiteFinals(finals []model.RunFinal) []model.RunFinal {
	out := make([]model.RunFinal, len(finals))
	for i, f := range finals {
		f.Score = model.FiniteScore(f.Score)
		out[i] = f
	}
	return out
}

func formatScore(s float64) string {
	if math.IsInf(s, -1) || s == -math.MaxFloat64 {
		return "-inf"
	}
	return strconv.FormatFloat(s, 'f', 4, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: monocrackctl <init|reset|solve|runs|show|progress|export|decrypt|encrypt|freq> [flags]", msg)
}
