package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"monocrack/internal/model"
)

const (
	runIndexFile    = "run_index.json"
	configFile      = "config.json"
	resultFile      = "result.json"
	progressFile    = "progress.json"
	progressCSVFile = "progress.csv"
)

type RunConfig struct {
	RunID         string             `json:"run_id"`
	Config        model.SearchConfig `json:"config"`
	CiphertextLen int                `json:"ciphertext_len"`
	LexiconSource string             `json:"lexicon_source,omitempty"`
	BigramSource  string             `json:"bigram_source,omitempty"`
	CreatedAtUTC  string             `json:"created_at_utc"`
}

type RunResult struct {
	BestKey   string           `json:"best_key"`
	BestText  string           `json:"best_text"`
	BestScore float64          `json:"best_score"`
	BestRun   int              `json:"best_run"`
	Finals    []model.RunFinal `json:"finals"`
	Dropped   int              `json:"dropped_progress_points"`
}

type RunArtifacts struct {
	Config   RunConfig
	Result   RunResult
	Progress []model.ProgressPoint
}

type RunIndexEntry struct {
	RunID         string  `json:"run_id"`
	MaxIterations int     `json:"max_iterations"`
	Restarts      int     `json:"restarts"`
	Runs          int     `json:"runs"`
	Workers       int     `json:"workers"`
	Seed          int64   `json:"seed"`
	BestScore     float64 `json:"best_score"`
	BestText      string  `json:"best_text"`
	CreatedAtUTC  string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes one directory per run under baseDir and returns
// its path.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Config.RunID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, resultFile), artifacts.Result); err != nil {
		return "", err
	}
	progress := artifacts.Progress
	if progress == nil {
		progress = []model.ProgressPoint{}
	}
	if err := writeJSON(filepath.Join(runDir, progressFile), progress); err != nil {
		return "", err
	}
	if err := writeProgressCSV(filepath.Join(runDir, progressCSVFile), progress); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory to outDir/<runID>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, resultFile, progressFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	csvPath := filepath.Join(src, progressCSVFile)
	if _, err := os.Stat(csvPath); err == nil {
		if err := copyFile(csvPath, filepath.Join(dst, progressCSVFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadRunResult(baseDir, runID string) (RunResult, bool, error) {
	var result RunResult
	ok, err := readJSON(filepath.Join(baseDir, runID, resultFile), &result)
	return result, ok, err
}

func ReadProgress(baseDir, runID string) ([]model.ProgressPoint, bool, error) {
	var points []model.ProgressPoint
	ok, err := readJSON(filepath.Join(baseDir, runID, progressFile), &points)
	return points, ok, err
}

func writeProgressCSV(path string, points []model.ProgressPoint) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"run", "iteration", "best_score", "best_text"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{
			strconv.Itoa(p.Run),
			strconv.Itoa(p.Iteration),
			strconv.FormatFloat(p.BestScore, 'f', -1, 64),
			p.BestText,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadProgressCSV reads progress.csv. It serves as the progress source for
// run directories whose progress.json is missing.
func ReadProgressCSV(baseDir, runID string) ([]model.ProgressPoint, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, progressCSVFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.ProgressPoint{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 3 {
		return nil, false, fmt.Errorf("progress header must have at least 3 columns")
	}

	points := make([]model.ProgressPoint, 0, 64)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 3 {
			return nil, false, fmt.Errorf("progress line %d: expected at least 3 columns", line)
		}
		var p model.ProgressPoint
		if p.Run, err = strconv.Atoi(record[0]); err != nil {
			return nil, false, fmt.Errorf("progress line %d: run: %w", line, err)
		}
		if p.Iteration, err = strconv.Atoi(record[1]); err != nil {
			return nil, false, fmt.Errorf("progress line %d: iteration: %w", line, err)
		}
		if p.BestScore, err = strconv.ParseFloat(record[2], 64); err != nil {
			return nil, false, fmt.Errorf("progress line %d: best score: %w", line, err)
		}
		if len(record) > 3 {
			p.BestText = record[3]
		}
		points = append(points, p)
	}
	return points, true, nil
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
