// Package storage persists simulation runs on disk.
//
// Each run lives in its own directory under the base dir, named
// <controller>_<trajectory>_<unixtime>, holding a metadata.json and a
// states.csv with the full time series.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
)

// ErrNoRuns is returned by Latest when the base directory holds no runs.
var ErrNoRuns = errors.New("no stored runs")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one stored run.
type RunMetadata struct {
	ID         string             `json:"id"`
	Controller string             `json:"controller"`
	Trajectory string             `json:"trajectory"`
	Integrator string             `json:"integrator"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	FilterRate float64            `json:"filter_rate"`
	UAVMass    float64            `json:"uav_mass"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes the run into a fresh directory and returns its id. The
// metadata's ID, Timestamp and Metrics fields are filled here.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.ID = fmt.Sprintf("%s_%s_%d", meta.Controller, meta.Trajectory, time.Now().Unix())
	meta.Timestamp = time.Now()
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(result.States) == 0 {
		return meta.ID, nil
	}

	header := []string{"time"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	numControls := 0
	if len(result.Controls) > 0 {
		numControls = len(result.Controls[0])
		for i := 0; i < numControls; i++ {
			header = append(header, fmt.Sprintf("u%d", i))
		}
	}
	hasRefs := len(result.Refs) > 0
	if hasRefs {
		header = append(header, "ref_x", "ref_y", "ref_z")
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i := range result.States {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(result.Times[i], 'f', 6, 64))
		for _, v := range result.States[i] {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}

		// Controls and references hold one sample per step, states one
		// more; the final row repeats the last sample.
		if numControls > 0 {
			u := result.Controls[min(i, len(result.Controls)-1)]
			for _, v := range u {
				row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
			}
		}
		if hasRefs {
			r := result.Refs[min(i, len(result.Refs)-1)]
			row = append(row,
				strconv.FormatFloat(r.X, 'f', 6, 64),
				strconv.FormatFloat(r.Y, 'f', 6, 64),
				strconv.FormatFloat(r.Z, 'f', 6, 64))
		}

		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return meta.ID, nil
}

// List returns the metadata of every stored run, newest first. Directories
// without a readable metadata.json are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})

	return runs, nil
}

// Latest returns the most recently saved run.
func (s *Store) Latest() (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[0], nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// RunData is the parsed states.csv of one run. Rows hold every column,
// including time; Times duplicates the first column for convenience.
type RunData struct {
	Header []string
	Times  []float64
	Rows   [][]float64
}

// Column returns the values of the named column, or nil when absent.
func (d *RunData) Column(name string) []float64 {
	for j, h := range d.Header {
		if h != name {
			continue
		}
		col := make([]float64, 0, len(d.Rows))
		for _, row := range d.Rows {
			if j < len(row) {
				col = append(col, row[j])
			}
		}
		return col
	}
	return nil
}

// LoadStates reads a run's time series back. Rows that fail to parse are
// skipped.
func (s *Store) LoadStates(runID string) (*RunData, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	data := &RunData{}
	if len(records) == 0 {
		return data, nil
	}
	data.Header = records[0]

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		row := make([]float64, 0, len(record))
		ok := true
		for _, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			row = append(row, v)
		}
		if !ok {
			continue
		}

		data.Times = append(data.Times, row[0])
		data.Rows = append(data.Rows, row)
	}

	return data, nil
}
