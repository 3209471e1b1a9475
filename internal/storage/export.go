package storage

import (
	"encoding/json"
	"io"

	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
)

// ExportData is the JSON document written by ExportJSON.
type ExportData struct {
	Meta     RunMetadata        `json:"meta"`
	Times    []float64          `json:"times"`
	States   [][]float64        `json:"states"`
	Controls [][]float64        `json:"controls"`
	Metrics  map[string]float64 `json:"metrics"`
}

// ExportJSON writes a fresh result as one indented JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	data := ExportData{
		Meta:     meta,
		Times:    result.Times,
		States:   make([][]float64, len(result.States)),
		Controls: make([][]float64, len(result.Controls)),
		Metrics:  result.Metrics,
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportJSON re-serializes a stored run as one indented JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	data, err := s.LoadStates(runID)
	if err != nil {
		return err
	}

	doc := struct {
		Meta   RunMetadata `json:"meta"`
		Header []string    `json:"header"`
		Times  []float64   `json:"times"`
		Rows   [][]float64 `json:"rows"`
	}{
		Meta:   *meta,
		Header: data.Header,
		Times:  data.Times,
		Rows:   data.Rows,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
