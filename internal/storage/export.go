package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/plasma1d/internal/integrator"
)

type ExportData struct {
	RunMetadata
	Diagnostics []integrator.Diagnostic `json:"diagnostics"`
	Profile     *ExportProfile          `json:"profile,omitempty"`
}

type ExportProfile struct {
	X     []float64 `json:"x"`
	Ne    []float64 `json:"ne"`
	Ni    []float64 `json:"ni"`
	Te    []float64 `json:"te"`
	Ti    []float64 `json:"ti"`
	Fluxe []float64 `json:"fluxe"`
	Fluxi []float64 `json:"fluxi"`
}

// Export gathers everything stored for a run. A missing profile is not an
// error.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	diags, err := s.LoadDiagnostics(runID)
	if err != nil {
		return nil, err
	}
	data := &ExportData{RunMetadata: *meta, Diagnostics: diags}

	p, err := s.LoadProfile(runID)
	switch {
	case err == nil:
		data.Profile = &ExportProfile{X: p.X, Ne: p.Ne, Ni: p.Ni, Te: p.Te, Ti: p.Ti, Fluxe: p.Fluxe, Fluxi: p.Fluxi}
	case !os.IsNotExist(err):
		return nil, err
	}
	return data, nil
}

func ExportJSON(path string, data *ExportData) error {
	return writeJSON(path, data)
}

func WriteJSON(w io.Writer, data *ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// WriteDiagnosticsCSV writes the diagnostic history with a header line.
func WriteDiagnosticsCSV(w io.Writer, diags []integrator.Diagnostic) error {
	return csv.NewWriter(w).WriteAll(diagnosticRows(diags))
}

// WriteProfileCSV writes a profile with a header line.
func WriteProfileCSV(w io.Writer, p *Profile) error {
	return csv.NewWriter(w).WriteAll(profileRows(p))
}
