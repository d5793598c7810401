package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/plasma1d/internal/config"
	"github.com/san-kum/plasma1d/internal/integrator"
	"github.com/san-kum/plasma1d/internal/plasma"
)

const (
	metadataFile    = "metadata.json"
	diagnosticsFile = "diagnostics.csv"
	profileFile     = "profile.csv"
)

var (
	diagnosticsHeader = []string{"step", "time", "mean_ne", "mean_ni"}
	profileHeader     = []string{"x", "ne", "ni", "te", "ti", "fluxe", "fluxi"}
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Closure   string             `json:"closure"`
	Form      string             `json:"form"`
	Wall      string             `json:"wall"`
	Timestamp time.Time          `json:"timestamp"`
	Width     float64            `json:"width"`
	Nx        int                `json:"nx"`
	Dt        float64            `json:"dt"`
	Steps     int                `json:"steps"`
	Duration  float64            `json:"duration"`
	Status    string             `json:"status"`
	Elapsed   time.Duration      `json:"elapsed"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Profile is the final state as stored in profile.csv.
type Profile struct {
	X, Ne, Ni, Te, Ti, Fluxe, Fluxi []float64
}

func ProfileOf(st *plasma.State) *Profile {
	return &Profile{
		X:     st.Mesh.X(),
		Ne:    st.Ne,
		Ni:    st.Ni,
		Te:    st.Te,
		Ti:    st.Ti,
		Fluxe: st.Fluxe,
		Fluxi: st.Fluxi,
	}
}

func (p *Profile) columns() [][]float64 {
	return [][]float64{p.X, p.Ne, p.Ni, p.Te, p.Ti, p.Fluxe, p.Fluxi}
}

// Save writes a run directory and returns its id.
func (s *Store) Save(cfg *config.Config, res *integrator.Result) (string, error) {
	now := time.Now()
	if err := s.Init(); err != nil {
		return "", err
	}
	base := fmt.Sprintf("%s_%d", res.Closure, now.UnixNano())
	runID := base
	runDir := filepath.Join(s.baseDir, runID)
	for i := 2; ; i++ {
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
		runDir = filepath.Join(s.baseDir, runID)
	}

	meta := RunMetadata{
		ID:        runID,
		Closure:   res.Closure,
		Form:      cfg.Transport.Form,
		Wall:      cfg.Plasma.Wall,
		Timestamp: now,
		Width:     cfg.Mesh.Width,
		Nx:        cfg.Mesh.Nx,
		Dt:        res.Dt,
		Steps:     res.Steps,
		Duration:  res.Time,
		Status:    res.Status.String(),
		Elapsed:   res.Elapsed,
		Metrics:   res.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	if err := writeCSV(filepath.Join(runDir, diagnosticsFile), diagnosticRows(res.Diagnostics)); err != nil {
		return "", err
	}

	if res.Final != nil {
		if err := writeCSV(filepath.Join(runDir, profileFile), profileRows(ProfileOf(res.Final))); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// List returns every readable run, oldest first.
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
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadDiagnostics(runID string) ([]integrator.Diagnostic, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, diagnosticsFile))
	if err != nil {
		return nil, err
	}

	diags := make([]integrator.Diagnostic, 0, len(records))
	for i, record := range records {
		if len(record) != len(diagnosticsHeader) {
			return nil, fmt.Errorf("storage: %s line %d: %d fields", diagnosticsFile, i+2, len(record))
		}
		step, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("storage: %s line %d: %w", diagnosticsFile, i+2, err)
		}
		v, err := parseFloats(record[1:])
		if err != nil {
			return nil, fmt.Errorf("storage: %s line %d: %w", diagnosticsFile, i+2, err)
		}
		diags = append(diags, integrator.Diagnostic{Step: step, Time: v[0], MeanNe: v[1], MeanNi: v[2]})
	}
	return diags, nil
}

func (s *Store) LoadProfile(runID string) (*Profile, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, profileFile))
	if err != nil {
		return nil, err
	}

	p := &Profile{}
	cols := []*[]float64{&p.X, &p.Ne, &p.Ni, &p.Te, &p.Ti, &p.Fluxe, &p.Fluxi}
	for _, c := range cols {
		*c = make([]float64, 0, len(records))
	}
	for i, record := range records {
		if len(record) != len(profileHeader) {
			return nil, fmt.Errorf("storage: %s line %d: %d fields", profileFile, i+2, len(record))
		}
		v, err := parseFloats(record)
		if err != nil {
			return nil, fmt.Errorf("storage: %s line %d: %w", profileFile, i+2, err)
		}
		for j, c := range cols {
			*c = append(*c, v[j])
		}
	}
	return p, nil
}

func diagnosticRows(diags []integrator.Diagnostic) [][]string {
	rows := make([][]string, 0, len(diags)+1)
	rows = append(rows, diagnosticsHeader)
	for _, d := range diags {
		rows = append(rows, []string{
			strconv.Itoa(d.Step),
			formatFloat(d.Time),
			formatFloat(d.MeanNe),
			formatFloat(d.MeanNi),
		})
	}
	return rows
}

func profileRows(p *Profile) [][]string {
	cols := p.columns()
	rows := make([][]string, 0, len(p.X)+1)
	rows = append(rows, profileHeader)
	for i := range p.X {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = formatFloat(c[i])
		}
		rows = append(rows, row)
	}
	return rows
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return csv.NewWriter(f).WriteAll(rows)
}

// readCSV returns the records after the header line.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}

func parseFloats(fields []string) ([]float64, error) {
	v := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		v[i] = x
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
