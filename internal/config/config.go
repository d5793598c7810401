package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/plasma1d/internal/plasma"
	"github.com/san-kum/plasma1d/internal/transport"
)

const (
	DefaultClosure = "ambipolar"
	DefaultWidth   = 0.1
	DefaultNx      = 11
	DefaultDt      = 1e-6
	DefaultSteps   = 100
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Closure   string          `yaml:"closure"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Plasma    PlasmaConfig    `yaml:"plasma"`
	Transport TransportConfig `yaml:"transport"`
	Run       RunConfig       `yaml:"run"`
}

type MeshConfig struct {
	Width float64 `yaml:"width"`
	Nx    int     `yaml:"nx"`
}

// PlasmaConfig seeds a uniform state. Densities in m^-3, temperatures in
// eV, source in m^-3 s^-1.
type PlasmaConfig struct {
	Ne     float64       `yaml:"ne"`
	Nn     float64       `yaml:"nn"`
	Te     float64       `yaml:"te"`
	Ti     float64       `yaml:"ti"`
	Se     float64       `yaml:"se"`
	Wall   string        `yaml:"wall"`
	Limits plasma.Limits `yaml:"limits"`
}

type TransportConfig struct {
	Form     string             `yaml:"form"`
	Static   bool               `yaml:"static"`
	Baseline transport.Baseline `yaml:"baseline"`
	Limits   transport.Limits   `yaml:"limits"`
	// Collisional replaces the baseline when set.
	Collisional *CollisionalConfig `yaml:"collisional,omitempty"`
}

// CollisionalConfig holds uniform momentum-transfer frequencies (1/s).
type CollisionalConfig struct {
	NuE        float64 `yaml:"nu_e"`
	NuI        float64 `yaml:"nu_i"`
	IonMassAMU float64 `yaml:"ion_mass_amu"`
}

type RunConfig struct {
	Dt    float64 `yaml:"dt"`
	Steps int     `yaml:"steps"`
}

func DefaultConfig() *Config {
	u := plasma.DefaultUniform()
	return &Config{
		Closure: DefaultClosure,
		Mesh:    MeshConfig{Width: DefaultWidth, Nx: DefaultNx},
		Plasma: PlasmaConfig{
			Ne:     u.Ne,
			Nn:     u.Nn,
			Te:     u.Te,
			Ti:     u.Ti,
			Se:     u.Se,
			Wall:   plasma.Absorbing.String(),
			Limits: plasma.DefaultLimits(),
		},
		Transport: TransportConfig{
			Form:     transport.Simplified.String(),
			Baseline: transport.DefaultBaseline(),
			Limits:   transport.DefaultLimits(),
		},
		Run: RunConfig{Dt: DefaultDt, Steps: DefaultSteps},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	if c.Transport.Collisional != nil {
		col := *c.Transport.Collisional
		cp.Transport.Collisional = &col
	}
	return &cp
}

// Validate checks the run section and the names used in the file. Physical
// ranges are checked when the mesh and state are built.
func (c *Config) Validate() error {
	if !(c.Run.Dt > 0) {
		return fmt.Errorf("%w: run.dt must be positive, got %g", ErrInvalid, c.Run.Dt)
	}
	if c.Run.Steps <= 0 {
		return fmt.Errorf("%w: run.steps must be positive, got %d", ErrInvalid, c.Run.Steps)
	}
	if _, err := plasma.ParseWall(c.Plasma.Wall); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := transport.ParseAmbipolarForm(c.Transport.Form); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Duration is the simulated time covered by the run section.
func (c *Config) Duration() float64 {
	return c.Run.Dt * float64(c.Run.Steps)
}
