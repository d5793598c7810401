package config

import "sort"

func preset(closure string, mod func(c *Config)) *Config {
	c := DefaultConfig()
	c.Closure = closure
	mod(c)
	return c
}

var Presets = map[string]map[string]*Config{
	"ambipolar": {
		"afterglow": preset("ambipolar", func(c *Config) {}),
		"sustained": preset("ambipolar", func(c *Config) {
			c.Plasma.Se = 1e20
			c.Run.Steps = 1000
		}),
		"general": preset("ambipolar", func(c *Config) {
			c.Transport.Form = "general"
		}),
		"fine": preset("ambipolar", func(c *Config) {
			c.Mesh.Nx = 101
			c.Run.Steps = 1000
		}),
	},
	"diffusion": {
		"afterglow": preset("diffusion", func(c *Config) {
			c.Run.Steps = 500
		}),
		"reflecting": preset("diffusion", func(c *Config) {
			c.Plasma.Wall = "extension"
			c.Run.Steps = 500
		}),
		"argon": preset("diffusion", func(c *Config) {
			c.Transport.Collisional = &CollisionalConfig{NuE: 5e9, NuI: 5e6, IonMassAMU: 39.948}
			c.Run.Dt = 1e-7
			c.Run.Steps = 2000
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(closure, preset string) *Config {
	closurePresets, ok := Presets[closure]
	if !ok {
		return nil
	}
	cfg, ok := closurePresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(closure string) []string {
	closurePresets, ok := Presets[closure]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(closurePresets))
	for name := range closurePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
