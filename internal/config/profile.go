package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/smentu/AI-guided-rockets/internal/sim"
)

// Profile is a YAML vehicle profile. Vehicle holds overrides decoded over the
// Base preset; keys it omits keep the preset's values.
type Profile struct {
	Base    string    `yaml:"base"`
	Vehicle yaml.Node `yaml:"vehicle"`

	// ThrustCurve replaces the response curve with explicit keyframes.
	ThrustCurve []sim.Keyframe `yaml:"thrust_curve"`
	// QuadraticSegments, when positive and no keyframes are given, selects the
	// t² response approximated with that many segments.
	QuadraticSegments int `yaml:"quadratic_segments"`
}

// LoadProfile reads a YAML profile file and returns the resulting vehicle.
// fallback names the preset used when the profile has no base.
func LoadProfile(path, fallback string) (sim.VehicleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.VehicleConfig{}, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data, fallback)
}

// ParseProfile decodes profile YAML over a preset.
func ParseProfile(data []byte, fallback string) (sim.VehicleConfig, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return sim.VehicleConfig{}, fmt.Errorf("decode profile: %w", err)
	}
	base := p.Base
	if base == "" {
		base = fallback
	}
	cfg, err := sim.Preset(base)
	if err != nil {
		return sim.VehicleConfig{}, err
	}
	if !p.Vehicle.IsZero() {
		if err := p.Vehicle.Decode(&cfg); err != nil {
			return sim.VehicleConfig{}, fmt.Errorf("decode vehicle overrides: %w", err)
		}
	}

	switch {
	case len(p.ThrustCurve) > 0:
		c, err := sim.NewCurve(p.ThrustCurve...)
		if err != nil {
			return sim.VehicleConfig{}, err
		}
		cfg.Propulsion.Curve = c
	case p.QuadraticSegments > 0:
		cfg.Propulsion.Curve = sim.QuadraticCurve(p.QuadraticSegments)
	}

	if err := cfg.Validate(); err != nil {
		return sim.VehicleConfig{}, err
	}
	return cfg, nil
}
