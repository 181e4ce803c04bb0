package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smentu/AI-guided-rockets/internal/sim"
)

func TestParseProfile_OverridesPreset(t *testing.T) {
	data := []byte(`
base: lander
vehicle:
  name: heavy-lander
  max_engine_angle: 10
  propulsion:
    thrust_force: 3000
  wind: [2, 0, -1]
  reward:
    tilt_limit: 60
`)
	cfg, err := ParseProfile(data, "hover")
	require.NoError(t, err)

	def := sim.LanderConfig()
	assert.Equal(t, "heavy-lander", cfg.Name)
	assert.Equal(t, 10.0, cfg.MaxEngineAngle)
	assert.Equal(t, 3000.0, cfg.Propulsion.ThrustForce)
	assert.Equal(t, mgl64.Vec3{2, 0, -1}, cfg.Wind)
	assert.Equal(t, 60.0, cfg.Reward.TiltLimit)

	// untouched keys keep the preset's values
	assert.Equal(t, def.Propulsion.DryMass, cfg.Propulsion.DryMass)
	assert.Equal(t, def.Reward.TouchdownBase, cfg.Reward.TouchdownBase)
	assert.Len(t, cfg.Fins, 4)
	assert.Equal(t, 0.5, cfg.Propulsion.Curve.Evaluate(0.5))
}

func TestParseProfile_FallbackBase(t *testing.T) {
	cfg, err := ParseProfile([]byte(`vehicle: {thrust_force_unused: 1}`), "missile")
	require.NoError(t, err)
	assert.Equal(t, "missile", cfg.Name)
}

func TestParseProfile_ThrustCurve(t *testing.T) {
	data := []byte(`
base: hover
thrust_curve:
  - {time: 0, value: 0}
  - {time: 0.5, value: 0.1}
  - {time: 1, value: 1}
`)
	cfg, err := ParseProfile(data, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, cfg.Propulsion.Curve.Evaluate(0.5), 1e-12)
	assert.InDelta(t, 0.55, cfg.Propulsion.Curve.Evaluate(0.75), 1e-12)
}

func TestParseProfile_QuadraticSegments(t *testing.T) {
	cfg, err := ParseProfile([]byte("base: lander\nquadratic_segments: 10\n"), "")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, cfg.Propulsion.Curve.Evaluate(0.5), 1e-12)
}

func TestParseProfile_Errors(t *testing.T) {
	_, err := ParseProfile([]byte("base: shuttle\n"), "")
	assert.ErrorIs(t, err, sim.ErrInvalidConfig)

	_, err = ParseProfile([]byte("base: lander\nthrust_curve: [{time: 0, value: 1}, {time: 1, value: 0}]\n"), "")
	assert.ErrorIs(t, err, sim.ErrInvalidCurve)

	_, err = ParseProfile([]byte("base: lander\nvehicle:\n  propulsion:\n    dry_mass: 0\n"), "")
	assert.ErrorIs(t, err, sim.ErrInvalidConfig)

	_, err = ParseProfile([]byte("base: [unclosed"), "")
	assert.Error(t, err)
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base: missile\nvehicle:\n  max_engine_angle: 5\n"), 0644))

	cfg, err := LoadProfile(path, "lander")
	require.NoError(t, err)
	assert.Equal(t, "missile", cfg.Name)
	assert.Equal(t, 5.0, cfg.MaxEngineAngle)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"), "lander")
	assert.Error(t, err)
}
