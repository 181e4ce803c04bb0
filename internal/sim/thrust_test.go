package sim_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/smentu/AI-guided-rockets/internal/sim"
)

func TestCurveValidation(t *testing.T) {
	_, err := sim.NewCurve()
	if !errors.Is(err, sim.ErrInvalidCurve) {
		t.Fatalf("expected ErrInvalidCurve for empty curve, got %v", err)
	}
	_, err = sim.NewCurve(sim.Keyframe{Time: 0, Value: 0.5}, sim.Keyframe{Time: 1, Value: 0.2})
	if !errors.Is(err, sim.ErrInvalidCurve) {
		t.Fatalf("expected ErrInvalidCurve for decreasing curve, got %v", err)
	}
	_, err = sim.NewCurve(sim.Keyframe{Time: 0.5, Value: 0}, sim.Keyframe{Time: 0.5, Value: 1})
	if !errors.Is(err, sim.ErrInvalidCurve) {
		t.Fatalf("expected ErrInvalidCurve for duplicate keys, got %v", err)
	}
}

func TestCurveEvaluate(t *testing.T) {
	c, err := sim.NewCurve(
		sim.Keyframe{Time: 1, Value: 1},
		sim.Keyframe{Time: 0, Value: 0},
		sim.Keyframe{Time: 0.5, Value: 0.2},
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, c.Evaluate(0.25), 1e-12)
	assert.InDelta(t, 0.6, c.Evaluate(0.75), 1e-12)
	assert.Equal(t, 0.0, c.Evaluate(-1))
	assert.Equal(t, 1.0, c.Evaluate(2))
	assert.Len(t, c.Keys(), 3)

	var zero sim.Curve
	assert.Equal(t, 0.3, zero.Evaluate(0.3))
	assert.Equal(t, 1.0, zero.Evaluate(7))

	q := sim.QuadraticCurve(10)
	assert.InDelta(t, 0.25, q.Evaluate(0.5), 1e-12)
}

func landerPropulsion() sim.PropulsionConfig {
	return sim.PropulsionConfig{
		ThrustForce:  2500,
		MaxFuel:      100,
		StartingFuel: 1,
		FuelMass:     80,
		DryMass:      20,
		ConsumeFuel:  true,
		Curve:        sim.IdentityCurve(),
	}
}

func TestBurnFullThrottle(t *testing.T) {
	p := sim.NewPropulsion(landerPropulsion())
	eff, imp := p.Burn(1, 0.02)
	assert.Equal(t, 1.0, eff)
	assert.InDelta(t, 50.0, imp, 1e-9)
	assert.InDelta(t, 99.98, p.Fuel(), 1e-9)
	assert.InDelta(t, 20+80*0.9998, p.Mass(), 1e-9)
}

func TestBurnLastDrop(t *testing.T) {
	cfg := landerPropulsion()
	cfg.MaxFuel = 1
	cfg.StartingFuel = 0.01
	p := sim.NewPropulsion(cfg)

	_, imp := p.Burn(1, 0.02)
	if math.Abs(imp-50) > 1e-9 {
		t.Fatalf("expected a full impulse from the last drop, got %v", imp)
	}
	if p.Fuel() != 0 {
		t.Fatalf("fuel should clamp at zero, got %v", p.Fuel())
	}
	eff, imp := p.Burn(1, 0.02)
	if eff != 1 || imp != 0 {
		t.Fatalf("empty tank should report effective 1 and no impulse, got %v %v", eff, imp)
	}
}

func TestBurnWithoutConsumption(t *testing.T) {
	cfg := landerPropulsion()
	cfg.ConsumeFuel = false
	p := sim.NewPropulsion(cfg)
	for i := 0; i < 100; i++ {
		p.Burn(1, 0.1)
	}
	assert.Equal(t, 100.0, p.Fuel())
}

func TestFuelMonotonic(t *testing.T) {
	p := sim.NewPropulsion(landerPropulsion())
	prev := p.Fuel()
	for i := 0; i < 10000; i++ {
		p.Burn(math.Mod(float64(i)*0.37, 1.3)-0.1, 0.02)
		if p.Fuel() > prev || p.Fuel() < 0 {
			t.Fatalf("fuel went from %v to %v at step %d", prev, p.Fuel(), i)
		}
		prev = p.Fuel()
	}
	p.Refuel()
	assert.Equal(t, 100.0, p.Fuel())
	assert.Equal(t, 1.0, p.FuelFraction())
}

func TestMassIdempotent(t *testing.T) {
	p := sim.NewPropulsion(landerPropulsion())
	full := p.Mass()
	assert.Equal(t, full, p.Mass())
	assert.Equal(t, 100.0, full)

	p.Burn(0.6, 0.5)
	burnt := p.Mass()
	for i := 0; i < 3; i++ {
		assert.Equal(t, burnt, p.Mass())
	}
	assert.Less(t, burnt, full)

	p.Refuel()
	assert.Equal(t, full, p.Mass())
	assert.Equal(t, p.Mass(), p.Mass())
}

func TestFuelDropsOnlyWhileBurning(t *testing.T) {
	for _, throttle := range []float64{-0.5, 0, 0.01, 0.3, 1, 1.5} {
		p := sim.NewPropulsion(landerPropulsion())
		before := p.Fuel()
		eff, _ := p.Burn(throttle, 0.02)
		if eff > 0 {
			assert.Less(t, p.Fuel(), before, "throttle %v", throttle)
		} else {
			assert.Equal(t, before, p.Fuel(), "throttle %v", throttle)
		}
	}

	cfg := landerPropulsion()
	cfg.StartingFuel = 0
	empty := sim.NewPropulsion(cfg)
	eff, imp := empty.Burn(1, 0.02)
	assert.Equal(t, 1.0, eff)
	assert.Equal(t, 0.0, imp)
	assert.Equal(t, 0.0, empty.Fuel())
	assert.Equal(t, 20.0, empty.Mass())
}
