package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrInvalidCurve reports a thrust curve that is empty, unordered or not monotonic.
	ErrInvalidCurve = errors.New("invalid thrust curve")
	// ErrInvalidConfig reports a vehicle configuration that cannot be simulated.
	ErrInvalidConfig = errors.New("invalid vehicle config")
)

// Keyframe is one point of a thrust response curve.
type Keyframe struct {
	Time  float64 `yaml:"time" json:"time"`
	Value float64 `yaml:"value" json:"value"`
}

// Curve maps commanded throttle to effective thrust by piecewise-linear
// interpolation. It is clamped at its end keys and to [0, 1].
// The zero Curve is the identity response.
type Curve struct {
	keys []Keyframe
}

// NewCurve validates the keys and builds a curve. Keys must have strictly
// increasing times and non-decreasing values.
func NewCurve(keys ...Keyframe) (Curve, error) {
	if len(keys) == 0 {
		return Curve{}, fmt.Errorf("%w: no keys", ErrInvalidCurve)
	}
	ks := append([]Keyframe(nil), keys...)
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].Time < ks[j].Time })
	for i := 1; i < len(ks); i++ {
		if ks[i].Time == ks[i-1].Time {
			return Curve{}, fmt.Errorf("%w: duplicate key at t=%g", ErrInvalidCurve, ks[i].Time)
		}
		if ks[i].Value < ks[i-1].Value {
			return Curve{}, fmt.Errorf("%w: decreasing at t=%g", ErrInvalidCurve, ks[i].Time)
		}
	}
	return Curve{keys: ks}, nil
}

// IdentityCurve returns effective thrust equal to the clamped throttle.
func IdentityCurve() Curve {
	return Curve{keys: []Keyframe{{0, 0}, {1, 1}}}
}

// QuadraticCurve approximates a t² response with n segments.
func QuadraticCurve(n int) Curve {
	if n < 1 {
		n = 1
	}
	keys := make([]Keyframe, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		keys[i] = Keyframe{Time: t, Value: t * t}
	}
	return Curve{keys: keys}
}

// Keys returns a copy of the curve's keyframes.
func (c Curve) Keys() []Keyframe {
	if len(c.keys) == 0 {
		return IdentityCurve().Keys()
	}
	return append([]Keyframe(nil), c.keys...)
}

// Evaluate samples the curve at x.
func (c Curve) Evaluate(x float64) float64 {
	ks := c.keys
	if len(ks) == 0 {
		return clamp(x, 0, 1)
	}
	if x <= ks[0].Time {
		return clamp(ks[0].Value, 0, 1)
	}
	last := ks[len(ks)-1]
	if x >= last.Time {
		return clamp(last.Value, 0, 1)
	}
	i := sort.Search(len(ks), func(i int) bool { return ks[i].Time >= x })
	a, b := ks[i-1], ks[i]
	t := (x - a.Time) / (b.Time - a.Time)
	return clamp(a.Value+(b.Value-a.Value)*t, 0, 1)
}

// PropulsionConfig describes a single gimballed engine and its tank.
type PropulsionConfig struct {
	ThrustForce  float64    `yaml:"thrust_force"`  // N at full effective thrust
	MaxFuel      float64    `yaml:"max_fuel"`      // seconds of full thrust
	StartingFuel float64    `yaml:"starting_fuel"` // fraction of MaxFuel at reset
	FuelMass     float64    `yaml:"fuel_mass"`     // kg when full
	DryMass      float64    `yaml:"dry_mass"`      // kg
	ConsumeFuel  bool       `yaml:"consume_fuel"`
	ThrustPoint  mgl64.Vec3 `yaml:"thrust_point"` // body-local
	Curve        Curve      `yaml:"-"`
}

// Propulsion tracks fuel and converts throttle into thrust impulses.
type Propulsion struct {
	cfg       PropulsionConfig
	fuel      float64
	effective float64
}

func NewPropulsion(cfg PropulsionConfig) *Propulsion {
	p := &Propulsion{cfg: cfg}
	p.Refuel()
	return p
}

// Refuel restores the starting fuel load.
func (p *Propulsion) Refuel() {
	p.fuel = clamp(p.cfg.StartingFuel, 0, 1) * p.cfg.MaxFuel
	p.effective = 0
}

func (p *Propulsion) Fuel() float64 { return p.fuel }

// FuelFraction is fuel over capacity, 0 when the tank has no capacity.
func (p *Propulsion) FuelFraction() float64 {
	if p.cfg.MaxFuel <= 0 {
		return 0
	}
	return p.fuel / p.cfg.MaxFuel
}

// Effective is the curve output of the last burn.
func (p *Propulsion) Effective() float64 { return p.effective }

// Mass is dry mass plus the current fuel share of FuelMass.
func (p *Propulsion) Mass() float64 {
	return p.cfg.DryMass + p.cfg.FuelMass*p.FuelFraction()
}

// Burn applies throttle for one step. It returns the effective thrust level and
// the impulse magnitude (N·s) along the thrust axis. An empty tank produces no
// impulse. Fuel drops by effective·dt and never goes below zero.
func (p *Propulsion) Burn(throttle, dt float64) (effective, impulse float64) {
	effective = p.cfg.Curve.Evaluate(clamp(throttle, 0, 1))
	p.effective = effective
	if dt <= 0 || effective <= 0 || p.fuel <= 0 {
		return effective, 0
	}
	impulse = effective * p.cfg.ThrustForce * dt
	if p.cfg.ConsumeFuel {
		p.fuel -= effective * dt
		if p.fuel < 0 {
			p.fuel = 0
		}
	}
	return effective, impulse
}
