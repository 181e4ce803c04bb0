package sim

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Gains weights the PID terms.
type Gains struct {
	P float64 `yaml:"p" json:"p"`
	I float64 `yaml:"i" json:"i"`
	D float64 `yaml:"d" json:"d"`
}

// DefaultGains are the weights the autopilot ships with.
var DefaultGains = Gains{P: 1, I: 0.1, D: 0.2}

// IntegralDecay is the per-tick retention of the integral term. With constant
// error P the integral converges to P/(1-IntegralDecay).
const IntegralDecay = 0.7

// OutputRange selects how the combined PID signal is squashed.
type OutputRange int

const (
	// OutputFull maps to (-1, 1) via 2·sigmoid(0.1·c)-1.
	OutputFull OutputRange = iota
	// OutputHalf maps to (-0.5, 0.5) via sigmoid(0.1·c)-0.5.
	OutputHalf
)

// Autopilot steers the vehicle's up axis toward a target point. Errors are the
// signed angles (degrees) between the up axis and the target direction,
// measured in the up/right plane (x) and the up/forward plane (y).
type Autopilot struct {
	Gains Gains
	Range OutputRange

	enabled bool
	target  mgl64.Vec3

	p, i, d mgl64.Vec2
	prevP   mgl64.Vec2
	hasPrev bool
	output  mgl64.Vec2
}

func NewAutopilot(g Gains, r OutputRange) *Autopilot {
	return &Autopilot{Gains: g, Range: r}
}

func (a *Autopilot) Enabled() bool      { return a.enabled }
func (a *Autopilot) Target() mgl64.Vec3 { return a.target }

// SetTarget sets the world point to steer toward.
func (a *Autopilot) SetTarget(t mgl64.Vec3) { a.target = t }

// Enable engages the autopilot with fresh accumulators.
func (a *Autopilot) Enable() {
	if a.enabled {
		return
	}
	a.Reset()
	a.enabled = true
}

func (a *Autopilot) Disable() { a.enabled = false }

// Toggle flips the engagement state and returns the new state.
func (a *Autopilot) Toggle() bool {
	if a.enabled {
		a.Disable()
	} else {
		a.Enable()
	}
	return a.enabled
}

// Reset zeroes the P, I, D accumulators and the held output.
func (a *Autopilot) Reset() {
	a.p, a.i, a.d = mgl64.Vec2{}, mgl64.Vec2{}, mgl64.Vec2{}
	a.prevP = mgl64.Vec2{}
	a.hasPrev = false
	a.output = mgl64.Vec2{}
}

// Terms returns the current P, I and D accumulators.
func (a *Autopilot) Terms() (p, i, d mgl64.Vec2) { return a.p, a.i, a.d }

// Output is the last squashed controller output (x, y).
func (a *Autopilot) Output() mgl64.Vec2 { return a.output }

// Errors returns the angular error to the target in degrees. ok is false when
// the target coincides with the vehicle position.
func (a *Autopilot) Errors(pose Pose) (e mgl64.Vec2, ok bool) {
	td := a.target.Sub(pose.Position)
	if td.Len() < 1e-9 {
		return mgl64.Vec2{}, false
	}
	td = td.Normalize()
	up, right, fwd := pose.Up(), pose.Right(), pose.Forward()
	stripX := ProjectOnPlane(td, fwd)
	stripZ := ProjectOnPlane(td, right)
	return mgl64.Vec2{
		SignedAngle(stripX, up, fwd),
		SignedAngle(stripZ, up, right),
	}, true
}

// Step advances the controller one tick and returns the control input it
// commands. Throttle is always full while engaged. When the target sits on the
// vehicle the previous output is held.
//
// The y channel is negated on output so that the mixer's pitch convention
// (gimbal pitch = -y·max) deflects the engine toward the target.
func (a *Autopilot) Step(pose Pose, dt float64) ControlInput {
	e, ok := a.Errors(pose)
	if !ok {
		return ControlInput{Direction: a.direction(), Throttle: 1}
	}
	if dt < minDt {
		dt = minDt
	}
	if !a.hasPrev {
		a.prevP = e
		a.hasPrev = true
	}
	a.p = e
	a.i = a.i.Mul(IntegralDecay).Add(a.p)
	a.d = a.p.Sub(a.prevP).Mul(-1 / dt)
	a.prevP = a.p

	c := a.p.Mul(a.Gains.P).Add(a.i.Mul(a.Gains.I)).Add(a.d.Mul(a.Gains.D))
	a.output = mgl64.Vec2{a.squash(c.X()), a.squash(c.Y())}
	return ControlInput{Direction: a.direction(), Throttle: 1}
}

func (a *Autopilot) direction() mgl64.Vec2 {
	return mgl64.Vec2{a.output.X(), -a.output.Y()}
}

func (a *Autopilot) squash(c float64) float64 {
	s := sigmoid(0.1 * c)
	if a.Range == OutputHalf {
		return s - 0.5
	}
	return 2*s - 1
}
