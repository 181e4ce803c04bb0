package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

const (
	LegDeployedAngle = 130.0 // deg
	LegStowedAngle   = 0.0   // deg
	FinFoldedAngle   = -90.0 // deg
	FinOpenAngle     = 0.0   // deg
)

// Hinge is an actuator handle. A nil *Hinge means the part is absent or was
// torn off; a broken hinge keeps its last angle.
type Hinge struct {
	Name   string
	Broken bool
	angle  float64
}

func NewHinge(name string) *Hinge { return &Hinge{Name: name} }

// Angle returns the current target angle, 0 for an absent hinge.
func (h *Hinge) Angle() float64 {
	if h == nil {
		return 0
	}
	return h.angle
}

func (h *Hinge) usable() bool { return h != nil && !h.Broken }

// set moves the hinge if it is usable. It reports whether the angle changed.
func (h *Hinge) set(angle float64, log zerolog.Logger) bool {
	if !h.usable() {
		name := "unknown"
		if h != nil {
			name = h.Name
		}
		log.Debug().Str("hinge", name).Float64("angle", angle).Msg("actuator unavailable, keeping previous angle")
		return false
	}
	h.angle = angle
	return true
}

// FinPosition identifies the mounting slot of a grid fin around the hull.
type FinPosition int

const (
	FinFront FinPosition = iota
	FinBack
	FinRight
	FinLeft
)

var finPositionNames = map[FinPosition]string{
	FinFront: "front",
	FinBack:  "back",
	FinRight: "right",
	FinLeft:  "left",
}

func (p FinPosition) String() string {
	if n, ok := finPositionNames[p]; ok {
		return n
	}
	return "unknown"
}

// steer returns the fin deflection sign and the input channel it follows.
// Front/back fins follow the y channel, right/left fins the x channel.
func (p FinPosition) steer(dir mgl64.Vec2) float64 {
	switch p {
	case FinFront:
		return -dir.Y()
	case FinBack:
		return dir.Y()
	case FinRight:
		return dir.X()
	case FinLeft:
		return -dir.X()
	}
	return 0
}

// GridFin is one steerable, foldable grid fin.
type GridFin struct {
	Position  FinPosition
	Mount     mgl64.Vec3 // body-local centre of pressure
	HingeAxis mgl64.Vec3 // body-local steering axis
	Body      GridFinBody
	Lift      float64 // lift coefficient when deployed

	steer    *Hinge
	fold     *Hinge
	deployed bool
}

// NewGridFin builds a fin with working steering and fold hinges.
func NewGridFin(pos FinPosition, mount, axis mgl64.Vec3, body GridFinBody, lift float64) *GridFin {
	return &GridFin{
		Position:  pos,
		Mount:     mount,
		HingeAxis: axis,
		Body:      body,
		Lift:      lift,
		steer:     NewHinge(pos.String() + "_steer"),
		fold:      NewHinge(pos.String() + "_fold"),
		deployed:  true,
	}
}

func (f *GridFin) Deployed() bool { return f.deployed }

// Attached reports whether the fin still has a steering hinge.
func (f *GridFin) Attached() bool { return f.steer != nil }

// Angle is the current steering deflection in degrees.
func (f *GridFin) Angle() float64 { return f.steer.Angle() }

// FoldAngle is the current fold hinge angle in degrees.
func (f *GridFin) FoldAngle() float64 { return f.fold.Angle() }

// EffectiveLift is the lift coefficient for the current fold state. Folded
// fins only produce drag.
func (f *GridFin) EffectiveLift() float64 {
	if f.deployed {
		return f.Lift
	}
	return f.Body.DragCoefficient
}

// SetFold deploys or stows the fin. Stowed fins hold steering at zero.
func (f *GridFin) SetFold(deployed bool, log zerolog.Logger) {
	target := FinFoldedAngle
	if deployed {
		target = FinOpenAngle
	}
	if !f.fold.set(target, log) {
		return
	}
	f.deployed = deployed
	if !deployed {
		f.steer.set(0, log)
	}
}

// SetAngle commands a steering deflection. It is ignored while stowed.
func (f *GridFin) SetAngle(angle float64, log zerolog.Logger) bool {
	if !f.deployed {
		angle = 0
	}
	return f.steer.set(angle, log)
}

// Detach removes the fin's hinges; the fin no longer steers or produces force.
func (f *GridFin) Detach() {
	f.steer = nil
	f.fold = nil
}

// LegSet drives the landing legs together.
type LegSet struct {
	hinges   []*Hinge
	deployed bool
}

func NewLegSet(n int) LegSet {
	hs := make([]*Hinge, n)
	for i := range hs {
		hs[i] = NewHinge("leg")
	}
	return LegSet{hinges: hs}
}

func (l *LegSet) Deployed() bool { return l.deployed }
func (l *LegSet) Count() int     { return len(l.hinges) }

// Angle is the commanded leg angle for the current state.
func (l *LegSet) Angle() float64 {
	if l.deployed {
		return LegDeployedAngle
	}
	return LegStowedAngle
}

// Set deploys or stows every leg that still has a usable hinge.
func (l *LegSet) Set(deployed bool, log zerolog.Logger) {
	l.deployed = deployed
	angle := l.Angle()
	for _, h := range l.hinges {
		h.set(angle, log)
	}
}

// Break destroys the hinge of leg i.
func (l *LegSet) Break(i int) {
	if i < 0 || i >= len(l.hinges) {
		return
	}
	l.hinges[i] = nil
}

// Gimbal is the two-axis engine mount, in degrees.
type Gimbal struct {
	Pitch float64 // about body right
	Roll  float64 // about body forward
}

// Rotation returns the body-local rotation of the thrust axis.
func (g Gimbal) Rotation() mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(g.Pitch), AxisRight).
		Mul(mgl64.QuatRotate(mgl64.DegToRad(g.Roll), AxisForward))
}

// ActuatorTargets is the per-tick actuator command set produced by the mixer.
type ActuatorTargets struct {
	Gimbal      Gimbal
	FinAngles   [4]float64 // indexed by FinPosition
	FinFolded   bool
	FoldAngle   float64
	LegDeployed bool
	LegAngle    float64
}

// Mixer maps a direction command to gimbal and fin deflections.
type Mixer struct {
	MaxEngineAngle  float64 // deg
	MaxGridFinAngle float64 // deg
}

// GimbalFor returns the gimbal angles for a direction command.
func (m Mixer) GimbalFor(dir mgl64.Vec2) Gimbal {
	x := clamp(dir.X(), -1, 1)
	y := clamp(dir.Y(), -1, 1)
	return Gimbal{
		Pitch: clamp(-y*m.MaxEngineAngle, -m.MaxEngineAngle, m.MaxEngineAngle),
		Roll:  clamp(x*m.MaxEngineAngle, -m.MaxEngineAngle, m.MaxEngineAngle),
	}
}

// FinAngle returns the deflection for a fin slot. goingUp flips the sign when
// the airflow over the fins reverses.
func (m Mixer) FinAngle(pos FinPosition, dir mgl64.Vec2, goingUp float64) float64 {
	d := mgl64.Vec2{clamp(dir.X(), -1, 1), clamp(dir.Y(), -1, 1)}
	return clamp(goingUp*pos.steer(d)*m.MaxGridFinAngle, -m.MaxGridFinAngle, m.MaxGridFinAngle)
}

// GoingUp is +1 unless the vehicle is clearly descending along its up axis.
func GoingUp(velocity, up mgl64.Vec3) float64 {
	return sign(velocity.Dot(up) + 0.02)
}
