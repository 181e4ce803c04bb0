package sim

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ControlInput is the per-tick command from whoever flies the vehicle: a
// policy, a human, or the autopilot.
type ControlInput struct {
	Direction mgl64.Vec2 // [-1,1]²
	Throttle  float64    // [0,1]
}

// Clamped returns the input with every channel forced into range.
func (c ControlInput) Clamped() ControlInput {
	return ControlInput{
		Direction: mgl64.Vec2{clamp(sanitizeFinite(c.Direction.X()), -1, 1), clamp(sanitizeFinite(c.Direction.Y()), -1, 1)},
		Throttle:  clamp(sanitizeFinite(c.Throttle), 0, 1),
	}
}

// KinematicSnapshot is the rigid-body state read at the start of a tick.
type KinematicSnapshot struct {
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3 // world frame, rad/s
}

func (k KinematicSnapshot) Pose() Pose {
	return Pose{Position: k.Position, Orientation: k.Orientation}
}

// ResetCommand starts a new episode.
type ResetCommand struct {
	EpisodeID uuid.UUID
}

// RocketState is the vehicle state as of the last tick.
type RocketState struct {
	KinematicSnapshot
	Fuel     float64
	DryMass  float64
	FuelMass float64
}

// Mass is the current total mass.
func (s RocketState) Mass() float64 {
	return s.DryMass + s.FuelMass
}

// TickOutput is everything one tick hands back to the rigid body and to
// observers.
type TickOutput struct {
	Forces    []AppliedForce
	Actuators ActuatorTargets
	Input     ControlInput // the input that was actually applied
	Effective float64      // thrust level after the response curve
	Impulse   float64      // engine impulse this tick, N·s
	Mass      float64
	// EngineLost reports that the engine mount is gone and the episode must end.
	EngineLost bool
}

// Option configures a Rocket.
type Option func(*Rocket)

// WithLogger sets the logger used for actuator diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Rocket) { r.log = log }
}

// Rocket is the per-vehicle flight-dynamics and control core. It owns the
// actuators, the tank and the autopilot; the rigid body lives outside.
type Rocket struct {
	cfg   VehicleConfig
	log   zerolog.Logger
	mixer Mixer

	prop   *Propulsion
	gimbal *Gimbal
	fins   []*GridFin
	legs   LegSet
	pilot  *Autopilot
	cutoff bool

	state     RocketState
	actuators ActuatorTargets
	episode   uuid.UUID
}

// NewRocket validates cfg and builds a vehicle in its reset state.
func NewRocket(cfg VehicleConfig, opts ...Option) (*Rocket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Rocket{
		cfg:   cfg,
		log:   zerolog.Nop(),
		mixer: Mixer{MaxEngineAngle: cfg.MaxEngineAngle, MaxGridFinAngle: cfg.MaxGridFinAngle},
		prop:  NewPropulsion(cfg.Propulsion),
		pilot: NewAutopilot(cfg.Autopilot, cfg.AutopilotRange),
	}
	for _, o := range opts {
		o(r)
	}
	r.Reset(ResetCommand{EpisodeID: uuid.New()})
	return r, nil
}

func (r *Rocket) Config() VehicleConfig       { return r.cfg }
func (r *Rocket) State() RocketState          { return r.state }
func (r *Rocket) Actuators() ActuatorTargets  { return r.actuators }
func (r *Rocket) Autopilot() *Autopilot       { return r.pilot }
func (r *Rocket) Propulsion() *Propulsion     { return r.prop }
func (r *Rocket) Fins() []*GridFin            { return r.fins }
func (r *Rocket) Legs() *LegSet               { return &r.legs }
func (r *Rocket) EpisodeID() uuid.UUID        { return r.episode }
func (r *Rocket) Logger() zerolog.Logger      { return r.log }
func (r *Rocket) EngineCutoff() bool          { return r.cutoff }
func (r *Rocket) SetEngineCutoff(cutoff bool) { r.cutoff = cutoff }

// Reset restores the tank, the actuators and the autopilot accumulators. Broken
// parts are rebuilt.
func (r *Rocket) Reset(cmd ResetCommand) {
	r.episode = cmd.EpisodeID
	r.prop.Refuel()
	r.gimbal = &Gimbal{}
	r.cutoff = false

	r.fins = make([]*GridFin, 0, len(r.cfg.Fins))
	for _, m := range r.cfg.Fins {
		r.fins = append(r.fins, NewGridFin(m.Position, m.Mount, m.HingeAxis, r.cfg.FinBody, r.cfg.FinLift))
	}
	r.SetFinsDeployed(r.cfg.FinsDeployed)

	r.legs = NewLegSet(r.cfg.Legs.Count)
	r.legs.Set(r.cfg.LegsDeployed, r.log)

	r.pilot.Reset()

	r.state = RocketState{
		KinematicSnapshot: KinematicSnapshot{Orientation: mgl64.QuatIdent()},
		Fuel:              r.prop.Fuel(),
		DryMass:           r.cfg.Propulsion.DryMass,
		FuelMass:          r.cfg.Propulsion.FuelMass * r.prop.FuelFraction(),
	}
	r.actuators = r.snapshotActuators()
	r.log.Debug().Str("episode", r.episode.String()).Str("vehicle", r.cfg.Name).Msg("vehicle reset")
}

// SetFinsDeployed folds or unfolds every attached fin.
func (r *Rocket) SetFinsDeployed(deployed bool) {
	for _, f := range r.fins {
		f.SetFold(deployed, r.log)
	}
}

// SetLegsDeployed deploys or stows the legs.
func (r *Rocket) SetLegsDeployed(deployed bool) {
	r.legs.Set(deployed, r.log)
}

// DetachFin tears off the fin at pos.
func (r *Rocket) DetachFin(pos FinPosition) {
	for _, f := range r.fins {
		if f.Position == pos {
			f.Detach()
			r.log.Debug().Str("fin", pos.String()).Msg("grid fin detached")
		}
	}
}

// DestroyEngineMount removes the gimbal; the next tick reports EngineLost.
func (r *Rocket) DestroyEngineMount() {
	r.gimbal = nil
	r.log.Debug().Msg("engine mount destroyed")
}

// Tick runs one fixed step: control source, mixer, thrust and fuel, then
// aerodynamics. It never fails; missing parts are skipped.
func (r *Rocket) Tick(in ControlInput, snap KinematicSnapshot, dt float64) TickOutput {
	r.state.KinematicSnapshot = snap
	pose := snap.Pose()

	if r.pilot.Enabled() {
		in = r.pilot.Step(pose, dt)
	}
	in = in.Clamped()

	// legs
	if alt := r.cfg.Legs.DeployAltitude; alt > 0 {
		if below := snap.Position.Y() < alt; below != r.legs.Deployed() {
			r.legs.Set(below, r.log)
		}
	}

	// mixer
	out := TickOutput{Input: in}
	goingUp := GoingUp(snap.LinearVelocity, pose.Up())
	if r.gimbal != nil {
		*r.gimbal = r.mixer.GimbalFor(in.Direction)
	} else {
		out.EngineLost = true
	}
	for _, f := range r.fins {
		f.SetAngle(r.mixer.FinAngle(f.Position, in.Direction, goingUp), r.log)
	}

	// thrust and fuel
	throttle := in.Throttle
	if r.cutoff || out.EngineLost {
		throttle = 0
	}
	eff, impulse := r.prop.Burn(throttle, dt)
	out.Effective = eff
	out.Impulse = impulse
	if impulse > 0 {
		axis := pose.Orientation.Mul(r.gimbal.Rotation()).Rotate(AxisUp)
		out.Forces = append(out.Forces, AppliedForce{
			Source: "engine",
			Vector: axis.Mul(impulse),
			Point:  pose.PointToWorld(r.cfg.Propulsion.ThrustPoint),
			Mode:   ForceImpulse,
		})
	}
	out.Mass = r.prop.Mass()
	r.state.Fuel = r.prop.Fuel()
	r.state.FuelMass = out.Mass - r.cfg.Propulsion.DryMass

	// aerodynamics
	air := snap.LinearVelocity.Sub(r.cfg.Wind)
	out.Forces = append(out.Forces, r.cfg.Hull.Force(pose, air))
	for _, f := range r.fins {
		if !f.Attached() {
			continue
		}
		arm := pose.Orientation.Rotate(f.Mount)
		finAir := air.Add(snap.AngularVelocity.Cross(arm))
		q := pose.Orientation.Mul(mgl64.QuatRotate(mgl64.DegToRad(f.Angle()), f.HingeAxis))
		out.Forces = append(out.Forces, f.Body.Force(q, snap.Position.Add(arm), finAir, f.EffectiveLift()))
	}

	r.actuators = r.snapshotActuators()
	out.Actuators = r.actuators
	return out
}

func (r *Rocket) snapshotActuators() ActuatorTargets {
	a := ActuatorTargets{
		LegDeployed: r.legs.Deployed(),
		LegAngle:    r.legs.Angle(),
	}
	if r.gimbal != nil {
		a.Gimbal = *r.gimbal
	}
	if len(r.fins) > 0 {
		a.FinFolded = true
		a.FoldAngle = FinFoldedAngle
	}
	for _, f := range r.fins {
		a.FinAngles[f.Position] = f.Angle()
		if f.Deployed() {
			a.FinFolded = false
			a.FoldAngle = f.FoldAngle()
		}
	}
	return a
}

func (r *Rocket) String() string {
	return fmt.Sprintf("%s[%s] fuel=%.1f", r.cfg.Name, r.episode, r.prop.Fuel())
}

// LegFeet returns the body-local foot positions of legs that still have a hinge.
func (r *Rocket) LegFeet() []mgl64.Vec3 {
	g := r.cfg.Legs
	bottom := -r.cfg.Hull.Length / 2
	radius, drop := r.cfg.Hull.Radius, 0.0
	if r.legs.Deployed() {
		radius, drop = g.DeployedRadius, g.DeployedDrop
	}
	feet := make([]mgl64.Vec3, 0, len(r.legs.hinges))
	for i, h := range r.legs.hinges {
		if h == nil {
			continue
		}
		a := math.Pi/4 + float64(i)*2*math.Pi/float64(len(r.legs.hinges))
		feet = append(feet, mgl64.Vec3{radius * math.Cos(a), bottom - drop, radius * math.Sin(a)})
	}
	return feet
}

// HullProbes returns body-local points on both hull end rims.
func (r *Rocket) HullProbes() []mgl64.Vec3 {
	h, rad := r.cfg.Hull.Length/2, r.cfg.Hull.Radius
	probes := make([]mgl64.Vec3, 0, 8)
	for _, y := range []float64{-h, h} {
		probes = append(probes,
			mgl64.Vec3{rad, y, 0}, mgl64.Vec3{-rad, y, 0},
			mgl64.Vec3{0, y, rad}, mgl64.Vec3{0, y, -rad})
	}
	return probes
}
