package sim

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Controller picks the control input for the next tick from an observation.
type Controller interface {
	Act(obs Observation) ControlInput
}

// ControllerFunc adapts a function to Controller.
type ControllerFunc func(obs Observation) ControlInput

func (f ControllerFunc) Act(obs Observation) ControlInput { return f(obs) }

// Idle commands nothing: zero direction, zero throttle.
var Idle Controller = ControllerFunc(func(Observation) ControlInput { return ControlInput{} })

// StepResult is the outcome of one episode tick.
type StepResult struct {
	Episode    uuid.UUID
	Step       int
	Time       float64
	Tick       TickOutput
	Snapshot   KinematicSnapshot // after integration
	Contacts   []Contact
	LegsOnPad  int
	Reward     float64
	Cumulative float64
	Terminal   *TerminalSignal
}

// Episode couples a vehicle core with a rigid body, an arena and a reward
// shaper. One Episode is single-threaded; run several through a Fleet.
type Episode struct {
	rocket   *Rocket
	body     *RigidBody
	shaper   *Shaper
	arena    Arena
	observer Observer
	log      zerolog.Logger

	id     uuid.UUID
	spawn  Spawn
	time   float64
	steps  int
	lastDt float64
}

// EpisodeOption configures an Episode.
type EpisodeOption func(*Episode)

// WithEpisodeLogger sets the logger for the episode and its vehicle.
func WithEpisodeLogger(log zerolog.Logger) EpisodeOption {
	return func(e *Episode) { e.log = log }
}

// NewEpisode builds an episode and performs the first reset.
func NewEpisode(cfg VehicleConfig, arena Arena, opts ...EpisodeOption) (*Episode, error) {
	e := &Episode{
		arena:  arena,
		shaper: NewShaper(cfg.Reward),
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	r, err := NewRocket(cfg, WithLogger(e.log))
	if err != nil {
		return nil, err
	}
	e.rocket = r
	e.body = NewRigidBody(r.Propulsion().Mass(), cfg.CenterOfMass)
	e.Reset()
	return e, nil
}

func (e *Episode) ID() uuid.UUID    { return e.id }
func (e *Episode) Rocket() *Rocket  { return e.rocket }
func (e *Episode) Body() *RigidBody { return e.body }
func (e *Episode) Shaper() *Shaper  { return e.shaper }
func (e *Episode) Arena() Arena     { return e.arena }
func (e *Episode) Spawn() Spawn     { return e.spawn }
func (e *Episode) Time() float64    { return e.time }
func (e *Episode) Steps() int       { return e.steps }
func (e *Episode) Done() bool       { return e.shaper.Terminal() != nil }

// Reset draws a new spawn from the arena and zeroes every accumulator.
func (e *Episode) Reset() ResetCommand {
	cmd := ResetCommand{EpisodeID: uuid.New()}
	e.id = cmd.EpisodeID
	e.spawn = e.arena.Spawn()
	e.time, e.steps, e.lastDt = 0, 0, 0

	e.rocket.Reset(cmd)
	e.rocket.Autopilot().SetTarget(e.spawn.Target)

	cfg := e.rocket.Config()
	e.body.Gravity = e.arena.Gravity()
	e.body.Mass = e.rocket.Propulsion().Mass()
	e.body.RecomputeInertia(cfg.Hull.Radius, cfg.Hull.Length)
	e.body.Teleport(e.spawn.Position, e.spawn.Orientation, e.spawn.Velocity)

	e.shaper.Reset(e.spawn.Position, e.spawn.Target)
	e.observer.Reset(Pose{Position: e.spawn.Position, Orientation: e.spawn.Orientation}, e.spawn.Target)

	e.log.Debug().
		Str("episode", e.id.String()).
		Str("arena", e.arena.Name()).
		Floats64("position", e.spawn.Position[:]).
		Floats64("target", e.spawn.Target[:]).
		Msg("episode reset")
	return cmd
}

// Observe returns the policy observation for the current state.
func (e *Episode) Observe() Observation {
	return e.observer.Observe(e.body.Snapshot(), e.spawn.Target, e.rocket.Propulsion().FuelFraction(), e.lastDt)
}

// Step advances the episode by dt. After the episode is terminal it returns
// the terminal signal without touching the vehicle.
func (e *Episode) Step(in ControlInput, dt float64) StepResult {
	if e.Done() {
		return StepResult{
			Episode:    e.id,
			Step:       e.steps,
			Time:       e.time,
			Snapshot:   e.body.Snapshot(),
			Cumulative: e.shaper.Cumulative(),
			Terminal:   e.shaper.Terminal(),
		}
	}
	cfg := e.rocket.Config()

	out := e.rocket.Tick(in, e.body.Snapshot(), dt)
	e.body.Mass = out.Mass
	e.body.RecomputeInertia(cfg.Hull.Radius, cfg.Hull.Length)
	for _, f := range out.Forces {
		e.body.Apply(f)
	}
	e.body.Integrate(dt)

	feet := e.rocket.LegFeet()
	probes := append(feet, e.rocket.HullProbes()...)
	contacts := e.body.ResolveGround(probes, len(feet))

	pad, padRadius := e.arena.Pad()
	legsOnPad, contactSpeed := 0, 0.0
	for _, c := range contacts {
		contactSpeed = math.Max(contactSpeed, c.Speed)
		if c.Leg && padRadius > 0 && horizontalDistance(c.Point, pad) <= padRadius {
			legsOnPad++
		}
	}
	if len(contacts) > 0 && cfg.CutoffOnTouchdown && !e.rocket.EngineCutoff() {
		e.rocket.SetEngineCutoff(true)
	}

	snap := e.body.Snapshot()
	inside := e.spawn.TargetRadius > 0 && snap.Position.Sub(e.spawn.Target).Len() < e.spawn.TargetRadius

	var reward float64
	var term *TerminalSignal
	if out.EngineLost {
		reward, term = e.shaper.Fail()
	} else {
		reward, term = e.shaper.Step(RewardInput{
			Position:     snap.Position,
			Orientation:  snap.Orientation,
			Target:       e.spawn.Target,
			Dt:           dt,
			LegsOnPad:    legsOnPad,
			Touchdown:    len(contacts) > 0,
			ContactSpeed: contactSpeed,
			InsideTarget: inside,
			Thrusting:    out.Impulse > 0,
		})
	}

	e.time += dt
	e.steps++
	e.lastDt = dt

	if term != nil {
		e.log.Info().
			Str("episode", e.id.String()).
			Str("reason", string(term.Reason)).
			Int("steps", e.steps).
			Float64("reward", e.shaper.Cumulative()).
			Msg("episode finished")
	}
	return StepResult{
		Episode:    e.id,
		Step:       e.steps,
		Time:       e.time,
		Tick:       out,
		Snapshot:   snap,
		Contacts:   contacts,
		LegsOnPad:  legsOnPad,
		Reward:     reward,
		Cumulative: e.shaper.Cumulative(),
		Terminal:   term,
	}
}

// RunHeadless executes fixed-step updates with ctrl until the episode ends,
// steps updates have run, or dur has elapsed, whichever comes first. A
// non-positive limit is ignored. onStep, if set, sees every result. Returns
// the number of steps performed.
func (e *Episode) RunHeadless(ctrl Controller, steps int, ups int, dur time.Duration, onStep func(StepResult)) int {
	if ups <= 0 {
		ups = 50
	}
	if ctrl == nil {
		ctrl = Idle
	}
	fixed := time.Second / time.Duration(ups)
	performed := 0
	start := time.Now()
	useSteps := steps > 0
	useDur := dur > 0

	for !e.Done() {
		if useSteps && performed >= steps {
			break
		}
		if useDur && time.Since(start) >= dur {
			break
		}
		res := e.Step(ctrl.Act(e.Observe()), fixed.Seconds())
		if onStep != nil {
			onStep(res)
		}
		performed++
	}
	return performed
}

func horizontalDistance(a, b mgl64.Vec3) float64 {
	return math.Hypot(a.X()-b.X(), a.Z()-b.Z())
}
