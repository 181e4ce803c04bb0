package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// TerminalReason says why an episode ended.
type TerminalReason string

const (
	ReasonTilted        TerminalReason = "tilted"
	ReasonTouchdown     TerminalReason = "touchdown"
	ReasonTargetReached TerminalReason = "target_reached"
	ReasonSubsystemLost TerminalReason = "subsystem_lost"
	ReasonTimeout       TerminalReason = "timeout"
)

// TerminalSignal marks the end of an episode.
type TerminalSignal struct {
	Reason TerminalReason
	Time   float64 // episode seconds
	Step   int
}

// DistanceMode selects how closing on the target is rewarded.
type DistanceMode int

const (
	// DistancePotential pays the change of K/sqrt(max(Floor, W·d)) each tick.
	DistancePotential DistanceMode = iota
	// DistanceProgress pays the change in distance, discounted when opening.
	DistanceProgress
)

// RewardConfig holds the shaping constants of one vehicle variant. Zero values
// disable the corresponding term.
type RewardConfig struct {
	Distance       DistanceMode `yaml:"distance_mode"`
	DistanceScale  float64      `yaml:"distance_scale"`  // K
	DistanceFloor  float64      `yaml:"distance_floor"`  // lower bound under the root
	DistanceWeight float64      `yaml:"distance_weight"` // W
	RetreatFactor  float64      `yaml:"retreat_factor"`  // progress mode, applied when opening

	TiltLimit   float64 `yaml:"tilt_limit"`   // deg from world up
	TiltPenalty float64 `yaml:"tilt_penalty"` // added once, ends the episode

	TouchdownBase      float64 `yaml:"touchdown_base"`
	TouchdownDivisor   float64 `yaml:"touchdown_divisor"`
	ResetOnTouchdown   bool    `yaml:"reset_on_touchdown"`
	TouchdownCountdown float64 `yaml:"touchdown_countdown"` // s

	LegContactReward float64 `yaml:"leg_contact_reward"` // per leg newly on the pad
	DwellRate        float64 `yaml:"dwell_rate"`         // per second inside the target volume
	BelowGround      bool    `yaml:"below_ground"`       // -log10(depth+1)·dt

	TargetReward      float64 `yaml:"target_reward"`
	TerminateOnTarget bool    `yaml:"terminate_on_target"`

	ThrustPenaltyRate    float64 `yaml:"thrust_penalty_rate"`    // per second while thrusting
	SubsystemLossPenalty float64 `yaml:"subsystem_loss_penalty"` // added once, ends the episode

	MaxSteps int `yaml:"max_steps"`
}

// HasTouchdown reports whether the variant scores a touchdown. Only then does
// a ground contact latch and stop the tilt check.
func (c RewardConfig) HasTouchdown() bool {
	return c.TouchdownDivisor > 0 || c.ResetOnTouchdown
}

// RewardInput is what the shaper observes after forces have been applied.
type RewardInput struct {
	Position     mgl64.Vec3
	Orientation  mgl64.Quat
	Target       mgl64.Vec3
	Dt           float64
	LegsOnPad    int
	Touchdown    bool    // ground contact this tick
	ContactSpeed float64 // relative speed of that contact
	InsideTarget bool
	Thrusting    bool
}

// Shaper accumulates reward and decides termination for one episode.
type Shaper struct {
	cfg RewardConfig

	cumulative   float64
	baseline     float64
	prevDistance float64
	legsOnPad    int
	touchedDown  bool
	clock        float64
	steps        int
	terminal     *TerminalSignal
	schedule     Schedule
}

func NewShaper(cfg RewardConfig) *Shaper {
	return &Shaper{cfg: cfg}
}

func (s *Shaper) Config() RewardConfig      { return s.cfg }
func (s *Shaper) Cumulative() float64       { return s.cumulative }
func (s *Shaper) Terminal() *TerminalSignal { return s.terminal }
func (s *Shaper) TouchedDown() bool         { return s.touchedDown }
func (s *Shaper) Steps() int                { return s.steps }
func (s *Shaper) Clock() float64            { return s.clock }
func (s *Shaper) Schedule() *Schedule       { return &s.schedule }

// Reset zeroes the accumulators, drops pending countdowns and seeds the
// distance baseline for the new start position.
func (s *Shaper) Reset(position, target mgl64.Vec3) {
	d := position.Sub(target).Len()
	s.cumulative = 0
	s.baseline = s.DistanceReward(d)
	s.prevDistance = d
	s.legsOnPad = 0
	s.touchedDown = false
	s.clock = 0
	s.steps = 0
	s.terminal = nil
	s.schedule.Clear()
}

// DistanceReward is the potential K/sqrt(max(Floor, W·d)).
func (s *Shaper) DistanceReward(d float64) float64 {
	if s.cfg.DistanceScale == 0 {
		return 0
	}
	return s.cfg.DistanceScale / math.Sqrt(math.Max(s.cfg.DistanceFloor, s.cfg.DistanceWeight*d))
}

// Step scores one tick. Once the episode is terminal it returns 0 with the
// recorded signal until Reset.
func (s *Shaper) Step(in RewardInput) (float64, *TerminalSignal) {
	if s.terminal != nil {
		return 0, s.terminal
	}
	s.steps++
	s.clock += in.Dt

	if s.cfg.TiltLimit > 0 && !s.touchedDown && TiltAngle(in.Orientation) > s.cfg.TiltLimit {
		return s.finish(s.cfg.TiltPenalty, ReasonTilted)
	}
	for _, tag := range s.schedule.Due(s.clock) {
		if tag == EventTouchdownTimeout {
			return s.finish(0, ReasonTouchdown)
		}
	}

	var r float64
	d := in.Position.Sub(in.Target).Len()
	switch s.cfg.Distance {
	case DistanceProgress:
		delta := s.prevDistance - d
		if delta < 0 {
			delta *= s.cfg.RetreatFactor
		}
		r += delta
	default:
		cur := s.DistanceReward(d)
		r += cur - s.baseline
		s.baseline = cur
	}
	s.prevDistance = d

	if s.cfg.LegContactReward != 0 {
		r += float64(in.LegsOnPad-s.legsOnPad) * s.cfg.LegContactReward
	}
	s.legsOnPad = in.LegsOnPad

	if in.InsideTarget {
		r += s.cfg.DwellRate * in.Dt
	}
	if s.cfg.BelowGround {
		r -= math.Log10(math.Max(0, -in.Position.Y())+1) * in.Dt
	}
	if in.Thrusting {
		r -= s.cfg.ThrustPenaltyRate * in.Dt
	}

	if in.Touchdown && !s.touchedDown && s.cfg.HasTouchdown() {
		s.touchedDown = true
		if s.cfg.TouchdownDivisor > 0 {
			r += math.Max(s.cfg.TouchdownBase-in.ContactSpeed, 0) / s.cfg.TouchdownDivisor
		}
		if s.cfg.ResetOnTouchdown {
			s.schedule.After(s.clock, s.cfg.TouchdownCountdown, EventTouchdownTimeout)
		}
	}

	if in.InsideTarget && s.cfg.TerminateOnTarget {
		return s.finish(r+s.cfg.TargetReward, ReasonTargetReached)
	}
	if s.cfg.MaxSteps > 0 && s.steps >= s.cfg.MaxSteps {
		return s.finish(r, ReasonTimeout)
	}
	s.cumulative += r
	return r, nil
}

// Fail ends the episode because a required subsystem is gone.
func (s *Shaper) Fail() (float64, *TerminalSignal) {
	if s.terminal != nil {
		return 0, s.terminal
	}
	return s.finish(s.cfg.SubsystemLossPenalty, ReasonSubsystemLost)
}

// CancelTouchdown forgets the touchdown and its pending countdown.
func (s *Shaper) CancelTouchdown() {
	s.touchedDown = false
	s.schedule.Cancel(EventTouchdownTimeout)
}

func (s *Shaper) finish(r float64, reason TerminalReason) (float64, *TerminalSignal) {
	s.cumulative += r
	s.terminal = &TerminalSignal{Reason: reason, Time: s.clock, Step: s.steps}
	return r, s.terminal
}
