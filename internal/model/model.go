// Package model holds the episode records shared by every storage backend.
package model

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/smentu/AI-guided-rockets/internal/sim"
)

// DatabaseModels lists the structs migrated into the database schema
var DatabaseModels = []interface{}{
	&Episode{},
	&Step{},
}

// Vec3 is a world vector stored as three columns.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func FromVec3(v mgl64.Vec3) Vec3 { return Vec3{v.X(), v.Y(), v.Z()} }
func (v Vec3) Vec3() mgl64.Vec3  { return mgl64.Vec3{v.X, v.Y, v.Z} }

// Episode is one run of a vehicle from reset to its terminal signal.
type Episode struct {
	ID        string    `json:"id" gorm:"size:36;primaryKey"`
	Slot      int       `json:"slot"` // index in the fleet
	Vehicle   string    `json:"vehicle" gorm:"size:32;index"`
	Arena     string    `json:"arena" gorm:"size:32"`
	Autopilot bool      `json:"autopilot"`
	StartedAt time.Time `json:"startedAt" gorm:"index"`

	Spawn        Vec3    `json:"spawn" gorm:"embedded;embeddedPrefix:spawn_"`
	Target       Vec3    `json:"target" gorm:"embedded;embeddedPrefix:target_"`
	TargetRadius float64 `json:"targetRadius"`

	EndedAt *time.Time `json:"endedAt,omitempty"`
	Steps   int        `json:"steps"`
	Time    float64    `json:"time"` // simulated seconds
	Reward  float64    `json:"reward"`
	Reason  string     `json:"reason,omitempty" gorm:"size:32;index"`
	Fuel    float64    `json:"fuel"` // remaining at the end, s of full thrust
}

func (*Episode) TableName() string {
	return "episodes"
}

// NewEpisode builds the record for an episode that has just been reset.
func NewEpisode(ep *sim.Episode, slot int, autopilot bool, startedAt time.Time) *Episode {
	spawn := ep.Spawn()
	return &Episode{
		ID:           ep.ID().String(),
		Slot:         slot,
		Vehicle:      ep.Rocket().Config().Name,
		Arena:        ep.Arena().Name(),
		Autopilot:    autopilot,
		StartedAt:    startedAt,
		Spawn:        FromVec3(spawn.Position),
		Target:       FromVec3(spawn.Target),
		TargetRadius: spawn.TargetRadius,
	}
}

// Step is one sampled tick of an episode.
type Step struct {
	ID        uint    `json:"-" gorm:"primaryKey"`
	EpisodeID string  `json:"episodeId" gorm:"size:36;index:idx_step_episode"`
	Step      int     `json:"step"`
	Time      float64 `json:"time"`

	Position Vec3    `json:"position" gorm:"embedded;embeddedPrefix:pos_"`
	Velocity Vec3    `json:"velocity" gorm:"embedded;embeddedPrefix:vel_"`
	Tilt     float64 `json:"tilt"` // deg from world up

	DirectionX  float64 `json:"directionX"`
	DirectionY  float64 `json:"directionY"`
	Throttle    float64 `json:"throttle"`
	Effective   float64 `json:"effective"`
	GimbalPitch float64 `json:"gimbalPitch"`
	GimbalRoll  float64 `json:"gimbalRoll"`
	Mass        float64 `json:"mass"`

	Contacts   int     `json:"contacts"`
	LegsOnPad  int     `json:"legsOnPad"`
	Reward     float64 `json:"reward"`
	Cumulative float64 `json:"cumulative"`
}

func (*Step) TableName() string {
	return "steps"
}

// StepFromResult flattens a tick result into a Step.
func StepFromResult(res sim.StepResult) *Step {
	in := res.Tick.Input
	return &Step{
		EpisodeID:   res.Episode.String(),
		Step:        res.Step,
		Time:        res.Time,
		Position:    FromVec3(res.Snapshot.Position),
		Velocity:    FromVec3(res.Snapshot.LinearVelocity),
		Tilt:        sim.TiltAngle(res.Snapshot.Orientation),
		DirectionX:  in.Direction.X(),
		DirectionY:  in.Direction.Y(),
		Throttle:    in.Throttle,
		Effective:   res.Tick.Effective,
		GimbalPitch: res.Tick.Actuators.Gimbal.Pitch,
		GimbalRoll:  res.Tick.Actuators.Gimbal.Roll,
		Mass:        res.Tick.Mass,
		Contacts:    len(res.Contacts),
		LegsOnPad:   res.LegsOnPad,
		Reward:      res.Reward,
		Cumulative:  res.Cumulative,
	}
}

// Summary closes an episode record.
type Summary struct {
	EpisodeID string    `json:"episodeId"`
	EndedAt   time.Time `json:"endedAt"`
	Steps     int       `json:"steps"`
	Time      float64   `json:"time"`
	Reward    float64   `json:"reward"`
	Reason    string    `json:"reason"`
	Fuel      float64   `json:"fuel"`
}

// SummaryFromResult builds the summary from an episode's terminal result.
// fuel is the tank content when the episode ended.
func SummaryFromResult(res sim.StepResult, fuel float64, endedAt time.Time) *Summary {
	s := &Summary{
		EpisodeID: res.Episode.String(),
		EndedAt:   endedAt,
		Steps:     res.Step,
		Time:      res.Time,
		Reward:    res.Cumulative,
		Fuel:      fuel,
	}
	if res.Terminal != nil {
		s.Reason = string(res.Terminal.Reason)
	}
	return s
}

// Apply copies the summary onto the episode.
func (e *Episode) Apply(s *Summary) {
	ended := s.EndedAt
	e.EndedAt = &ended
	e.Steps = s.Steps
	e.Time = s.Time
	e.Reward = s.Reward
	e.Reason = s.Reason
	e.Fuel = s.Fuel
}
