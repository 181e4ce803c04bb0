package model

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smentu/AI-guided-rockets/internal/sim"
)

func TestNewEpisode(t *testing.T) {
	ep, err := sim.NewEpisode(sim.MissileConfig(), sim.NewMissileArena(3))
	require.NoError(t, err)

	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := NewEpisode(ep, 2, true, started)

	assert.Equal(t, ep.ID().String(), rec.ID)
	assert.Equal(t, 2, rec.Slot)
	assert.Equal(t, "missile", rec.Vehicle)
	assert.Equal(t, "missile", rec.Arena)
	assert.True(t, rec.Autopilot)
	assert.Equal(t, ep.Spawn().Position, rec.Spawn.Vec3())
	assert.Equal(t, ep.Spawn().Target, rec.Target.Vec3())
	assert.Nil(t, rec.EndedAt)
}

func TestStepFromResult(t *testing.T) {
	id := uuid.New()
	res := sim.StepResult{
		Episode: id,
		Step:    7,
		Time:    0.14,
		Tick: sim.TickOutput{
			Input:     sim.ControlInput{Direction: mgl64.Vec2{0.5, -1}, Throttle: 0.8},
			Effective: 0.64,
			Mass:      90,
			Actuators: sim.ActuatorTargets{Gimbal: sim.Gimbal{Pitch: 20, Roll: 10}},
		},
		Snapshot: sim.KinematicSnapshot{
			Position:       mgl64.Vec3{1, 2, 3},
			Orientation:    mgl64.QuatRotate(mgl64.DegToRad(30), sim.AxisRight),
			LinearVelocity: mgl64.Vec3{0, -4, 0},
		},
		Contacts:   []sim.Contact{{}, {}},
		LegsOnPad:  1,
		Reward:     0.5,
		Cumulative: 3,
	}

	s := StepFromResult(res)
	assert.Equal(t, id.String(), s.EpisodeID)
	assert.Equal(t, 7, s.Step)
	assert.Equal(t, Vec3{1, 2, 3}, s.Position)
	assert.Equal(t, Vec3{0, -4, 0}, s.Velocity)
	assert.InDelta(t, 30, s.Tilt, 1e-9)
	assert.Equal(t, 0.5, s.DirectionX)
	assert.Equal(t, -1.0, s.DirectionY)
	assert.Equal(t, 0.8, s.Throttle)
	assert.Equal(t, 20.0, s.GimbalPitch)
	assert.Equal(t, 2, s.Contacts)
	assert.Equal(t, 1, s.LegsOnPad)
	assert.Equal(t, 3.0, s.Cumulative)
}

func TestSummaryApply(t *testing.T) {
	id := uuid.New()
	ended := time.Now().UTC()
	res := sim.StepResult{
		Episode:    id,
		Step:       120,
		Time:       2.4,
		Cumulative: -20,
		Terminal:   &sim.TerminalSignal{Reason: sim.ReasonTilted, Step: 120},
	}
	s := SummaryFromResult(res, 12.5, ended)
	assert.Equal(t, "tilted", s.Reason)

	rec := &Episode{ID: id.String()}
	rec.Apply(s)
	require.NotNil(t, rec.EndedAt)
	assert.Equal(t, ended, *rec.EndedAt)
	assert.Equal(t, 120, rec.Steps)
	assert.Equal(t, -20.0, rec.Reward)
	assert.Equal(t, "tilted", rec.Reason)
	assert.Equal(t, 12.5, rec.Fuel)

	open := SummaryFromResult(sim.StepResult{Episode: id}, 0, ended)
	assert.Empty(t, open.Reason)
}
