package sim

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGimbalFor(t *testing.T) {
	m := Mixer{MaxEngineAngle: 20, MaxGridFinAngle: 20}

	g := m.GimbalFor(mgl64.Vec2{1, 0})
	assert.Equal(t, 0.0, g.Pitch)
	assert.Equal(t, 20.0, g.Roll)

	g = m.GimbalFor(mgl64.Vec2{0, 1})
	assert.Equal(t, -20.0, g.Pitch)

	g = m.GimbalFor(mgl64.Vec2{5, -5})
	assert.Equal(t, 20.0, g.Pitch)
	assert.Equal(t, 20.0, g.Roll)
}

func TestGimbalRotationTiltsThrust(t *testing.T) {
	// positive roll tips the thrust axis toward -X, positive pitch toward +Z
	thrust := Gimbal{Roll: 20}.Rotation().Rotate(AxisUp)
	assert.Less(t, thrust.X(), 0.0)
	thrust = Gimbal{Pitch: 20}.Rotation().Rotate(AxisUp)
	assert.Greater(t, thrust.Z(), 0.0)
}

func TestFinAngles(t *testing.T) {
	m := Mixer{MaxEngineAngle: 20, MaxGridFinAngle: 20}
	dir := mgl64.Vec2{0.5, 0.5}
	want := map[FinPosition]float64{FinFront: -10, FinBack: 10, FinRight: 10, FinLeft: -10}
	for pos, w := range want {
		if got := m.FinAngle(pos, dir, 1); got != w {
			t.Fatalf("%v: expected %v, got %v", pos, w, got)
		}
		if got := m.FinAngle(pos, dir, -1); got != -w {
			t.Fatalf("%v descending: expected %v, got %v", pos, -w, got)
		}
	}
	assert.Equal(t, 20.0, m.FinAngle(FinBack, mgl64.Vec2{0, 3}, 1))
}

func TestGoingUp(t *testing.T) {
	assert.Equal(t, -1.0, GoingUp(mgl64.Vec3{0, -1, 0}, AxisUp))
	assert.Equal(t, 1.0, GoingUp(mgl64.Vec3{}, AxisUp))
	assert.Equal(t, 1.0, GoingUp(mgl64.Vec3{0, -0.01, 0}, AxisUp))
}

func TestMissingHingeKeepsAngle(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	f := NewGridFin(FinRight, mgl64.Vec3{}, AxisForward, GridFinBody{DragCoefficient: 0.05}, 0.01)
	if !f.SetAngle(12, log) {
		t.Fatalf("working hinge should move")
	}
	f.steer.Broken = true
	if f.SetAngle(-5, log) {
		t.Fatalf("broken hinge should not move")
	}
	if f.Angle() != 12 {
		t.Fatalf("broken hinge should keep 12, got %v", f.Angle())
	}
	if !strings.Contains(buf.String(), "actuator unavailable") {
		t.Fatalf("expected a debug log for the broken hinge, got %q", buf.String())
	}

	f.Detach()
	assert.False(t, f.Attached())
	assert.False(t, f.SetAngle(3, log))
	assert.Equal(t, 0.0, f.Angle())
}

func TestFinFold(t *testing.T) {
	log := zerolog.Nop()
	f := NewGridFin(FinFront, mgl64.Vec3{}, AxisRight, GridFinBody{DragCoefficient: 0.05}, 0.01)
	f.SetAngle(15, log)

	f.SetFold(false, log)
	assert.False(t, f.Deployed())
	assert.Equal(t, FinFoldedAngle, f.FoldAngle())
	assert.Equal(t, 0.0, f.Angle())
	assert.Equal(t, 0.05, f.EffectiveLift())

	f.SetAngle(15, log)
	assert.Equal(t, 0.0, f.Angle(), "stowed fins do not steer")

	f.SetFold(true, log)
	assert.Equal(t, FinOpenAngle, f.FoldAngle())
	assert.Equal(t, 0.01, f.EffectiveLift())
}

func TestLegSet(t *testing.T) {
	log := zerolog.Nop()
	legs := NewLegSet(4)
	legs.Set(true, log)
	assert.Equal(t, LegDeployedAngle, legs.Angle())
	for _, h := range legs.hinges {
		assert.Equal(t, LegDeployedAngle, h.Angle())
	}
	legs.Break(1)
	legs.Set(false, log)
	assert.Nil(t, legs.hinges[1])
	assert.Equal(t, LegStowedAngle, legs.hinges[0].Angle())
	assert.Equal(t, 4, legs.Count())
}
