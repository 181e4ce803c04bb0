package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// observationScale shrinks distances to policy-friendly magnitudes.
const observationScale = 0.01

// Observation is the feature vector collected for a policy each decision step.
type Observation struct {
	// TargetVector points from the vehicle to the target in a frame made of the
	// horizontal projections of body right and forward plus world vertical:
	// (right, vertical, forward), scaled by 0.01.
	TargetVector  mgl64.Vec3
	TargetRate    mgl64.Vec3
	Pitch         float64 // rad
	Roll          float64 // rad
	PitchRate     float64 // rad/s
	RollRate      float64 // rad/s
	Up            mgl64.Vec3
	Velocity      mgl64.Vec3 // scaled by 0.01
	FuelFraction  float64
	DistanceRatio float64 // current over initial target distance
	AngleToTarget mgl64.Vec2
}

// Vector flattens the observation in the order the lander policy expects:
// target vector, its rate, pitch, roll, roll rate, pitch rate.
func (o Observation) Vector() []float64 {
	return []float64{
		o.TargetVector[0], o.TargetVector[1], o.TargetVector[2],
		o.TargetRate[0], o.TargetRate[1], o.TargetRate[2],
		o.Pitch, o.Roll, o.RollRate, o.PitchRate,
	}
}

// MissileVector flattens the observation for the missile policy: angles to
// the target over 180, distance ratio, up vector and scaled velocity.
func (o Observation) MissileVector() []float64 {
	return []float64{
		o.AngleToTarget[0] / 180, o.AngleToTarget[1] / 180,
		o.DistanceRatio,
		o.Up[0], o.Up[1], o.Up[2],
		o.Velocity[0], o.Velocity[1], o.Velocity[2],
	}
}

// Observer keeps the previous-step values needed for finite differences.
type Observer struct {
	prevTarget  mgl64.Vec3
	prevPitch   float64
	prevRoll    float64
	initialDist float64
	aim         Autopilot
}

// Reset seeds the difference terms from the starting pose.
func (o *Observer) Reset(pose Pose, target mgl64.Vec3) {
	o.prevTarget = TargetVector(pose, target)
	o.prevPitch, o.prevRoll = PitchRoll(pose.Orientation)
	o.initialDist = math.Max(target.Sub(pose.Position).Len(), 1e-6)
	o.aim.SetTarget(target)
}

// Observe builds the observation for the current state.
func (o *Observer) Observe(snap KinematicSnapshot, target mgl64.Vec3, fuelFraction, dt float64) Observation {
	pose := snap.Pose()
	dt = math.Max(minDt, dt)

	tv := TargetVector(pose, target)
	rate := tv.Sub(o.prevTarget).Mul(1 / dt)
	o.prevTarget = tv

	pitch, roll := PitchRoll(pose.Orientation)
	pitchRate := (pitch - o.prevPitch) / dt
	rollRate := (roll - o.prevRoll) / dt
	o.prevPitch, o.prevRoll = pitch, roll

	o.aim.SetTarget(target)
	angles, _ := o.aim.Errors(pose)

	return Observation{
		TargetVector:  tv.Mul(observationScale),
		TargetRate:    rate.Mul(observationScale),
		Pitch:         pitch,
		Roll:          roll,
		PitchRate:     pitchRate,
		RollRate:      rollRate,
		Up:            pose.Up(),
		Velocity:      snap.LinearVelocity.Mul(observationScale),
		FuelFraction:  fuelFraction,
		DistanceRatio: target.Sub(pose.Position).Len() / o.initialDist,
		AngleToTarget: angles,
	}
}

// TargetVector expresses target - position in the horizontal body frame.
func TargetVector(pose Pose, target mgl64.Vec3) mgl64.Vec3 {
	d := target.Sub(pose.Position)
	f, r := pose.Forward(), pose.Right()
	hf := NormalizeSafe(mgl64.Vec3{f.X(), 0, f.Z()}, 1e-9)
	hr := NormalizeSafe(mgl64.Vec3{r.X(), 0, r.Z()}, 1e-9)
	return mgl64.Vec3{d.Dot(hr), d.Y(), d.Dot(hf)}
}

// PitchRoll returns the tilt of the body about its right and forward axes in
// radians, read from world up expressed in body coordinates.
func PitchRoll(q mgl64.Quat) (pitch, roll float64) {
	up := q.Conjugate().Rotate(AxisUp)
	return -math.Asin(clamp(up.Z(), -1, 1)), -math.Asin(clamp(up.X(), -1, 1))
}

// ScaleAction maps a policy output in [-1,1] onto [lo,hi].
func ScaleAction(v, lo, hi float64) float64 {
	return (clamp(v, -1, 1)+1)/2*(hi-lo) + lo
}

// HeuristicThrottle maps a [0,1] throttle onto the policy's [-1,1] range.
func HeuristicThrottle(throttle float64) float64 {
	return throttle*2 - 1
}

// ActionInput decodes a three-channel policy action (x, y, throttle) in
// [-1,1]³ into a control input.
func ActionInput(action []float64) ControlInput {
	var in ControlInput
	if len(action) > 0 {
		in.Direction[0] = action[0]
	}
	if len(action) > 1 {
		in.Direction[1] = action[1]
	}
	if len(action) > 2 {
		in.Throttle = ScaleAction(action[2], 0, 1)
	}
	return in.Clamped()
}
