package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Body-frame axes. X is right, Y is up (the thrust axis), Z is forward.
var (
	AxisRight   = mgl64.Vec3{1, 0, 0}
	AxisUp      = mgl64.Vec3{0, 1, 0}
	AxisForward = mgl64.Vec3{0, 0, 1}
)

const (
	// minAirspeed below which aerodynamic surfaces produce no force.
	minAirspeed = 1e-6
	// minDt floors divisions by the timestep.
	minDt = 1e-4
)

// Pose is the placement of a rigid body in world space.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

func (p Pose) Up() mgl64.Vec3      { return p.Orientation.Rotate(AxisUp) }
func (p Pose) Right() mgl64.Vec3   { return p.Orientation.Rotate(AxisRight) }
func (p Pose) Forward() mgl64.Vec3 { return p.Orientation.Rotate(AxisForward) }

// PointToWorld maps a body-local offset to a world position.
func (p Pose) PointToWorld(local mgl64.Vec3) mgl64.Vec3 {
	return p.Position.Add(p.Orientation.Rotate(local))
}

// DirectionToLocal maps a world direction into the body frame.
func (p Pose) DirectionToLocal(world mgl64.Vec3) mgl64.Vec3 {
	return p.Orientation.Conjugate().Rotate(world)
}

// NormalizeSafe normalizes unless |v| < eps, in which case it returns the zero vector.
func NormalizeSafe(v mgl64.Vec3, eps float64) mgl64.Vec3 {
	l := v.Len()
	if l < eps {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// ProjectOnPlane removes the component of v along the unit normal n.
func ProjectOnPlane(v, n mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(n.Mul(v.Dot(n)))
}

// Angle returns the unsigned angle between two vectors in degrees.
// Degenerate (near zero) vectors yield 0.
func Angle(from, to mgl64.Vec3) float64 {
	denom := math.Sqrt(from.LenSqr() * to.LenSqr())
	if denom < 1e-15 {
		return 0
	}
	c := clamp(from.Dot(to)/denom, -1, 1)
	return mgl64.RadToDeg(math.Acos(c))
}

// SignedAngle returns the angle from -> to in degrees, in (-180, 180], signed by
// the handedness of the rotation about axis.
func SignedAngle(from, to, axis mgl64.Vec3) float64 {
	return Angle(from, to) * sign(axis.Dot(from.Cross(to)))
}

// TiltAngle is the angle between the body up axis and world up, in degrees.
func TiltAngle(q mgl64.Quat) float64 {
	return Angle(q.Rotate(AxisUp), AxisUp)
}

// rotationFromEuler builds the orientation for yaw (about up), pitch (about right)
// and roll (about forward), applied roll first, then pitch, then yaw. Degrees.
func rotationFromEuler(pitch, yaw, roll float64) mgl64.Quat {
	qy := mgl64.QuatRotate(mgl64.DegToRad(yaw), AxisUp)
	qx := mgl64.QuatRotate(mgl64.DegToRad(pitch), AxisRight)
	qz := mgl64.QuatRotate(mgl64.DegToRad(roll), AxisForward)
	return qy.Mul(qx).Mul(qz)
}

// lookUp returns an orientation whose up axis points along dir.
func lookUp(dir mgl64.Vec3) mgl64.Quat {
	d := NormalizeSafe(dir, 1e-9)
	if d.LenSqr() == 0 {
		return mgl64.QuatIdent()
	}
	if d.Dot(AxisUp) < -1+1e-9 {
		return mgl64.QuatRotate(math.Pi, AxisForward)
	}
	return mgl64.QuatBetweenVectors(AxisUp, d)
}

// sign mirrors the convention where zero is treated as positive.
func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func sanitizeFinite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

func sanitizeVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{sanitizeFinite(v[0]), sanitizeFinite(v[1]), sanitizeFinite(v[2])}
}
