package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ForceMode tells the rigid body how to interpret an AppliedForce vector.
type ForceMode int

const (
	// ForceContinuous is a force in newtons, integrated over the step.
	ForceContinuous ForceMode = iota
	// ForceImpulse is an instantaneous impulse in N·s.
	ForceImpulse
)

func (m ForceMode) String() string {
	if m == ForceImpulse {
		return "impulse"
	}
	return "force"
}

// AppliedForce is a world-space force or impulse acting at a world-space point.
type AppliedForce struct {
	Source string
	Vector mgl64.Vec3
	Point  mgl64.Vec3
	Mode   ForceMode
}

// CylinderBody models the hull as a cylinder: the axial face drags along local Y,
// the side profile drags along local X and Z.
type CylinderBody struct {
	Radius          float64    `yaml:"radius"`           // m
	Length          float64    `yaml:"length"`           // m
	DragCoefficient float64    `yaml:"drag_coefficient"` // dimensionless
	PressureOffset  mgl64.Vec3 `yaml:"pressure_offset"`  // body-local centre of pressure
}

// LocalForce returns the body-frame drag for a unit airflow direction dir
// (body frame) at the given airspeed.
func (c CylinderBody) LocalForce(dir mgl64.Vec3, speed float64) mgl64.Vec3 {
	if speed < minAirspeed {
		return mgl64.Vec3{}
	}
	v2 := speed * speed
	axial := math.Pi * c.Radius * c.Radius
	side := 2 * c.Radius * c.Length
	return mgl64.Vec3{
		-c.DragCoefficient * dir.X() * v2 * side,
		-c.DragCoefficient * dir.Y() * v2 * axial,
		-c.DragCoefficient * dir.Z() * v2 * side,
	}
}

// Force evaluates the hull drag for a body at pose moving with airVelocity.
func (c CylinderBody) Force(pose Pose, airVelocity mgl64.Vec3) AppliedForce {
	dir, speed := airflow(pose.Orientation, airVelocity)
	local := c.LocalForce(dir, speed)
	return AppliedForce{
		Source: "hull",
		Vector: pose.Orientation.Rotate(local),
		Point:  pose.PointToWorld(c.PressureOffset),
		Mode:   ForceContinuous,
	}
}

// GridFinBody holds the lattice dimensions of a grid fin.
type GridFinBody struct {
	SizeX           float64 `yaml:"size_x"`   // m
	SizeY           float64 `yaml:"size_y"`   // m, lattice depth
	SizeZ           float64 `yaml:"size_z"`   // m
	NumFins         float64 `yaml:"num_fins"` // lattice cell walls
	DragCoefficient float64 `yaml:"drag_coefficient"`
}

// LocalForce returns the fin-frame force for a unit airflow direction dir
// (fin frame) at the given airspeed and lift coefficient. Flow through the
// lattice (along Y) multiplies the effective lifting area.
func (g GridFinBody) LocalForce(dir mgl64.Vec3, speed, lift float64) mgl64.Vec3 {
	if speed < minAirspeed {
		return mgl64.Vec3{}
	}
	v2 := speed * speed
	surfaceX := g.SizeY * g.SizeZ
	surfaceZ := g.SizeY * g.SizeX
	mult := 1 + math.Abs(dir.Y())*g.NumFins
	return mgl64.Vec3{
		-lift * dir.X() * surfaceX * mult * v2,
		-0.05 * g.SizeX * g.SizeZ * dir.Y() * v2 * g.DragCoefficient,
		-lift * dir.Z() * surfaceZ * mult * v2,
	}
}

// Force evaluates the fin at the given world orientation. mount is the world
// position of the fin's centre of pressure.
func (g GridFinBody) Force(orientation mgl64.Quat, mount, airVelocity mgl64.Vec3, lift float64) AppliedForce {
	dir, speed := airflow(orientation, airVelocity)
	local := g.LocalForce(dir, speed, lift)
	return AppliedForce{
		Source: "grid_fin",
		Vector: orientation.Rotate(local),
		Point:  mount,
		Mode:   ForceContinuous,
	}
}

// airflow splits a world-space air velocity into a unit direction in the frame
// of q and its magnitude.
func airflow(q mgl64.Quat, airVelocity mgl64.Vec3) (mgl64.Vec3, float64) {
	speed := airVelocity.Len()
	if speed < minAirspeed {
		return mgl64.Vec3{}, 0
	}
	return q.Conjugate().Rotate(airVelocity.Mul(1 / speed)), speed
}
