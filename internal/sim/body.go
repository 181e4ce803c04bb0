package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// StandardGravity in m/s².
const StandardGravity = 9.81

// Contact is one probe point found below the ground plane.
type Contact struct {
	Probe int // index into the probe list
	Leg   bool
	Point mgl64.Vec3 // world
	Depth float64    // penetration, m
	Speed float64    // contact point speed before resolution, m/s
}

// RigidBody is a minimal 6-DOF integrator standing in for a physics engine in
// headless runs. Position is the body origin; velocities are those of the
// centre of mass. Angular velocity is in world frame.
type RigidBody struct {
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3

	Mass         float64    // kg
	CenterOfMass mgl64.Vec3 // body-local
	Inertia      mgl64.Vec3 // principal moments about body axes, kg·m²

	Gravity        float64 // m/s², along -Y
	AngularDamping float64 // 1/s
	GroundLevel    float64 // world Y of the ground plane
	GroundFriction float64 // fraction of horizontal speed kept per contact step

	force, torque     mgl64.Vec3
	impulse, angularJ mgl64.Vec3
}

// NewRigidBody returns a body at rest at the origin with identity orientation.
func NewRigidBody(mass float64, com mgl64.Vec3) *RigidBody {
	return &RigidBody{
		Orientation:    mgl64.QuatIdent(),
		Mass:           mass,
		CenterOfMass:   com,
		Inertia:        mgl64.Vec3{1, 1, 1},
		Gravity:        StandardGravity,
		AngularDamping: 0.1,
		GroundFriction: 0.8,
	}
}

// RecomputeInertia sets the diagonal inertia of a solid cylinder of the
// current mass whose axis is body Y.
func (b *RigidBody) RecomputeInertia(radius, length float64) {
	m := b.Mass
	ix := m * (3*radius*radius + length*length) / 12
	iy := 0.5 * m * radius * radius

	const minMOI = 1e-6
	if ix < minMOI {
		ix = minMOI
	}
	if iy < minMOI {
		iy = minMOI
	}
	b.Inertia = mgl64.Vec3{ix, iy, ix}
}

// WorldCenterOfMass returns the centre of mass in world space.
func (b *RigidBody) WorldCenterOfMass() mgl64.Vec3 {
	return b.Position.Add(b.Orientation.Rotate(b.CenterOfMass))
}

// PointToWorld maps a body-local point to world space.
func (b *RigidBody) PointToWorld(local mgl64.Vec3) mgl64.Vec3 {
	return b.Position.Add(b.Orientation.Rotate(local))
}

// PointVelocity is the velocity of a world point rigidly attached to the body.
func (b *RigidBody) PointVelocity(world mgl64.Vec3) mgl64.Vec3 {
	return b.Velocity.Add(b.AngularVelocity.Cross(world.Sub(b.WorldCenterOfMass())))
}

// Apply accumulates a force or impulse until the next Integrate.
func (b *RigidBody) Apply(f AppliedForce) {
	r := f.Point.Sub(b.WorldCenterOfMass())
	tau := r.Cross(f.Vector)
	if f.Mode == ForceImpulse {
		b.impulse = b.impulse.Add(f.Vector)
		b.angularJ = b.angularJ.Add(tau)
		return
	}
	b.force = b.force.Add(f.Vector)
	b.torque = b.torque.Add(tau)
}

// Integrate advances the body by dt with semi-implicit Euler and clears the
// accumulators.
func (b *RigidBody) Integrate(dt float64) {
	if dt <= 0 {
		return
	}
	m := math.Max(b.Mass, 1e-6)
	com := b.WorldCenterOfMass()

	acc := b.force.Mul(1 / m).Add(mgl64.Vec3{0, -b.Gravity, 0})
	b.Velocity = b.Velocity.Add(acc.Mul(dt)).Add(b.impulse.Mul(1 / m))

	// angular response in body axes, per-axis inertia
	inv := b.Orientation.Conjugate()
	dL := inv.Rotate(b.torque.Mul(dt).Add(b.angularJ))
	w := inv.Rotate(b.AngularVelocity)
	for i := 0; i < 3; i++ {
		if b.Inertia[i] > 0 {
			w[i] += dL[i] / b.Inertia[i]
		}
	}
	w = w.Mul(math.Exp(-b.AngularDamping * dt))
	b.AngularVelocity = sanitizeVec(b.Orientation.Rotate(w))

	spin := mgl64.Quat{W: 0, V: b.AngularVelocity}
	b.Orientation = b.Orientation.Add(spin.Mul(b.Orientation).Scale(0.5 * dt)).Normalize()

	com = com.Add(b.Velocity.Mul(dt))
	b.Position = com.Sub(b.Orientation.Rotate(b.CenterOfMass))

	b.force, b.torque = mgl64.Vec3{}, mgl64.Vec3{}
	b.impulse, b.angularJ = mgl64.Vec3{}, mgl64.Vec3{}

	b.Position = sanitizeVec(b.Position)
	b.Velocity = sanitizeVec(b.Velocity)
}

// ResolveGround pushes the body out of the ground plane and absorbs the
// downward motion. probes are body-local points; the first legs entries are
// leg feet. It returns every probe that was below ground.
func (b *RigidBody) ResolveGround(probes []mgl64.Vec3, legs int) []Contact {
	var contacts []Contact
	deepest := 0.0
	for i, p := range probes {
		w := b.PointToWorld(p)
		depth := b.GroundLevel - w.Y()
		if depth <= 0 {
			continue
		}
		contacts = append(contacts, Contact{
			Probe: i,
			Leg:   i < legs,
			Point: w,
			Depth: depth,
			Speed: b.PointVelocity(w).Len(),
		})
		if depth > deepest {
			deepest = depth
		}
	}
	if len(contacts) == 0 {
		return nil
	}

	b.Position[1] += deepest
	if b.Velocity.Y() < 0 {
		b.Velocity[1] = 0
	}
	b.Velocity[0] *= b.GroundFriction
	b.Velocity[2] *= b.GroundFriction
	b.AngularVelocity = b.AngularVelocity.Mul(b.GroundFriction)
	return contacts
}

// Teleport places the body and clears its motion and accumulators.
func (b *RigidBody) Teleport(pos mgl64.Vec3, orientation mgl64.Quat, velocity mgl64.Vec3) {
	b.Position = pos
	b.Orientation = orientation.Normalize()
	b.Velocity = velocity
	b.AngularVelocity = mgl64.Vec3{}
	b.force, b.torque = mgl64.Vec3{}, mgl64.Vec3{}
	b.impulse, b.angularJ = mgl64.Vec3{}, mgl64.Vec3{}
}

// Snapshot returns the kinematic state the vehicle core reads each tick.
func (b *RigidBody) Snapshot() KinematicSnapshot {
	return KinematicSnapshot{
		Position:        b.Position,
		Orientation:     b.Orientation,
		LinearVelocity:  b.Velocity,
		AngularVelocity: b.AngularVelocity,
	}
}
