package sim

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"
)

// Spawn is the initial placement an arena hands out at episode start.
type Spawn struct {
	Position     mgl64.Vec3
	Orientation  mgl64.Quat
	Velocity     mgl64.Vec3
	Target       mgl64.Vec3
	TargetRadius float64 // radius of the target volume
}

// Arena randomises episode starts and describes the world around the vehicle.
type Arena interface {
	Name() string
	Spawn() Spawn
	// Pad is the landing pad centre and radius; radius 0 means no pad.
	Pad() (mgl64.Vec3, float64)
	Gravity() float64
	// Seed reseeds the arena's random source.
	Seed(seed uint64)
}

// sampler draws uniformly from intervals with one shared source.
type sampler struct {
	src rand.Source
}

func newSampler(seed uint64) sampler {
	return sampler{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

func (s sampler) draw(iv r1.Interval) float64 {
	if iv.Max <= iv.Min {
		return iv.Min
	}
	return distuv.Uniform{Min: iv.Min, Max: iv.Max, Src: s.src}.Rand()
}

// LanderArena drops the vehicle from StartingHeight above the platform with a
// lateral offset and an inbound velocity, engine first.
type LanderArena struct {
	Platform       mgl64.Vec3
	PadRadius      float64
	StartingHeight float64
	SpeedVariance  float64
	OffsetFraction float64 // lateral offset range as a fraction of StartingHeight
	TargetHeight   float64 // vehicle origin above the pad when landed
	TargetRadius   float64
	RandomizeYaw   bool

	rng sampler
}

func NewLanderArena(seed uint64) *LanderArena {
	return &LanderArena{
		PadRadius:      15,
		StartingHeight: 400,
		SpeedVariance:  3,
		OffsetFraction: 0.15,
		TargetHeight:   13,
		TargetRadius:   5,
		rng:            newSampler(seed),
	}
}

func (a *LanderArena) Name() string               { return "lander" }
func (a *LanderArena) Gravity() float64           { return StandardGravity }
func (a *LanderArena) Pad() (mgl64.Vec3, float64) { return a.Platform, a.PadRadius }
func (a *LanderArena) Seed(seed uint64)           { a.rng = newSampler(seed) }

func (a *LanderArena) Spawn() Spawn {
	h := a.StartingHeight
	off := r1.Interval{Min: -a.OffsetFraction * h, Max: a.OffsetFraction * h}
	spread := r1.Interval{Min: -a.SpeedVariance, Max: a.SpeedVariance}

	xOff, zOff := a.rng.draw(off), a.rng.draw(off)
	vel := mgl64.Vec3{
		-0.2*xOff + 1 + a.rng.draw(spread),
		-h / 8,
		-0.2*zOff + 1 + a.rng.draw(spread),
	}
	orient := lookUp(vel.Mul(-1))
	if a.RandomizeYaw {
		yaw := a.rng.draw(r1.Interval{Min: 0, Max: 364})
		orient = orient.Mul(mgl64.QuatRotate(mgl64.DegToRad(yaw), AxisUp))
	}
	return Spawn{
		Position:     a.Platform.Add(mgl64.Vec3{xOff, h, zOff}),
		Orientation:  orient,
		Velocity:     vel,
		Target:       a.Platform.Add(mgl64.Vec3{0, a.TargetHeight, 0}),
		TargetRadius: a.TargetRadius,
	}
}

// HoverArena places the vehicle at rest on a sphere around the target, never
// inside the cone of DeadAngle degrees around straight up or down.
type HoverArena struct {
	Target           mgl64.Vec3
	TargetSize       float64 // diameter of the target volume
	StartingDistance float64
	DeadAngle        float64 // deg

	rng sampler
}

func NewHoverArena(seed uint64) *HoverArena {
	return &HoverArena{
		Target:           mgl64.Vec3{0, 150, 0},
		TargetSize:       50,
		StartingDistance: 100,
		DeadAngle:        30,
		rng:              newSampler(seed),
	}
}

func (a *HoverArena) Name() string               { return "hover" }
func (a *HoverArena) Gravity() float64           { return StandardGravity }
func (a *HoverArena) Pad() (mgl64.Vec3, float64) { return mgl64.Vec3{}, 0 }
func (a *HoverArena) Seed(seed uint64)           { a.rng = newSampler(seed) }

func (a *HoverArena) Spawn() Spawn {
	v := a.rng.draw(r1.Interval{Min: a.DeadAngle, Max: 180 - a.DeadAngle})
	h := a.rng.draw(r1.Interval{Min: 0, Max: 365})
	dir := rotationFromEuler(0, h, v).Rotate(AxisUp)
	return Spawn{
		Position:     a.Target.Add(dir.Mul(a.StartingDistance)),
		Orientation:  mgl64.QuatIdent(),
		Target:       a.Target,
		TargetRadius: a.TargetSize / 2,
	}
}

// MissileArena launches from Origin toward a target on a cone above it.
// Gravity is off; Origin sits clear of the ground plane.
type MissileArena struct {
	Origin       mgl64.Vec3
	Radius       r1.Interval
	MaxAngle     float64 // deg from vertical
	TargetRadius float64

	rng sampler
}

func NewMissileArena(seed uint64) *MissileArena {
	return &MissileArena{
		Origin:       mgl64.Vec3{0, 5, 0},
		Radius:       r1.Interval{Min: 30, Max: 50},
		MaxAngle:     45,
		TargetRadius: 2,
		rng:          newSampler(seed),
	}
}

func (a *MissileArena) Name() string               { return "missile" }
func (a *MissileArena) Gravity() float64           { return 0 }
func (a *MissileArena) Pad() (mgl64.Vec3, float64) { return mgl64.Vec3{}, 0 }
func (a *MissileArena) Seed(seed uint64)           { a.rng = newSampler(seed) }

func (a *MissileArena) Spawn() Spawn {
	r := a.rng.draw(a.Radius)
	v := a.rng.draw(r1.Interval{Min: 0, Max: a.MaxAngle})
	h := a.rng.draw(r1.Interval{Min: 0, Max: 365})
	dir := rotationFromEuler(0, h, v).Rotate(AxisUp)
	return Spawn{
		Position:     a.Origin,
		Orientation:  mgl64.QuatIdent(),
		Target:       a.Origin.Add(dir.Mul(r)),
		TargetRadius: a.TargetRadius,
	}
}

// ArenaFor returns the default arena for a vehicle preset name.
func ArenaFor(name string, seed uint64) Arena {
	switch name {
	case "hover":
		return NewHoverArena(seed)
	case "missile":
		return NewMissileArena(seed)
	default:
		return NewLanderArena(seed)
	}
}
