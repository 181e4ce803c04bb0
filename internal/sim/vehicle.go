package sim

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// FinMount places one grid fin on the hull.
type FinMount struct {
	Position  FinPosition `yaml:"position"`
	Mount     mgl64.Vec3  `yaml:"mount"`      // body-local centre of pressure
	HingeAxis mgl64.Vec3  `yaml:"hinge_axis"` // body-local steering axis
}

// LegGeometry places the landing-leg feet in the body frame.
type LegGeometry struct {
	Count          int     `yaml:"count"`
	DeployedRadius float64 `yaml:"deployed_radius"` // m from the hull axis
	DeployedDrop   float64 `yaml:"deployed_drop"`   // m below the hull bottom
	DeployAltitude float64 `yaml:"deploy_altitude"` // deployed below this height, stowed above; 0 disables
}

// VehicleConfig is the single parameter record for every vehicle variant.
type VehicleConfig struct {
	Name string `yaml:"name"`

	Hull         CylinderBody     `yaml:"hull"`
	CenterOfMass mgl64.Vec3       `yaml:"center_of_mass"` // body-local
	Propulsion   PropulsionConfig `yaml:"propulsion"`

	MaxEngineAngle  float64 `yaml:"max_engine_angle"`   // deg
	MaxGridFinAngle float64 `yaml:"max_grid_fin_angle"` // deg

	Fins         []FinMount  `yaml:"fins"`
	FinBody      GridFinBody `yaml:"fin_body"`
	FinLift      float64     `yaml:"fin_lift"`
	FinsDeployed bool        `yaml:"fins_deployed"`

	Legs         LegGeometry `yaml:"legs"`
	LegsDeployed bool        `yaml:"legs_deployed"`

	// CutoffOnTouchdown stops the engine after the first ground contact.
	CutoffOnTouchdown bool `yaml:"cutoff_on_touchdown"`

	Autopilot      Gains       `yaml:"autopilot"`
	AutopilotRange OutputRange `yaml:"autopilot_range"`

	Reward RewardConfig `yaml:"reward"`
	Wind   mgl64.Vec3   `yaml:"wind"` // m/s
}

// Validate checks the record for values the tick cannot work with.
func (c VehicleConfig) Validate() error {
	switch {
	case c.Hull.Radius <= 0 || c.Hull.Length <= 0:
		return fmt.Errorf("%w: hull dimensions must be positive", ErrInvalidConfig)
	case c.Propulsion.DryMass <= 0:
		return fmt.Errorf("%w: dry mass must be positive", ErrInvalidConfig)
	case c.Propulsion.FuelMass < 0 || c.Propulsion.MaxFuel < 0:
		return fmt.Errorf("%w: fuel capacity must not be negative", ErrInvalidConfig)
	case c.Propulsion.StartingFuel < 0 || c.Propulsion.StartingFuel > 1:
		return fmt.Errorf("%w: starting fuel %g outside [0,1]", ErrInvalidConfig, c.Propulsion.StartingFuel)
	case c.MaxEngineAngle < 0 || c.MaxGridFinAngle < 0:
		return fmt.Errorf("%w: actuator limits must not be negative", ErrInvalidConfig)
	case len(c.Fins) > 4:
		return fmt.Errorf("%w: at most four grid fins", ErrInvalidConfig)
	case c.Legs.Count < 0:
		return fmt.Errorf("%w: negative leg count", ErrInvalidConfig)
	}
	seen := map[FinPosition]bool{}
	for _, f := range c.Fins {
		if f.Position < FinFront || f.Position > FinLeft {
			return fmt.Errorf("%w: unknown fin position %d", ErrInvalidConfig, f.Position)
		}
		if seen[f.Position] {
			return fmt.Errorf("%w: duplicate %s fin", ErrInvalidConfig, f.Position)
		}
		seen[f.Position] = true
	}
	return nil
}

// standardFins is the four-fin cross near the top of a hull of the given
// half-length and radius.
func standardFins(halfLength, radius float64) []FinMount {
	y := halfLength - 2
	r := radius + 1
	return []FinMount{
		{Position: FinFront, Mount: mgl64.Vec3{0, y, r}, HingeAxis: AxisForward},
		{Position: FinBack, Mount: mgl64.Vec3{0, y, -r}, HingeAxis: AxisForward.Mul(-1)},
		{Position: FinRight, Mount: mgl64.Vec3{r, y, 0}, HingeAxis: AxisRight},
		{Position: FinLeft, Mount: mgl64.Vec3{-r, y, 0}, HingeAxis: AxisRight.Mul(-1)},
	}
}

// LanderConfig is the booster that falls from altitude and lands on a pad.
func LanderConfig() VehicleConfig {
	hull := CylinderBody{Radius: 1.5, Length: 24, DragCoefficient: 0.002, PressureOffset: mgl64.Vec3{0, 2, 0}}
	return VehicleConfig{
		Name:         "lander",
		Hull:         hull,
		CenterOfMass: mgl64.Vec3{0, -2, 0},
		Propulsion: PropulsionConfig{
			ThrustForce:  1500,
			MaxFuel:      100,
			StartingFuel: 1,
			FuelMass:     80,
			DryMass:      20,
			ConsumeFuel:  true,
			ThrustPoint:  mgl64.Vec3{0, -hull.Length / 2, 0},
			Curve:        IdentityCurve(),
		},
		MaxEngineAngle:  20,
		MaxGridFinAngle: 20,
		Fins:            standardFins(hull.Length/2, hull.Radius),
		FinBody:         GridFinBody{SizeX: 2, SizeY: 0.5, SizeZ: 2, NumFins: 8, DragCoefficient: 0.05},
		FinLift:         0.01,
		FinsDeployed:    true,
		Legs: LegGeometry{
			Count:          4,
			DeployedRadius: 5,
			DeployedDrop:   1,
			DeployAltitude: 100,
		},
		CutoffOnTouchdown: true,
		Autopilot:         DefaultGains,
		AutopilotRange:    OutputFull,
		Reward: RewardConfig{
			Distance:             DistancePotential,
			DistanceScale:        75,
			DistanceFloor:        4,
			DistanceWeight:       0.3,
			TiltLimit:            100,
			TiltPenalty:          -20,
			TouchdownBase:        40,
			TouchdownDivisor:     2,
			ResetOnTouchdown:     true,
			TouchdownCountdown:   8,
			LegContactReward:     5,
			DwellRate:            5,
			BelowGround:          true,
			SubsystemLossPenalty: -20,
		},
	}
}

// HoverConfig is the vehicle that must reach and hold a point in the air.
func HoverConfig() VehicleConfig {
	c := LanderConfig()
	c.Name = "hover"
	c.Propulsion.ThrustForce = 2500
	c.Legs.DeployAltitude = 0
	c.LegsDeployed = true
	c.CutoffOnTouchdown = false
	c.Reward = RewardConfig{
		Distance:             DistancePotential,
		DistanceScale:        30,
		DistanceFloor:        1,
		DistanceWeight:       0.1,
		TiltLimit:            100,
		TiltPenalty:          -20,
		DwellRate:            3,
		SubsystemLossPenalty: -20,
	}
	return c
}

// MissileConfig is the small finless vehicle that flies into a target volume.
func MissileConfig() VehicleConfig {
	hull := CylinderBody{Radius: 0.2, Length: 3, DragCoefficient: 0.01, PressureOffset: mgl64.Vec3{0, 0.3, 0}}
	return VehicleConfig{
		Name:         "missile",
		Hull:         hull,
		CenterOfMass: mgl64.Vec3{0, -0.2, 0},
		Propulsion: PropulsionConfig{
			ThrustForce:  15,
			MaxFuel:      20,
			StartingFuel: 1,
			FuelMass:     8,
			DryMass:      2,
			ConsumeFuel:  true,
			ThrustPoint:  mgl64.Vec3{0, -hull.Length / 2, 0},
			Curve:        IdentityCurve(),
		},
		MaxEngineAngle:  20,
		MaxGridFinAngle: 0,
		Autopilot:       DefaultGains,
		AutopilotRange:  OutputHalf,
		Reward: RewardConfig{
			Distance:             DistanceProgress,
			RetreatFactor:        0.75,
			TargetReward:         10,
			TerminateOnTarget:    true,
			ThrustPenaltyRate:    0.1,
			SubsystemLossPenalty: -20,
		},
	}
}

var presets = map[string]func() VehicleConfig{
	"lander":  LanderConfig,
	"hover":   HoverConfig,
	"missile": MissileConfig,
}

// Preset returns the named vehicle configuration.
func Preset(name string) (VehicleConfig, error) {
	f, ok := presets[strings.ToLower(name)]
	if !ok {
		return VehicleConfig{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
	}
	return f(), nil
}

// PresetNames lists the known presets.
func PresetNames() []string {
	return []string{"lander", "hover", "missile"}
}
