package components

import (
	"math"

	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/geom"
)

// forwardUnit is the fixed "up" segment that headings are measured against.
var forwardUnit = geom.Seg(0, -0.5, 0, 0.5)

// Handling holds the kinematic limits of a vehicle.
type Handling struct {
	MinSpeed        float64
	MaxSpeed        float64
	MaxTurnVelocity float64 // degrees per tick
	TurnSpeedBleed  float64 // speed lost per degree of turn velocity change
	DistanceScale   float64
}

// HandlingFromConfig extracts handling limits from vehicle config.
func HandlingFromConfig(c config.VehicleConfig) Handling {
	return Handling{
		MinSpeed:        c.MinSpeed,
		MaxSpeed:        c.MaxSpeed,
		MaxTurnVelocity: c.MaxTurnVelocity,
		TurnSpeedBleed:  c.TurnSpeedBleed,
		DistanceScale:   c.DistanceScale,
	}
}

// Vehicle is an axis-aligned box with a heading.
// The box never rotates; only the forward vector does.
type Vehicle struct {
	Box          geom.BoundingBox
	Speed        float64
	TurnAngle    float64 // degrees, counter-clockwise from "up"
	TurnVelocity float64 // degrees per tick

	Handling Handling
}

// NewVehicle creates a vehicle centered on center, facing heading, at minimum speed.
func NewVehicle(center geom.Point, heading float64, c config.VehicleConfig) Vehicle {
	h := HandlingFromConfig(c)
	return Vehicle{
		Box:       geom.BoxAround(center, c.Width, c.Height),
		Speed:     h.MinSpeed,
		TurnAngle: heading,
		Handling:  h,
	}
}

// Turn changes the turn velocity by delta within the symmetric bound and
// bleeds speed by the size of the change actually applied.
func (v *Vehicle) Turn(delta float64) {
	before := v.TurnVelocity
	v.TurnVelocity = clamp(v.TurnVelocity+delta, -v.Handling.MaxTurnVelocity, v.Handling.MaxTurnVelocity)
	applied := math.Abs(v.TurnVelocity - before)
	v.Speed = clamp(v.Speed-applied*v.Handling.TurnSpeedBleed, v.Handling.MinSpeed, v.Handling.MaxSpeed)
}

// Accelerate changes speed by delta within [MinSpeed, MaxSpeed].
func (v *Vehicle) Accelerate(delta float64) {
	v.Speed = clamp(v.Speed+delta, v.Handling.MinSpeed, v.Handling.MaxSpeed)
}

// Tick integrates heading then moves the box along the forward vector.
func (v *Vehicle) Tick() {
	v.TurnAngle = normalizeDegrees(v.TurnAngle + v.TurnVelocity)
	step := forwardUnit.Rotate(v.TurnAngle).Direction()
	v.Box = v.Box.Translate(step.Scale(v.Handling.DistanceScale * v.Speed))
}

// Forward returns the unit heading segment anchored at the box center.
func (v *Vehicle) Forward() geom.Segment {
	return forwardUnit.Rotate(v.TurnAngle).Translate(v.Center())
}

func (v *Vehicle) Center() geom.Point {
	return v.Box.Center()
}

// Heading returns the turn angle in degrees.
func (v *Vehicle) Heading() float64 {
	return v.TurnAngle
}

// Footprint is the smaller box dimension.
func (v *Vehicle) Footprint() float64 {
	return math.Min(v.Box.Width, v.Box.Height)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeDegrees wraps an angle to (-180, 180].
func normalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	return a
}
