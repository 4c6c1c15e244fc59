package systems

import (
	"math"

	"github.com/pthm-cable/circuit/components"
	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/geom"
	"github.com/pthm-cable/circuit/neural"
	"github.com/pthm-cable/circuit/track"
)

// Sensor slots, in policy input order.
const (
	SensorLeft = iota
	SensorCenter
	SensorRight
	NumSensors
)

// SensorReading is the nearest wall hit of one ray. A reading with OK unset
// means the ray found nothing, which is a normal outcome.
type SensorReading struct {
	Point    geom.Point
	Distance float64
	OK       bool
}

// Snapshot holds the three readings of one tick.
type Snapshot struct {
	Readings [NumSensors]SensorReading
}

func (s Snapshot) Left() SensorReading   { return s.Readings[SensorLeft] }
func (s Snapshot) Center() SensorReading { return s.Readings[SensorCenter] }
func (s Snapshot) Right() SensorReading  { return s.Readings[SensorRight] }

// Inputs converts the snapshot to policy inputs. Missing readings become 0.
func (s Snapshot) Inputs(scale float64) neural.Inputs {
	var in neural.Inputs
	for i, r := range s.Readings {
		if r.OK {
			in[i] = r.Distance * scale
		}
	}
	return in
}

// SensorRig casts the three rays of a vehicle against nearby walls.
type SensorRig struct {
	offsets   [NumSensors]float64
	length    float64
	tolerance float64
}

// NewSensorRig creates a rig from config. Left is the counter-clockwise side.
func NewSensorRig(cfg *config.Config) SensorRig {
	a := cfg.Sensors.OffsetAngle
	return SensorRig{
		offsets:   [NumSensors]float64{a, 0, -a},
		length:    cfg.Derived.SensorLength,
		tolerance: cfg.Sensors.BoundaryTolerance,
	}
}

// Ray returns the ray of one sensor slot: from the vehicle center along the
// heading, rotated by the slot's offset.
func (r SensorRig) Ray(v *components.Vehicle, slot int) geom.Segment {
	c := v.Center()
	dir := v.Forward().Direction()
	ray := geom.NewSegment(c, c.Add(dir.Scale(r.length)))
	return ray.RotateAround(c, r.offsets[slot])
}

// Cast reads all sensors against the walls of the node and its neighbours.
func (r SensorRig) Cast(v *components.Vehicle, t *track.Track, node int) Snapshot {
	var snap Snapshot
	hood := t.Neighborhood(node)
	for slot := 0; slot < NumSensors; slot++ {
		snap.Readings[slot] = r.castOne(r.Ray(v, slot), t, hood)
	}
	return snap
}

func (r SensorRig) castOne(ray geom.Segment, t *track.Track, hood [3]int) SensorReading {
	best := SensorReading{Distance: math.Inf(1)}
	for _, idx := range hood {
		for _, wall := range t.Node(idx).Walls {
			p, ok := geom.Intersect(ray, wall.Segment)
			if !ok {
				continue
			}
			if !wall.Contains(p, r.tolerance) || !ray.Ahead(p) {
				continue
			}
			if d := ray.Start.DistanceTo(p); d < best.Distance {
				best = SensorReading{Point: p, Distance: d, OK: true}
			}
		}
	}
	if !best.OK {
		return SensorReading{}
	}
	return best
}
