package geom

import "math"

// Segment is a directed line segment from Start to End.
//
// The standard-form coefficients (A*x + B*y = C) and the center are cached,
// so segments must be built with NewSegment.
type Segment struct {
	Start, End Point

	A, B, C float64
	Center  Point
}

// NewSegment creates a segment and caches its derived values.
func NewSegment(start, end Point) Segment {
	a := end.Y - start.Y
	b := start.X - end.X
	return Segment{
		Start:  start,
		End:    end,
		A:      a,
		B:      b,
		C:      a*start.X + b*start.Y,
		Center: Point{X: (start.X + end.X) / 2, Y: (start.Y + end.Y) / 2},
	}
}

// Seg is shorthand for NewSegment(Pt(x1, y1), Pt(x2, y2)).
func Seg(x1, y1, x2, y2 float64) Segment {
	return NewSegment(Point{X: x1, Y: y1}, Point{X: x2, Y: y2})
}

// Length returns the distance from Start to End.
func (s Segment) Length() float64 {
	return s.Start.DistanceTo(s.End)
}

// Direction returns End - Start.
func (s Segment) Direction() Point {
	return s.End.Sub(s.Start)
}

// Translate shifts both endpoints by d.
func (s Segment) Translate(d Point) Segment {
	return NewSegment(s.Start.Add(d), s.End.Add(d))
}

// Scale multiplies both endpoints by f (about the origin).
func (s Segment) Scale(f float64) Segment {
	return NewSegment(s.Start.Scale(f), s.End.Scale(f))
}

// Reversed swaps Start and End.
func (s Segment) Reversed() Segment {
	return NewSegment(s.End, s.Start)
}

// RotateAround rotates both endpoints counter-clockwise by deg degrees about origin.
func (s Segment) RotateAround(origin Point, deg float64) Segment {
	if deg == 0 {
		return s
	}
	return NewSegment(s.Start.RotateAround(origin, deg), s.End.RotateAround(origin, deg))
}

// Rotate rotates the segment about its own center.
func (s Segment) Rotate(deg float64) Segment {
	return s.RotateAround(s.Center, deg)
}

// Heading returns the angle of Start->End in degrees, in (-180, 180].
func (s Segment) Heading() float64 {
	return math.Atan2(s.End.Y-s.Start.Y, s.End.X-s.Start.X) * 180 / math.Pi
}

// Intersect returns the intersection of the infinite lines through a and b.
// Parallel or coincident lines, and results that are not finite, report false.
func Intersect(a, b Segment) (Point, bool) {
	det := a.A*b.B - b.A*a.B
	if det == 0 {
		return Point{}, false
	}
	p := Point{
		X: (b.B*a.C - a.B*b.C) / det,
		Y: (a.A*b.C - b.A*a.C) / det,
	}
	if !p.Finite() {
		return Point{}, false
	}
	return p, true
}

// AngleBetween returns the unsigned angle between the lines of a and b in
// degrees, folded into [0, 90].
func AngleBetween(a, b Segment) float64 {
	d := math.Mod(math.Abs(a.Heading()-b.Heading()), 180)
	return math.Min(d, 180-d)
}

// DistanceTo returns the distance from p to the closest point of the segment.
func (s Segment) DistanceTo(p Point) float64 {
	d := s.Direction()
	lenSq := d.Dot(d)
	if lenSq == 0 {
		return s.Start.DistanceTo(p)
	}
	t := p.Sub(s.Start).Dot(d) / lenSq
	t = math.Max(0, math.Min(1, t))
	return s.Start.Add(d.Scale(t)).DistanceTo(p)
}

// Contains reports whether p lies inside the segment's bounding rectangle
// grown by tolerance on every side.
func (s Segment) Contains(p Point, tolerance float64) bool {
	minX, maxX := math.Min(s.Start.X, s.End.X), math.Max(s.Start.X, s.End.X)
	minY, maxY := math.Min(s.Start.Y, s.End.Y), math.Max(s.Start.Y, s.End.Y)
	return p.X >= minX-tolerance && p.X <= maxX+tolerance &&
		p.Y >= minY-tolerance && p.Y <= maxY+tolerance
}

// Ahead reports whether p lies strictly in front of Start along Start->End.
func (s Segment) Ahead(p Point) bool {
	return p.Sub(s.Start).Dot(s.Direction()) > 0
}
