package geom

// BoundingBox is an axis-aligned rectangle anchored at its minimum corner.
type BoundingBox struct {
	Location      Point
	Width, Height float64
}

// BoxAround creates a box of the given size centered on c.
func BoxAround(c Point, width, height float64) BoundingBox {
	return BoundingBox{
		Location: Point{X: c.X - width/2, Y: c.Y - height/2},
		Width:    width,
		Height:   height,
	}
}

func (b BoundingBox) Center() Point {
	return Point{X: b.Location.X + b.Width/2, Y: b.Location.Y + b.Height/2}
}

// Max returns the corner opposite Location.
func (b BoundingBox) Max() Point {
	return Point{X: b.Location.X + b.Width, Y: b.Location.Y + b.Height}
}

// Corners returns the four corners counter-clockwise from Location.
func (b BoundingBox) Corners() [4]Point {
	mx := b.Max()
	return [4]Point{
		b.Location,
		{X: mx.X, Y: b.Location.Y},
		mx,
		{X: b.Location.X, Y: mx.Y},
	}
}

// Translate returns the box moved by d.
func (b BoundingBox) Translate(d Point) BoundingBox {
	b.Location = b.Location.Add(d)
	return b
}

// ContainsPoint reports whether p lies inside the box, edges included.
func (b BoundingBox) ContainsPoint(p Point) bool {
	mx := b.Max()
	return p.X >= b.Location.X && p.X <= mx.X && p.Y >= b.Location.Y && p.Y <= mx.Y
}

// IsWithin reports whether b lies entirely inside other.
func (b BoundingBox) IsWithin(other BoundingBox) bool {
	mx, omx := b.Max(), other.Max()
	return b.Location.X >= other.Location.X && b.Location.Y >= other.Location.Y &&
		mx.X <= omx.X && mx.Y <= omx.Y
}

// IsWithinAny reports whether every corner of b lies in at least one of boxes.
// This treats the union of adjacent boxes as a single region.
func (b BoundingBox) IsWithinAny(boxes ...BoundingBox) bool {
	for _, c := range b.Corners() {
		inside := false
		for _, o := range boxes {
			if o.ContainsPoint(c) {
				inside = true
				break
			}
		}
		if !inside {
			return false
		}
	}
	return true
}
