// Package shape defines the geometric sample carried through the hand-off
// and the generators that produce one sample per audio frame.
package shape

import "math"

// Point is one 3-D sample. It is a plain value and safe to copy.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pt is shorthand for a point on the Z=0 plane
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Rotate returns p rotated by theta radians around the Z axis
func (p Point) Rotate(theta float64) Point {
	sin, cos := math.Sincos(theta)
	return Point{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
		Z: p.Z,
	}
}

// Scale multiplies X and Y independently; Z is untouched
func (p Point) Scale(x, y float64) Point {
	return Point{X: p.X * x, Y: p.Y * y, Z: p.Z}
}

func (p Point) Translate(x, y float64) Point {
	return Point{X: p.X + x, Y: p.Y + y, Z: p.Z}
}

// ReflectRelativeToVector mirrors p through the point (x, y)
func (p Point) ReflectRelativeToVector(x, y float64) Point {
	return Point{
		X: p.X + 2*(x-p.X),
		Y: p.Y + 2*(y-p.Y),
		Z: p.Z,
	}
}

// Magnitude is the Euclidean length of p in three dimensions
func (p Point) Magnitude() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Clamp limits every component to [-limit, limit]
func (p Point) Clamp(limit float64) Point {
	return Point{
		X: clamp(p.X, limit),
		Y: clamp(p.Y, limit),
		Z: clamp(p.Z, limit),
	}
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
