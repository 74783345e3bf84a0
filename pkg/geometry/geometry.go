// Package geometry provides the small amount of plane geometry the diagram
// core needs: grid positions, bounding rectangles and an arc-length metric
// used to convert absolute arrow shortenings into percentages.
//
// Rendering-accurate curve sampling belongs to the host application. The
// [Grid] metric here is a straight-line estimate that is good enough for
// converting tikz-cd lengths to and from the percentage representation.
package geometry

import "math"

// Point is a position on the diagram grid. X grows to the right (columns)
// and Y grows downward (rows).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Length returns the Euclidean norm of p.
func (p Point) Length() float64 { return math.Hypot(p.X, p.Y) }

// Lerp interpolates between p (t=0) and q (t=1).
func (p Point) Lerp(q Point, t float64) Point {
	return p.Add(q.Sub(p).Scale(t))
}

// Min returns the component-wise minimum of p and q.
func Min(p, q Point) Point { return Point{math.Min(p.X, q.X), math.Min(p.Y, q.Y)} }

// Max returns the component-wise maximum of p and q.
func Max(p, q Point) Point { return Point{math.Max(p.X, q.X), math.Max(p.Y, q.Y)} }

// Metric measures the drawn length of an arrow between two endpoint
// centres (in grid coordinates) with the given curvature.
type Metric interface {
	ArcLength(from, to Point, curve int) float64
}

// Default grid dimensions, in points, matching tikz-cd's default spacing
// closely enough for shortening conversions.
const (
	DefaultCellSize  = 60.0
	DefaultCurveStep = 12.0
)

// Grid estimates arc lengths by scaling grid distances by CellSize. Curved
// arrows are treated as parabolic arcs whose height is curve*CurveStep.
type Grid struct {
	CellSize  float64
	CurveStep float64
}

// DefaultGrid returns a Grid with the default dimensions.
func DefaultGrid() Grid {
	return Grid{CellSize: DefaultCellSize, CurveStep: DefaultCurveStep}
}

// ArcLength implements Metric.
func (g Grid) ArcLength(from, to Point, curve int) float64 {
	chord := to.Sub(from).Length() * g.CellSize
	if curve == 0 {
		return chord
	}
	h := float64(curve) * g.CurveStep
	// Arc length of a parabolic segment, accurate to a few percent for the
	// shallow curves tikz-cd produces.
	return math.Sqrt(chord*chord + 16.0/3.0*h*h)
}

var _ Metric = Grid{}
