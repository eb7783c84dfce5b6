package analysis

import "math"

// StrokeType identifies the athletic stroke a frame or segment was
// classified as.
type StrokeType string

const (
	StrokeServe        StrokeType = "serve"
	StrokeGroundstroke StrokeType = "groundstroke"
	StrokeVolley       StrokeType = "volley"
	StrokeDink         StrokeType = "dink"
	StrokeOverhead     StrokeType = "overhead"
	StrokeUnknown      StrokeType = "unknown"
)

// Classification is the per-frame output of the stroke heuristics.
type Classification struct {
	Type       StrokeType `json:"stroke_type"`
	Confidence float64    `json:"confidence"`
	SubType    string     `json:"sub_type"`
}

// Point is a 2D position in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned bounding box, x1/y1 top-left, x2/y2 bottom-right,
// pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Center returns the box center.
func (b Box) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Area returns the box area in square pixels.
func (b Box) Area() float64 {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// Contains reports whether the point lies inside the box.
func (b Box) Contains(p Point) bool {
	return p.X >= b.X1 && p.X <= b.X2 && p.Y >= b.Y1 && p.Y <= b.Y2
}

// IoU computes intersection-over-union between two boxes, 0 when disjoint.
func IoU(a, b Box) float64 {
	x1 := math.Max(a.X1, b.X1)
	y1 := math.Max(a.Y1, b.Y1)
	x2 := math.Min(a.X2, b.X2)
	y2 := math.Min(a.Y2, b.Y2)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	inter := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// DetectionCandidate is one person box proposed by the detector for a frame.
type DetectionCandidate struct {
	Box        Box
	Confidence float64
}

// TrackCandidate is a detection tagged with a persistent track identifier.
// Predicted is set when the box was carried forward by the tracker with no
// matching detection this frame.
type TrackCandidate struct {
	ID         int
	Box        Box
	Confidence float64
	Predicted  bool
}
