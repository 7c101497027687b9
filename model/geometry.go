package model

import "math"

// Frame identifies the coordinate system a bounding box is expressed in.
type Frame int

const (
	// Source is the extraction frame: origin top-left, y increases downward.
	Source Frame = iota
	// Destination is the rendering frame: origin bottom-left, y increases upward.
	Destination
)

// String returns the frame name
func (f Frame) String() string {
	switch f {
	case Source:
		return "source"
	case Destination:
		return "destination"
	default:
		return "unknown"
	}
}

// Point represents a 2D point
type Point struct {
	X, Y float64
}

// BBox represents a bounding box (rectangle) in a named frame.
//
// In the Source frame Y0 is the top edge and Y1 the bottom edge; in the
// Destination frame Y0 is the bottom edge and Y1 the top edge. Either way
// a valid box has X1 > X0 and Y1 > Y0.
type BBox struct {
	X0, Y0 float64
	X1, Y1 float64
	Frame  Frame
}

// NewBBox creates a bounding box from its corner coordinates
func NewBBox(x0, y0, x1, y1 float64, frame Frame) BBox {
	return BBox{X0: x0, Y0: y0, X1: x1, Y1: y1, Frame: frame}
}

// Width returns the horizontal extent
func (b BBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the vertical extent
func (b BBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Center returns the center point
func (b BBox) Center() Point {
	return Point{
		X: b.X0 + b.Width()/2,
		Y: b.Y0 + b.Height()/2,
	}
}

// IsValid returns true if the box has finite coordinates and positive dimensions
func (b BBox) IsValid() bool {
	for _, v := range [4]float64{b.X0, b.Y0, b.X1, b.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X1 > b.X0 && b.Y1 > b.Y0
}

// Expand expands the bounding box by a margin on all sides
func (b BBox) Expand(margin float64) BBox {
	return BBox{
		X0:    b.X0 - margin,
		Y0:    b.Y0 - margin,
		X1:    b.X1 + margin,
		Y1:    b.Y1 + margin,
		Frame: b.Frame,
	}
}

// Union returns the smallest box containing both boxes. The receiver's
// frame is kept; mixing frames is the caller's mistake.
func (b BBox) Union(other BBox) BBox {
	return BBox{
		X0:    math.Min(b.X0, other.X0),
		Y0:    math.Min(b.Y0, other.Y0),
		X1:    math.Max(b.X1, other.X1),
		Y1:    math.Max(b.Y1, other.Y1),
		Frame: b.Frame,
	}
}

// Intersects checks if two bounding boxes overlap
func (b BBox) Intersects(other BBox) bool {
	return !(b.X1 < other.X0 ||
		b.X0 > other.X1 ||
		b.Y1 < other.Y0 ||
		b.Y0 > other.Y1)
}
