package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Shape is a planar obstacle.
type Shape interface {
	// Contains reports whether `pt` lies inside the shape or on its boundary.
	Contains(pt r2.Point) bool
	// Center is the centroid of the shape.
	Center() r2.Point
	// EscapePoint is the closest point at least `margin` outside the shape from `pt`.
	EscapePoint(pt r2.Point, margin float64) r2.Point
	// Config converts the shape to its serializable form.
	Config() ShapeConfig
}

// Circle is a disc obstacle.
type Circle struct {
	center r2.Point
	radius float64
}

// NewCircle returns a circle, failing on a non-positive radius.
func NewCircle(center r2.Point, radius float64) (*Circle, error) {
	if radius <= 0 {
		return nil, errors.Errorf("circle radius must be positive, got %v", radius)
	}
	return &Circle{center: center, radius: radius}, nil
}

// Radius returns the radius of the circle.
func (c *Circle) Radius() float64 {
	return c.radius
}

// Contains implements Shape.
func (c *Circle) Contains(pt r2.Point) bool {
	return pt.Sub(c.center).Norm() <= c.radius
}

// Center implements Shape.
func (c *Circle) Center() r2.Point {
	return c.center
}

// EscapePoint implements Shape.
func (c *Circle) EscapePoint(pt r2.Point, margin float64) r2.Point {
	dir := pt.Sub(c.center)
	if dir.Norm() == 0 {
		dir = r2.Point{X: 1}
	}
	dist := dir.Norm()
	if dist >= c.radius+margin {
		return pt
	}
	return c.center.Add(dir.Normalize().Mul(c.radius + margin))
}

// Config implements Shape.
func (c *Circle) Config() ShapeConfig {
	return ShapeConfig{Type: CircleType, X: c.center.X, Y: c.center.Y, R: c.radius}
}

// Rect is an axis-aligned rectangle obstacle, e.g. a defense area.
type Rect struct {
	bounds r2.Rect
}

// NewRect returns the rectangle spanned by two opposite corners.
func NewRect(a, b r2.Point) (*Rect, error) {
	bounds := r2.RectFromPoints(a, b)
	if bounds.IsEmpty() || bounds.X.Length() == 0 || bounds.Y.Length() == 0 {
		return nil, errors.Errorf("degenerate rectangle from %v to %v", a, b)
	}
	return &Rect{bounds: bounds}, nil
}

// Contains implements Shape.
func (r *Rect) Contains(pt r2.Point) bool {
	return r.bounds.ContainsPoint(pt)
}

// Center implements Shape.
func (r *Rect) Center() r2.Point {
	return r.bounds.Center()
}

// EscapePoint implements Shape.
func (r *Rect) EscapePoint(pt r2.Point, margin float64) r2.Point {
	expanded := r.bounds.ExpandedByMargin(margin)
	if !expanded.ContainsPoint(pt) {
		return pt
	}
	lo, hi := expanded.Lo(), expanded.Hi()
	candidates := []r2.Point{
		{X: lo.X, Y: pt.Y},
		{X: hi.X, Y: pt.Y},
		{X: pt.X, Y: lo.Y},
		{X: pt.X, Y: hi.Y},
	}
	best := candidates[0]
	bestDist := math.Inf(1)
	for _, candidate := range candidates {
		if d := candidate.Sub(pt).Norm(); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

// Config implements Shape.
func (r *Rect) Config() ShapeConfig {
	lo, hi := r.bounds.Lo(), r.bounds.Hi()
	return ShapeConfig{Type: RectType, X: lo.X, Y: lo.Y, X2: hi.X, Y2: hi.Y}
}

// ShapeType names a Shape implementation in configs and on the wire.
type ShapeType string

// Known shape types.
const (
	CircleType = ShapeType("circle")
	RectType   = ShapeType("rect")
)

// ShapeConfig is the serializable form of a Shape. Circles use X, Y and R; rectangles use the
// corners (X, Y) and (X2, Y2).
type ShapeConfig struct {
	Type ShapeType `json:"type"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
	R    float64   `json:"r,omitempty"`
	X2   float64   `json:"x2,omitempty"`
	Y2   float64   `json:"y2,omitempty"`
}

// ParseConfig converts a ShapeConfig back into a Shape.
func (config ShapeConfig) ParseConfig() (Shape, error) {
	switch config.Type {
	case CircleType:
		return NewCircle(r2.Point{X: config.X, Y: config.Y}, config.R)
	case RectType:
		return NewRect(r2.Point{X: config.X, Y: config.Y}, r2.Point{X: config.X2, Y: config.Y2})
	default:
		return nil, errors.Errorf("unknown shape type %q", config.Type)
	}
}
