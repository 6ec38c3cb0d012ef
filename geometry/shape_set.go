package geometry

import (
	"encoding/json"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ShapeSet is an unordered collection of obstacles. The zero value is an empty set. Adding to a
// copy never affects the set it was copied from.
type ShapeSet struct {
	shapes []Shape
}

// NewShapeSet returns a set holding `shapes`.
func NewShapeSet(shapes ...Shape) ShapeSet {
	var set ShapeSet
	set.Add(shapes...)
	return set
}

// Add inserts shapes into the set.
func (s *ShapeSet) Add(shapes ...Shape) {
	// full slice expression so appends never write into a backing array shared with a copy
	s.shapes = append(s.shapes[:len(s.shapes):len(s.shapes)], shapes...)
}

// AddSet inserts every shape of `other`.
func (s *ShapeSet) AddSet(other ShapeSet) {
	s.Add(other.shapes...)
}

// Shapes returns a copy of the contained shapes.
func (s ShapeSet) Shapes() []Shape {
	out := make([]Shape, len(s.shapes))
	copy(out, s.shapes)
	return out
}

// Len is the number of shapes.
func (s ShapeSet) Len() int {
	return len(s.shapes)
}

// Clone returns an independent copy.
func (s ShapeSet) Clone() ShapeSet {
	return ShapeSet{shapes: s.Shapes()}
}

// Hit reports whether any shape contains `pt`.
func (s ShapeSet) Hit(pt r2.Point) bool {
	return len(s.HitShapes(pt)) > 0
}

// HitShapes returns the shapes that contain `pt`.
func (s ShapeSet) HitShapes(pt r2.Point) []Shape {
	var hits []Shape
	for _, shape := range s.shapes {
		if shape.Contains(pt) {
			hits = append(hits, shape)
		}
	}
	return hits
}

// MarshalJSON encodes the set as a list of ShapeConfig.
func (s ShapeSet) MarshalJSON() ([]byte, error) {
	configs := make([]ShapeConfig, 0, len(s.shapes))
	for _, shape := range s.shapes {
		configs = append(configs, shape.Config())
	}
	return json.Marshal(configs)
}

// UnmarshalJSON decodes a list of ShapeConfig.
func (s *ShapeSet) UnmarshalJSON(data []byte) error {
	var configs []ShapeConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return err
	}
	shapes := make([]Shape, 0, len(configs))
	for i, config := range configs {
		shape, err := config.ParseConfig()
		if err != nil {
			return errors.Wrapf(err, "shape %d", i)
		}
		shapes = append(shapes, shape)
	}
	s.shapes = shapes
	return nil
}
