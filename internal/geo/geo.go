// Package geo provides trajectory geometry helpers for replay
// analytics, built on simplefeatures like the map contour code.
package geo

import (
	"errors"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/tomcat-viz/trialviz/internal/model"
)

// ErrTooShort is returned when a path has fewer than two points.
var ErrTooShort = errors.New("path must have at least 2 points")

// LineString builds a geom.LineString from a grid path.
func LineString(path []model.Position) (geom.LineString, error) {
	if len(path) < 2 {
		return geom.LineString{}, ErrTooShort
	}

	flatCoords := make([]float64, 0, len(path)*2)
	for _, p := range path {
		flatCoords = append(flatCoords, float64(p.X), float64(p.Y))
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// PathLength returns the total length of the path in grid units.
// Paths shorter than two points have length zero.
func PathLength(path []model.Position) float64 {
	ls, err := LineString(path)
	if err != nil {
		return 0
	}
	return ls.Length()
}

// Bounds returns the envelope covered by the path.
func Bounds(path []model.Position) geom.Envelope {
	var env geom.Envelope
	for _, p := range path {
		env = env.ExpandToIncludeXY(geom.XY{X: float64(p.X), Y: float64(p.Y)})
	}
	return env
}
