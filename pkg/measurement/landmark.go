// Package measurement converts face landmarks and a known physical reference width into
// calibrated eyewear fitting measurements.
package measurement

import (
	"fmt"
	"math"
)

// Landmark is one detector point. X and Y are normalised to the frame width and height,
// Z is the detector's relative depth.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (l Landmark) Triple() [3]float64 {
	return [3]float64{l.X, l.Y, l.Z}
}

// FromTriples builds a landmark sequence from [x, y, z] triples, preserving order.
func FromTriples(points [][3]float64) []Landmark {
	landmarks := make([]Landmark, len(points))
	for i, p := range points {
		landmarks[i] = Landmark{X: p[0], Y: p[1], Z: p[2]}
	}
	return landmarks
}

// FromPoints builds a landmark sequence from decoded JSON points. Every point must carry
// exactly x, y and z; anything else is a MalformedLandmarkSet rather than a guessed depth.
func FromPoints(points [][]float64) ([]Landmark, error) {
	landmarks := make([]Landmark, len(points))
	for i, p := range points {
		if len(p) != 3 {
			return nil, &Error{
				Kind:   ErrMalformedLandmarkSet,
				Field:  "landmarks",
				Index:  i,
				Len:    len(points),
				Reason: fmt.Sprintf("point has %d coordinates, want 3", len(p)),
			}
		}
		landmarks[i] = Landmark{X: p[0], Y: p[1], Z: p[2]}
	}
	return landmarks, nil
}

// Export returns the sequence as ordered [x, y, z] triples for 3D rendering.
func Export(landmarks []Landmark) [][3]float64 {
	points := make([][3]float64, len(landmarks))
	for i, l := range landmarks {
		points[i] = l.Triple()
	}
	return points
}

// planarDistance is the pixel distance between a and b in the image plane. Each axis is
// de-normalised on its own before the Euclidean norm; depth does not contribute.
func planarDistance(a, b Landmark, widthPx, heightPx float64) float64 {
	return math.Hypot((a.X-b.X)*widthPx, (a.Y-b.Y)*heightPx)
}
