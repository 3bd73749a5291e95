package toolpath

import (
	"math"
)

const (
	// LayerTolerance is how far a segment's Z may be from the display Z and still be visible.
	LayerTolerance = 0.1
)

// IsVisible reports whether a segment at z should be drawn when displayZ is selected; draw is
// true for extruding moves and the travel toggle for travel moves.
func IsVisible(z, displayZ float64, draw bool) bool {
	return draw && math.Abs(z-displayZ) <= LayerTolerance
}

// Classify returns the color for a move given its E value, if any.
func Classify(e float64, hasE bool) ColorTag {
	if !hasE {
		return Travel
	} else if e < 0.0 {
		return Retract
	}
	return Extrude
}
