// Package render draws interpreted segments onto a surface.
package render

import (
	"errors"
	"image/color"
	"math"

	"github.com/leftmike/toolpath"
)

var (
	ErrNoSurface = errors.New("no drawing surface")
)

// Backend draws one complete pass: the surface is cleared, then the visible segments are
// stroked in order.
type Backend interface {
	Render(segs []toolpath.Segment, view toolpath.ViewTransform) error
}

const (
	// DefaultMaxChord is the longest chord, in screen pixels, used to approximate an arc.
	DefaultMaxChord = 2.0

	maxChordAngle = math.Pi / 16
)

var (
	travelColor  = color.RGBA{0x00, 0x80, 0x00, 0xFF}
	extrudeColor = color.RGBA{0x00, 0x00, 0x00, 0xFF}
	retractColor = color.RGBA{0xFF, 0x00, 0x00, 0xFF}
	axisColor    = color.RGBA{0x80, 0x80, 0x80, 0xFF}

	axisDashes = []float64{3, 2}
)

// Color returns the stroke color for ct.
func Color(ct toolpath.ColorTag) color.RGBA {
	switch ct {
	case toolpath.Extrude:
		return extrudeColor
	case toolpath.Retract:
		return retractColor
	default:
		return travelColor
	}
}

// CSSColor is the name of the color for ct in a web page.
func CSSColor(ct toolpath.ColorTag) string {
	switch ct {
	case toolpath.Extrude:
		return "black"
	case toolpath.Retract:
		return "red"
	default:
		return "green"
	}
}

// Screen maps model coordinates onto a Width by Height viewport. The model origin is at the
// center of the viewport, moved by the view translation, with +Y up.
type Screen struct {
	Width, Height int
	View          toolpath.ViewTransform
}

func (s Screen) Project(pt toolpath.Point) (float64, float64) {
	return float64(s.Width)/2 + 0.5 + s.View.Translate.X + s.View.Zoom*pt.X,
		float64(s.Height)/2 - 0.5 + s.View.Translate.Y - s.View.Zoom*pt.Y
}

// Origin is where the model origin lands on the screen.
func (s Screen) Origin() (float64, float64) {
	return s.Project(toolpath.Point{})
}

// FlattenArc approximates arc with chords no longer than maxChord (in model units) and no
// wider than pi/16 radians. The first point is the start of the arc and the last is the end.
func FlattenArc(arc toolpath.Arc, maxChord float64) []toolpath.Point {
	sweep := arc.Sweep()
	numSteps := math.Ceil(math.Abs(sweep) / maxChordAngle)
	if maxChord > 0.0 {
		numSteps = math.Max(numSteps, math.Ceil(math.Abs(sweep)*arc.Radius/maxChord))
	}
	if numSteps < 1.0 || math.IsNaN(numSteps) {
		numSteps = 1.0
	} else if numSteps > 1<<16 {
		numSteps = 1 << 16
	}
	stepAngle := sweep / numSteps

	pts := make([]toolpath.Point, 0, int(numSteps)+1)
	for step := float64(0.0); step < numSteps; step += 1.0 {
		pts = append(pts, arc.PointAt(arc.StartAngle+step*stepAngle))
	}
	return append(pts, arc.PointAt(arc.StartAngle+sweep))
}
