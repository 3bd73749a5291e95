package toolpath

import (
	"fmt"
	"math"
)

type Point struct {
	X, Y float64
}

func (pt Point) String() string {
	return fmt.Sprintf("{x: %s, y: %s}", formatNumber(pt.X), formatNumber(pt.Y))
}

type Position struct {
	X, Y, Z float64
}

func (pos Position) String() string {
	return fmt.Sprintf("{x: %s, y: %s, z: %s}", formatNumber(pos.X), formatNumber(pos.Y),
		formatNumber(pos.Z))
}

// XY drops Z.
func (pos Position) XY() Point {
	return Point{pos.X, pos.Y}
}

var (
	zeroPosition = Position{0.0, 0.0, 0.0}
)

// ColorTag classifies a segment by what the tool is doing during the move.
type ColorTag byte

const (
	Travel  ColorTag = iota // no extrusion
	Extrude                 // E >= 0
	Retract                 // E < 0
)

func (ct ColorTag) String() string {
	switch ct {
	case Travel:
		return "travel"
	case Extrude:
		return "extrude"
	case Retract:
		return "retract"
	default:
		return fmt.Sprintf("color(%d)", byte(ct))
	}
}

// Segment is either a Line or an Arc. Segments which are not Visible still occupy their place
// in the output but must not be drawn.
type Segment interface {
	IsVisible() bool
	Tag() ColorTag
	segment()
}

type Line struct {
	From, To Point
	Z        float64
	Visible  bool
	Color    ColorTag
}

func (l Line) IsVisible() bool {
	return l.Visible
}

func (l Line) Tag() ColorTag {
	return l.Color
}

func (Line) segment() {}

func (l Line) String() string {
	return fmt.Sprintf("line %s -> %s z: %s %s", l.From, l.To, formatNumber(l.Z), l.Color)
}

// Arc is drawn along the circle around Center, from StartAngle to EndAngle (radians, measured
// counter-clockwise from the +X axis), in the direction given by Clockwise.
type Arc struct {
	Center     Point
	Radius     float64
	StartAngle float64
	EndAngle   float64
	Clockwise  bool
	Z          float64
	Visible    bool
	Color      ColorTag
}

func (a Arc) IsVisible() bool {
	return a.Visible
}

func (a Arc) Tag() ColorTag {
	return a.Color
}

func (Arc) segment() {}

// Sweep returns the signed angle travelled from StartAngle to EndAngle: negative for clockwise
// arcs. When the start and end angles are the same, the arc is a full turn.
func (a Arc) Sweep() float64 {
	sweep := a.EndAngle - a.StartAngle
	if a.Clockwise {
		for sweep >= 0.0 {
			sweep -= math.Pi * 2
		}
		for sweep < -math.Pi*2 {
			sweep += math.Pi * 2
		}
	} else {
		for sweep <= 0.0 {
			sweep += math.Pi * 2
		}
		for sweep > math.Pi*2 {
			sweep -= math.Pi * 2
		}
	}
	return sweep
}

// PointAt returns the point on the circle at angle.
func (a Arc) PointAt(angle float64) Point {
	return Point{
		X: a.Center.X + a.Radius*math.Cos(angle),
		Y: a.Center.Y + a.Radius*math.Sin(angle),
	}
}

func (a Arc) Start() Point {
	return a.PointAt(a.StartAngle)
}

func (a Arc) End() Point {
	return a.PointAt(a.EndAngle)
}

func (a Arc) String() string {
	dir := "ccw"
	if a.Clockwise {
		dir = "cw"
	}
	return fmt.Sprintf("arc %s center: %s r: %s %s..%s z: %s %s", dir, a.Center,
		formatNumber(a.Radius), formatNumber(a.StartAngle), formatNumber(a.EndAngle),
		formatNumber(a.Z), a.Color)
}
