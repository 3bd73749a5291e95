package toolpath

import (
	"errors"
	"fmt"
	"math"
)

const (
	// arcTolerance is how far the chord may exceed the diameter and still be treated as a
	// half circle.
	arcTolerance = 1e-9
)

var (
	ErrInsufficientArcData = errors.New("insufficient arc data")
	ErrDegenerateArc       = errors.New("degenerate arc")
)

type ArcGeometry struct {
	Center Point
	Radius float64
}

func hypot(pt1, pt2 Point) float64 {
	return math.Hypot(pt1.X-pt2.X, pt1.Y-pt2.Y)
}

func finite(fs ...float64) bool {
	for _, f := range fs {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// ResolveArc finds the center and radius of an arc from start to end. With an offset, the
// center is start + offset. Otherwise, with a radius, the center is on the perpendicular
// bisector of the chord, always on the left of start -> end; the direction of travel is not
// considered when choosing between the two possible centers.
func ResolveArc(start, end Point, offset *Point, radius *float64) (ArcGeometry, error) {
	if offset != nil {
		center := Point{start.X + offset.X, start.Y + offset.Y}
		r := hypot(center, start)
		if !finite(center.X, center.Y, r) {
			return ArcGeometry{}, fmt.Errorf("%w: center %s", ErrDegenerateArc, center)
		}
		return ArcGeometry{Center: center, Radius: r}, nil
	} else if radius != nil {
		return radiusCenter(start, end, *radius)
	}

	return ArcGeometry{}, fmt.Errorf("%w: expected center offset or radius", ErrInsufficientArcData)
}

func radiusCenter(start, end Point, radius float64) (ArcGeometry, error) {
	r := math.Abs(radius)
	q := hypot(start, end)
	if q == 0.0 {
		return ArcGeometry{}, fmt.Errorf("%w: endpoint same as start with radius",
			ErrDegenerateArc)
	}
	if r == 0.0 || !finite(r, q) {
		return ArcGeometry{}, fmt.Errorf("%w: radius %s", ErrDegenerateArc, formatNumber(radius))
	}

	half := q / 2
	if half-r > arcTolerance {
		return ArcGeometry{}, fmt.Errorf("%w: radius %s too small for chord %s",
			ErrDegenerateArc, formatNumber(radius), formatNumber(q))
	}
	h2 := r*r - half*half
	if h2 < 0.0 {
		h2 = 0.0
	}
	h := math.Sqrt(h2)

	mid := Point{(start.X + end.X) / 2, (start.Y + end.Y) / 2}
	center := Point{
		X: mid.X + h*(start.Y-end.Y)/q,
		Y: mid.Y + h*(end.X-start.X)/q,
	}
	if !finite(center.X, center.Y) {
		return ArcGeometry{}, fmt.Errorf("%w: center %s", ErrDegenerateArc, center)
	}
	return ArcGeometry{Center: center, Radius: r}, nil
}

func angleTo(center, pt Point) float64 {
	return math.Atan2(pt.Y-center.Y, pt.X-center.X)
}
