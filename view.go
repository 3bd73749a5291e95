package toolpath

import (
	"errors"
	"fmt"
	"math"
)

const (
	zoomScaleFactor = 1.1
	zoomClickDelta  = -40.0 // wheel delta of one click; negative deltas zoom in
)

// ViewTransform is how the model is placed in the viewport: scaled by Zoom around the center
// of the viewport, then moved by Translate (in viewport pixels, +Y down). It is only used when
// drawing; segment geometry is always in model coordinates.
type ViewTransform struct {
	Zoom      float64
	Translate Point
}

func DefaultView() ViewTransform {
	return ViewTransform{Zoom: 1.0}
}

func (vt ViewTransform) Validate() error {
	if math.IsNaN(vt.Zoom) || math.IsInf(vt.Zoom, 0) || vt.Zoom <= 0.0 {
		return fmt.Errorf("zoom must be positive: %s", formatNumber(vt.Zoom))
	}
	if !finite(vt.Translate.X, vt.Translate.Y) {
		return errors.New("translate must be finite")
	}
	return nil
}

// Zoomed returns the view after scrolling the wheel by delta.
func (vt ViewTransform) Zoomed(delta float64) ViewTransform {
	vt.Zoom *= math.Pow(zoomScaleFactor, delta/zoomClickDelta)
	return vt
}

// Panned returns the view after dragging from start to current, where origin is the
// translation when the drag started.
func (vt ViewTransform) Panned(start, current, origin Point) ViewTransform {
	vt.Translate = Point{
		X: origin.X + current.X - start.X,
		Y: origin.Y + current.Y - start.Y,
	}
	return vt
}

func (vt ViewTransform) String() string {
	return fmt.Sprintf("{zoom: %s, translate: %s}", formatNumber(vt.Zoom), vt.Translate)
}
