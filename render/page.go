package render

import (
	"encoding/json"
	"fmt"
	"html"
	"io"

	"github.com/leftmike/toolpath"
)

// Page is an HTML Backend: it writes a standalone page which draws the visible segments on a
// canvas and lets the user zoom with the wheel and pan by dragging.
type Page struct {
	W             io.Writer
	Title         string
	Width, Height int
}

type pageConfig struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Zoom   float64 `json:"zoom"`
	TX     float64 `json:"tx"`
	TY     float64 `json:"ty"`
}

type pageSegment struct {
	Line          []float64 `json:"line,omitempty"`
	Arc           []float64 `json:"arc,omitempty"`
	Anticlockwise bool      `json:"anticlockwise,omitempty"`
	Color         string    `json:"color"`
}

// A canvas arc runs toward increasing angles unless anticlockwise is set, so clockwise arcs
// set it. The end angle is the start plus the sweep so that full turns are drawn.
func toPageSegment(seg toolpath.Segment) (pageSegment, error) {
	switch seg := seg.(type) {
	case toolpath.Line:
		return pageSegment{
			Line:  []float64{seg.From.X, seg.From.Y, seg.To.X, seg.To.Y},
			Color: CSSColor(seg.Color),
		}, nil
	case toolpath.Arc:
		return pageSegment{
			Arc: []float64{seg.Center.X, seg.Center.Y, seg.Radius, seg.StartAngle,
				seg.StartAngle + seg.Sweep()},
			Anticlockwise: seg.Clockwise,
			Color:         CSSColor(seg.Color),
		}, nil
	}
	return pageSegment{}, fmt.Errorf("render: unexpected segment: %T", seg)
}

func (p *Page) Render(segs []toolpath.Segment, view toolpath.ViewTransform) error {
	if p == nil || p.W == nil {
		return ErrNoSurface
	}
	err := view.Validate()
	if err != nil {
		return err
	}

	width, height := p.Width, p.Height
	if width <= 0 || height <= 0 {
		width, height = 600, 600
	}
	config, err := json.Marshal(pageConfig{
		Width:  width,
		Height: height,
		Zoom:   view.Zoom,
		TX:     view.Translate.X,
		TY:     view.Translate.Y,
	})
	if err != nil {
		return err
	}

	pageSegs := []pageSegment{}
	for _, seg := range segs {
		if !seg.IsVisible() {
			continue
		}
		ps, err := toPageSegment(seg)
		if err != nil {
			return err
		}
		pageSegs = append(pageSegs, ps)
	}
	segments, err := json.Marshal(pageSegs)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(p.W, pageHTML, html.EscapeString(p.Title), width, height, config,
		segments)
	return err
}

const pageHTML = `<!DOCTYPE html>
<html>
  <head>
    <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
    <title>%s</title>
    <style type="text/css">
      canvas { border: 1px solid black; cursor: move; }
    </style>
  </head>
  <body>
    <canvas class="toolpath-view" width="%d" height="%d"></canvas>
    <script type="text/javascript">
const config = %s

const segments = %s
    </script>
    <script type="text/javascript">
let view = document.querySelector(".toolpath-view")
let ctx = view.getContext("2d")

let zoom = config.zoom
let translate = {x: config.tx, y: config.ty}

function draw() {
  let w = view.width, h = view.height
  let ox = w / 2 + 0.5 + translate.x
  let oy = h / 2 - 0.5 + translate.y

  ctx.setTransform(1, 0, 0, 1, 0, 0)
  ctx.fillStyle = "white"
  ctx.fillRect(0, 0, w, h)

  // Axes
  ctx.setLineDash([3, 2])
  ctx.strokeStyle = "grey"
  ctx.lineWidth = 1
  ctx.beginPath()
  ctx.moveTo(0, oy)
  ctx.lineTo(w, oy)
  ctx.moveTo(ox, 0)
  ctx.lineTo(ox, h)
  ctx.stroke()
  ctx.setLineDash([])

  ctx.setTransform(zoom, 0, 0, -zoom, ox, oy)
  ctx.lineWidth = 1 / zoom
  for (let seg of segments) {
    ctx.strokeStyle = seg.color
    ctx.beginPath()
    if (seg.line !== undefined) {
      ctx.moveTo(seg.line[0], seg.line[1])
      ctx.lineTo(seg.line[2], seg.line[3])
    } else if (seg.arc !== undefined) {
      ctx.arc(seg.arc[0], seg.arc[1], seg.arc[2], seg.arc[3], seg.arc[4],
        seg.anticlockwise === true)
    }
    ctx.stroke()
  }
}

view.onwheel = function(event) {
  event.preventDefault()
  zoom *= Math.pow(1.1, event.deltaY / -40)
  draw()
}

let dragStart = null
let dragOrigin = null

view.onmousedown = function(event) {
  dragStart = {x: event.offsetX, y: event.offsetY}
  dragOrigin = {x: translate.x, y: translate.y}
}

view.onmousemove = function(event) {
  if (dragStart === null) {
    return
  }
  translate = {
    x: dragOrigin.x + event.offsetX - dragStart.x,
    y: dragOrigin.y + event.offsetY - dragStart.y,
  }
  draw()
}

view.onmouseup = function() {
  dragStart = null
}
view.onmouseleave = view.onmouseup

draw()
    </script>
  </body>
</html>
`
