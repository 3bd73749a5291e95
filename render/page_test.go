package render

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leftmike/toolpath"
)

var segmentsRegexp = regexp.MustCompile(`const segments = (.*)\n`)

func renderPage(t *testing.T, segs []toolpath.Segment, view toolpath.ViewTransform) (string,
	[]pageSegment) {

	t.Helper()

	var sb strings.Builder
	p := Page{W: &sb, Title: "<part>.gcode"}
	require.NoError(t, p.Render(segs, view))

	m := segmentsRegexp.FindStringSubmatch(sb.String())
	require.Len(t, m, 2)
	var pageSegs []pageSegment
	require.NoError(t, json.Unmarshal([]byte(m[1]), &pageSegs))
	return sb.String(), pageSegs
}

func TestPage(t *testing.T) {
	segs := []toolpath.Segment{
		toolpath.Line{
			From:    toolpath.Point{X: 0, Y: 0},
			To:      toolpath.Point{X: 10, Y: 5},
			Visible: true,
			Color:   toolpath.Extrude,
		},
		toolpath.Line{
			From:  toolpath.Point{X: 10, Y: 5},
			To:    toolpath.Point{X: 0, Y: 0},
			Color: toolpath.Travel,
		},
		toolpath.Arc{
			Center:     toolpath.Point{X: 5, Y: 0},
			Radius:     5,
			StartAngle: math.Pi,
			EndAngle:   math.Pi / 2,
			Clockwise:  true,
			Visible:    true,
			Color:      toolpath.Retract,
		},
		toolpath.Arc{
			Radius:     2,
			StartAngle: 1,
			EndAngle:   1,
			Visible:    true,
			Color:      toolpath.Travel,
		},
	}

	s, pageSegs := renderPage(t, segs, toolpath.ViewTransform{
		Zoom:      2.5,
		Translate: toolpath.Point{X: 10, Y: -20},
	})
	assert.Contains(t, s, "<title>&lt;part&gt;.gcode</title>")
	assert.Contains(t, s, `width="600" height="600"`)
	assert.Contains(t, s, `"zoom":2.5,"tx":10,"ty":-20`)

	require.Len(t, pageSegs, 3)
	assert.Equal(t, pageSegment{Line: []float64{0, 0, 10, 5}, Color: "black"}, pageSegs[0])

	assert.Equal(t, "red", pageSegs[1].Color)
	assert.True(t, pageSegs[1].Anticlockwise)
	require.Len(t, pageSegs[1].Arc, 5)
	assert.InDelta(t, math.Pi, pageSegs[1].Arc[3], epsilon)
	assert.InDelta(t, math.Pi/2, pageSegs[1].Arc[4], epsilon)

	assert.Equal(t, "green", pageSegs[2].Color)
	assert.False(t, pageSegs[2].Anticlockwise)
	assert.InDelta(t, 1+2*math.Pi, pageSegs[2].Arc[4], epsilon)
}

func TestPageEmpty(t *testing.T) {
	_, pageSegs := renderPage(t, nil, toolpath.DefaultView())
	assert.Empty(t, pageSegs)
}

func TestPageErrors(t *testing.T) {
	var p *Page
	assert.ErrorIs(t, p.Render(nil, toolpath.DefaultView()), ErrNoSurface)
	p = &Page{}
	assert.ErrorIs(t, p.Render(nil, toolpath.DefaultView()), ErrNoSurface)

	var sb strings.Builder
	p = &Page{W: &sb}
	assert.Error(t, p.Render(nil, toolpath.ViewTransform{Zoom: -1}))
	assert.Empty(t, sb.String())
}
