package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/leftmike/toolpath"
)

func isWhite(c color.RGBA) bool {
	return c.R == 0xFF && c.G == 0xFF && c.B == 0xFF
}

func renderLine(t *testing.T, tag toolpath.ColorTag, visible bool) *Canvas {
	t.Helper()

	c := NewCanvas(40, 40)
	err := c.Render([]toolpath.Segment{
		toolpath.Line{
			From:    toolpath.Point{X: 0, Y: 10},
			To:      toolpath.Point{X: 10, Y: 10},
			Visible: visible,
			Color:   tag,
		},
	}, toolpath.DefaultView())
	require.NoError(t, err)
	return c
}

func TestCanvasLines(t *testing.T) {
	// The model origin is at (20.5, 19.5), so y = 10 is the middle of row 9.
	c := renderLine(t, toolpath.Extrude, true)
	px := c.Image.RGBAAt(25, 9)
	assert.Less(t, px.R, uint8(0x40), "%v", px)
	assert.Less(t, px.G, uint8(0x40), "%v", px)
	assert.Less(t, px.B, uint8(0x40), "%v", px)
	assert.True(t, isWhite(c.Image.RGBAAt(25, 5)))
	assert.True(t, isWhite(c.Image.RGBAAt(35, 9)))

	c = renderLine(t, toolpath.Retract, true)
	px = c.Image.RGBAAt(25, 9)
	assert.Greater(t, px.R, uint8(0xC0), "%v", px)
	assert.Less(t, px.G, uint8(0x40), "%v", px)

	c = renderLine(t, toolpath.Travel, true)
	px = c.Image.RGBAAt(25, 9)
	assert.Greater(t, px.G, uint8(0x60), "%v", px)
	assert.Less(t, px.R, uint8(0x40), "%v", px)

	c = renderLine(t, toolpath.Extrude, false)
	assert.True(t, isWhite(c.Image.RGBAAt(25, 9)))
}

func TestCanvasSwapImage(t *testing.T) {
	c := renderLine(t, toolpath.Extrude, true)
	old := c.Image

	c.Image = image.NewRGBA(image.Rect(0, 0, 40, 40))
	err := c.Render([]toolpath.Segment{
		toolpath.Line{
			From:    toolpath.Point{X: 0, Y: -10},
			To:      toolpath.Point{X: 10, Y: -10},
			Visible: true,
			Color:   toolpath.Extrude,
		},
	}, toolpath.DefaultView())
	require.NoError(t, err)

	// y = -10 is the middle of row 29.
	px := c.Image.RGBAAt(25, 29)
	assert.Less(t, px.R, uint8(0x40), "%v", px)
	assert.True(t, isWhite(c.Image.RGBAAt(25, 9)))

	// The old image still has only the first drawing.
	assert.True(t, isWhite(old.RGBAAt(25, 29)))
	assert.False(t, isWhite(old.RGBAAt(25, 9)))
}

func TestCanvasAxes(t *testing.T) {
	c := NewCanvas(40, 40)
	require.NoError(t, c.Render(nil, toolpath.DefaultView()))

	// Vertical axis through column 20, horizontal axis through row 19.
	for _, pt := range []image.Point{{20, 1}, {1, 19}} {
		px := c.Image.RGBAAt(pt.X, pt.Y)
		assert.False(t, isWhite(px), "%v: %v", pt, px)
		assert.Equal(t, px.R, px.G, "%v: %v", pt, px)
		assert.Equal(t, px.G, px.B, "%v: %v", pt, px)
	}
	assert.True(t, isWhite(c.Image.RGBAAt(5, 5)))
	assert.True(t, isWhite(c.Image.RGBAAt(35, 35)))

	// Panning moves the axes.
	require.NoError(t, c.Render(nil, toolpath.ViewTransform{
		Zoom:      1,
		Translate: toolpath.Point{X: 10, Y: 10},
	}))
	assert.True(t, isWhite(c.Image.RGBAAt(20, 1)))
	assert.False(t, isWhite(c.Image.RGBAAt(30, 1)))
}

func TestCanvasArc(t *testing.T) {
	c := NewCanvas(40, 40)
	err := c.Render([]toolpath.Segment{
		toolpath.Arc{
			Radius:     10,
			StartAngle: 0,
			EndAngle:   0,
			Visible:    true,
			Color:      toolpath.Retract,
		},
	}, toolpath.DefaultView())
	require.NoError(t, err)

	// A full circle around the origin passes through (20, 9) and (10, 19).
	for _, pt := range []image.Point{{20, 9}, {10, 19}, {20, 29}, {30, 19}} {
		px := c.Image.RGBAAt(pt.X, pt.Y)
		assert.Greater(t, px.R, px.G, "%v: %v", pt, px)
	}
	assert.True(t, isWhite(c.Image.RGBAAt(25, 14)))
}

func TestCanvasErrors(t *testing.T) {
	var c *Canvas
	assert.ErrorIs(t, c.Render(nil, toolpath.DefaultView()), ErrNoSurface)
	c = &Canvas{}
	assert.ErrorIs(t, c.Render(nil, toolpath.DefaultView()), ErrNoSurface)
	assert.ErrorIs(t, c.WritePNG(&bytes.Buffer{}), ErrNoSurface)

	c = NewCanvas(10, 10)
	assert.Error(t, c.Render(nil, toolpath.ViewTransform{}))
	assert.Error(t, c.Encode(&bytes.Buffer{}, "gif"))
}

func TestCanvasEncode(t *testing.T) {
	c := NewCanvas(30, 20)
	require.NoError(t, c.Render(nil, toolpath.DefaultView()))

	var buf bytes.Buffer
	require.NoError(t, c.WritePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())

	buf.Reset()
	require.NoError(t, c.Encode(&buf, FormatFor("out.BMP")))
	img, err = bmp.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())

	buf.Reset()
	require.NoError(t, c.Encode(&buf, FormatFor("/tmp/out.tiff")))
	img, err = tiff.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())

	assert.Equal(t, "png", FormatFor("out"))
	assert.Equal(t, "png", FormatFor("out.png"))
}
