package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"

	"github.com/leftmike/toolpath"
)

const (
	strokeWidth = 1.0 // pixels, at every zoom
)

// Canvas is a raster Backend. Image must have its origin at (0, 0); use NewCanvas. A Canvas
// is not safe for concurrent use.
type Canvas struct {
	Image *image.RGBA

	// MaxChord is the longest chord, in pixels, used when drawing arcs.
	MaxChord float64

	dasher *rasterx.Dasher
	target *image.RGBA
	size   image.Point
}

func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		Image:    image.NewRGBA(image.Rect(0, 0, width, height)),
		MaxChord: DefaultMaxChord,
	}
}

func (c *Canvas) Render(segs []toolpath.Segment, view toolpath.ViewTransform) error {
	if c == nil || c.Image == nil || c.Image.Bounds().Empty() {
		return ErrNoSurface
	}
	err := view.Validate()
	if err != nil {
		return err
	}

	bounds := c.Image.Bounds()
	xdraw.Draw(c.Image, bounds, image.White, image.Point{}, xdraw.Src)
	if c.dasher == nil || c.target != c.Image || c.size != bounds.Size() {
		scanner := rasterx.NewScannerGV(bounds.Dx(), bounds.Dy(), c.Image, bounds)
		c.dasher = rasterx.NewDasher(bounds.Dx(), bounds.Dy(), scanner)
		c.target = c.Image
		c.size = bounds.Size()
	}

	scr := Screen{Width: bounds.Dx(), Height: bounds.Dy(), View: view}

	// Axes
	ox, oy := scr.Origin()
	c.stroke(axisColor, axisDashes,
		rasterx.ToFixedP(0, oy), rasterx.ToFixedP(float64(bounds.Dx()), oy))
	c.stroke(axisColor, axisDashes,
		rasterx.ToFixedP(ox, 0), rasterx.ToFixedP(ox, float64(bounds.Dy())))

	maxChord := c.MaxChord
	if maxChord <= 0.0 {
		maxChord = DefaultMaxChord
	}
	for _, seg := range segs {
		if !seg.IsVisible() {
			continue
		}

		var pts []toolpath.Point
		switch seg := seg.(type) {
		case toolpath.Line:
			pts = []toolpath.Point{seg.From, seg.To}
		case toolpath.Arc:
			pts = FlattenArc(seg, maxChord/view.Zoom)
		default:
			return fmt.Errorf("render: unexpected segment: %T", seg)
		}

		path := make([]fixed.Point26_6, 0, len(pts))
		for _, pt := range pts {
			path = append(path, rasterx.ToFixedP(scr.Project(pt)))
		}
		c.stroke(Color(seg.Tag()), nil, path...)
	}
	return nil
}

func (c *Canvas) stroke(clr color.Color, dashes []float64, path ...fixed.Point26_6) {
	c.dasher.Clear()
	c.dasher.SetStroke(fixed.Int26_6(strokeWidth*64), 0, rasterx.RoundCap, rasterx.RoundCap,
		rasterx.RoundGap, rasterx.ArcClip, dashes, 0)
	c.dasher.SetColor(clr)

	c.dasher.Start(path[0])
	for _, p := range path[1:] {
		c.dasher.Line(p)
	}
	c.dasher.Stop(false)
	c.dasher.Draw()
}

// FormatFor returns the image format implied by the extension of path; png when there is
// no extension.
func FormatFor(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return "png"
	}
	return ext
}

// Encode writes the canvas as png, bmp, or tiff.
func (c *Canvas) Encode(w io.Writer, format string) error {
	if c == nil || c.Image == nil {
		return ErrNoSurface
	}

	switch strings.ToLower(format) {
	case "png":
		return png.Encode(w, c.Image)
	case "bmp":
		return bmp.Encode(w, c.Image)
	case "tif", "tiff":
		return tiff.Encode(w, c.Image, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("render: unsupported image format: %q", format)
	}
}

func (c *Canvas) WritePNG(w io.Writer) error {
	return c.Encode(w, "png")
}
