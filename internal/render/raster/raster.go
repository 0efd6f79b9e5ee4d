// Package raster draws a render.Frame to a PNG image.
package raster

import (
	"image"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"nodecanvas/internal/errors"
	"nodecanvas/internal/geometry"
	"nodecanvas/internal/render"
)

// Options controls the output image.
type Options struct {
	// Padding is added around the frame's content, in pixels.
	Padding float64
	// Width and Height fix the image size. Zero means fit the content.
	Width  int
	Height int
}

// DefaultOptions fits the content with a 20px margin.
func DefaultOptions() Options {
	return Options{Padding: 20}
}

var (
	parseOnce sync.Once
	regular   *truetype.Font
	parseErr  error
)

func labelFont() (*truetype.Font, error) {
	parseOnce.Do(func() {
		regular, parseErr = truetype.Parse(goregular.TTF)
	})
	return regular, parseErr
}

// Draw renders the frame into a new image.
func Draw(frame render.Frame, opts Options) (image.Image, error) {
	bounds := frame.Bounds()
	w, h := geometry.Size(bounds)
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = int(math.Ceil(w + 2*opts.Padding))
	}
	if height <= 0 {
		height = int(math.Ceil(h + 2*opts.Padding))
	}
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(frame.Background)
	dc.Clear()
	if len(frame.Commands) > 0 {
		dc.Translate(opts.Padding-bounds.Min.X, opts.Padding-bounds.Min.Y)
	}

	f, err := labelFont()
	if err != nil {
		return nil, errors.Wrap(err, "parse label font")
	}
	faces := make(map[float64]font.Face)
	faceFor := func(size float64) font.Face {
		face, ok := faces[size]
		if !ok {
			face = truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
			faces[size] = face
		}
		return face
	}

	for _, c := range frame.Commands {
		switch c.Kind {
		case render.KindEdge:
			drawPolyline(dc, c)
		case render.KindNode, render.KindPort:
			drawBox(dc, c)
		case render.KindLabel:
			if c.Text == "" || c.TextSize <= 0 {
				continue
			}
			dc.SetFontFace(faceFor(c.TextSize))
			dc.SetColor(c.Fill)
			dc.DrawStringAnchored(c.Text, c.Points[0].X, c.Points[0].Y, 0.5, 0.35)
		}
	}

	return dc.Image(), nil
}

// Encode writes the frame as PNG.
func Encode(w io.Writer, frame render.Frame, opts Options) error {
	img, err := Draw(frame, opts)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	if err := dc.EncodePNG(w); err != nil {
		return errors.Wrap(err, "encode png")
	}
	return nil
}

// SavePNG writes the frame to a PNG file.
func SavePNG(path string, frame render.Frame, opts Options) error {
	img, err := Draw(frame, opts)
	if err != nil {
		return err
	}
	if err := gg.SavePNG(path, img); err != nil {
		return errors.Wrapf(err, "save png %s", path)
	}
	return nil
}

func drawBox(dc *gg.Context, c render.Command) {
	w, h := geometry.Size(c.Rect)
	dc.DrawRoundedRectangle(c.Rect.Min.X, c.Rect.Min.Y, w, h, c.Radius)
	dc.SetColor(c.Fill)
	dc.FillPreserve()
	dc.SetColor(c.Stroke)
	dc.SetLineWidth(c.StrokeWidth)
	dc.Stroke()
}

func drawPolyline(dc *gg.Context, c render.Command) {
	if len(c.Points) < 2 {
		return
	}
	dc.NewSubPath()
	dc.MoveTo(c.Points[0].X, c.Points[0].Y)
	for _, p := range c.Points[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.SetColor(c.Stroke)
	dc.SetLineWidth(c.StrokeWidth)
	dc.Stroke()
}
