package codec

import (
	"io"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/render"
	"nodecanvas/internal/render/raster"
	"nodecanvas/internal/surface"
)

// PNGCodec exports a fragment as an image of how the surface draws it.
type PNGCodec struct {
	Theme   render.Theme
	Sizing  domain.Sizing
	Router  domain.Router
	Options raster.Options
}

// NewPNGCodec creates a PNG exporter with the default look.
func NewPNGCodec() *PNGCodec {
	return &PNGCodec{
		Theme:   render.DefaultPalette(),
		Sizing:  domain.DefaultSizing(),
		Router:  domain.StraightRouter{},
		Options: raster.DefaultOptions(),
	}
}

// Format returns the codec format identifier
func (c *PNGCodec) Format() string {
	return "png"
}

// Export lays the fragment out on a scratch surface and encodes one frame.
func (c *PNGCodec) Export(fragment *domain.GraphFragment, w io.Writer) error {
	s := surface.New(surface.WithSizing(c.Sizing), surface.WithRouter(c.Router))
	if err := s.Load(fragment); err != nil {
		return err
	}
	return raster.Encode(w, s.Render(c.Theme), c.Options)
}
