package render

import (
	"encoding/json"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"nodecanvas/internal/errors"
)

// Theme supplies the colors a frame is drawn with. The surface never picks
// colors itself.
type Theme interface {
	Foreground() color.Color
	Border() color.Color
	Background() color.Color
	Accent() color.Color
}

// Port fills. These identify direction and do not follow the theme.
var (
	InputPortColor  = Color{R: 0x44, G: 0x88, B: 0xff, A: 0xff}
	OutputPortColor = Color{R: 0xff, G: 0x88, B: 0x44, A: 0xff}
)

// Color is an 8-bit RGBA value that encodes as "#rrggbb" in JSON.
type Color struct {
	R, G, B, A uint8
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

// ColorOf converts any color to a Color.
func ColorOf(c color.Color) Color {
	if c == nil {
		return Color{}
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B, A: n.A}
}

// Hex returns the color as "#rrggbb". Fully transparent colors return "".
func (c Color) Hex() string {
	if c.A == 0 {
		return ""
	}
	cf, _ := colorful.MakeColor(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
	return cf.Hex()
}

// MarshalJSON encodes the color as a hex string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// ParseColor parses "#rgb" or "#rrggbb".
func ParseColor(hex string) (Color, error) {
	cf, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, errors.Wrapf(err, "parse color %q", hex)
	}
	r, g, b := cf.RGB255()
	return Color{R: r, G: g, B: b, A: 0xff}, nil
}

// Palette is a fixed Theme.
type Palette struct {
	Fg     Color
	Line   Color
	Bg     Color
	Active Color
}

func (p Palette) Foreground() color.Color { return p.Fg }
func (p Palette) Border() color.Color     { return p.Line }
func (p Palette) Background() color.Color { return p.Bg }
func (p Palette) Accent() color.Color     { return p.Active }

// DefaultPalette is a dark theme.
func DefaultPalette() Palette {
	return Palette{
		Fg:     Color{R: 0xe6, G: 0xe6, B: 0xe6, A: 0xff},
		Line:   Color{R: 0x55, G: 0x5a, B: 0x64, A: 0xff},
		Bg:     Color{R: 0x2a, G: 0x2d, B: 0x34, A: 0xff},
		Active: Color{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff},
	}
}

// ParsePalette builds a palette from hex strings. Empty strings keep the
// default for that slot.
func ParsePalette(foreground, border, background, accent string) (Palette, error) {
	p := DefaultPalette()
	slots := []struct {
		hex string
		dst *Color
	}{
		{foreground, &p.Fg},
		{border, &p.Line},
		{background, &p.Bg},
		{accent, &p.Active},
	}
	for _, s := range slots {
		if s.hex == "" {
			continue
		}
		c, err := ParseColor(s.hex)
		if err != nil {
			return Palette{}, err
		}
		*s.dst = c
	}
	return p, nil
}

// Canvas is the color behind the nodes: the theme background darkened so node
// bodies stand out.
func Canvas(theme Theme) Color {
	bg, ok := colorful.MakeColor(theme.Background())
	if !ok {
		return Color{A: 0xff}
	}
	r, g, b := bg.BlendLab(colorful.Color{}, 0.35).Clamped().RGB255()
	return Color{R: r, G: g, B: b, A: 0xff}
}
