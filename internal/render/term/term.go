// Package term draws a render.Frame onto a grid of terminal cells.
package term

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"nodecanvas/internal/geometry"
	"nodecanvas/internal/render"
)

// CellSize is the pixel size of one terminal cell in container space.
type CellSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// DefaultCellSize approximates a monospace cell at the default label size.
func DefaultCellSize() CellSize {
	return CellSize{Width: 8, Height: 16}
}

// CellOf maps a container-space point to a cell.
func (c CellSize) CellOf(p geometry.Point) (col, row int) {
	return int(math.Floor(p.X / c.Width)), int(math.Floor(p.Y / c.Height))
}

// Center maps a cell to the container-space point at its center.
func (c CellSize) Center(col, row int) geometry.Point {
	return geometry.Pt((float64(col)+0.5)*c.Width, (float64(row)+0.5)*c.Height)
}

type cell struct {
	r      rune
	fg, bg render.Color
}

// Canvas is a fixed-size cell grid.
type Canvas struct {
	cols, rows int
	size       CellSize
	cells      []cell
}

// NewCanvas creates a grid of cols x rows cells.
func NewCanvas(cols, rows int, size CellSize) *Canvas {
	cols, rows = max(cols, 0), max(rows, 0)
	return &Canvas{
		cols:  cols,
		rows:  rows,
		size:  size,
		cells: make([]cell, cols*rows),
	}
}

func (c *Canvas) set(col, row int, r rune, fg render.Color) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	cl := &c.cells[row*c.cols+col]
	cl.r = r
	cl.fg = fg
}

func (c *Canvas) fill(col, row int, bg render.Color) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	c.cells[row*c.cols+col].bg = bg
}

// Draw paints every command of the frame.
func (c *Canvas) Draw(frame render.Frame) {
	for i := range c.cells {
		c.cells[i] = cell{r: ' ', bg: frame.Background}
	}
	for _, cmd := range frame.Commands {
		switch cmd.Kind {
		case render.KindEdge:
			c.drawPolyline(cmd)
		case render.KindNode:
			c.drawBox(cmd)
		case render.KindPort:
			c.drawPort(cmd)
		case render.KindLabel:
			c.drawLabel(cmd)
		}
	}
}

func (c *Canvas) drawBox(cmd render.Command) {
	x0, y0 := c.size.CellOf(cmd.Rect.Min)
	x1, y1 := c.size.CellOf(cmd.Rect.Max)
	x1, y1 = max(x1-1, x0+1), max(y1-1, y0+1)

	border := lipgloss.RoundedBorder()
	if cmd.Selected {
		border = lipgloss.ThickBorder()
	}
	first := func(s string) rune { return []rune(s)[0] }

	for row := y0; row <= y1; row++ {
		for col := x0; col <= x1; col++ {
			c.fill(col, row, cmd.Fill)
			c.set(col, row, ' ', cmd.Stroke)
		}
	}
	for col := x0 + 1; col < x1; col++ {
		c.set(col, y0, first(border.Top), cmd.Stroke)
		c.set(col, y1, first(border.Bottom), cmd.Stroke)
	}
	for row := y0 + 1; row < y1; row++ {
		c.set(x0, row, first(border.Left), cmd.Stroke)
		c.set(x1, row, first(border.Right), cmd.Stroke)
	}
	c.set(x0, y0, first(border.TopLeft), cmd.Stroke)
	c.set(x1, y0, first(border.TopRight), cmd.Stroke)
	c.set(x0, y1, first(border.BottomLeft), cmd.Stroke)
	c.set(x1, y1, first(border.BottomRight), cmd.Stroke)
}

func (c *Canvas) drawPort(cmd render.Command) {
	col, row := c.size.CellOf(geometry.Pt(
		(cmd.Rect.Min.X+cmd.Rect.Max.X)/2,
		(cmd.Rect.Min.Y+cmd.Rect.Max.Y)/2,
	))
	c.set(col, row, '■', cmd.Fill)
}

func (c *Canvas) drawLabel(cmd render.Command) {
	if len(cmd.Points) == 0 {
		return
	}
	x0, y0 := c.size.CellOf(cmd.Rect.Min)
	x1, y1 := c.size.CellOf(cmd.Rect.Max)
	avail := max(x1-x0-3, 1)

	// short boxes have no interior row; the label then sits in the top border
	text := runewidth.Truncate(cmd.Text, avail, "…")
	col, _ := c.size.CellOf(cmd.Points[0])
	col -= runewidth.StringWidth(text) / 2
	row := y0 + (max(y1-1, y0+1)-y0)/2
	for _, r := range text {
		c.set(col, row, r, cmd.Fill)
		col += max(runewidth.RuneWidth(r), 1)
	}
}

func (c *Canvas) drawPolyline(cmd render.Command) {
	for i := 1; i < len(cmd.Points); i++ {
		c.line(cmd.Points[i-1], cmd.Points[i], cmd.Stroke)
	}
}

// line walks the segment with Bresenham's algorithm in cell space.
func (c *Canvas) line(a, b geometry.Point, fg render.Color) {
	x0, y0 := c.size.CellOf(a)
	x1, y1 := c.size.CellOf(b)

	glyph := '·'
	switch {
	case y0 == y1:
		glyph = '─'
	case x0 == x1:
		glyph = '│'
	}

	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		c.set(x0, y0, glyph, fg)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// Rune returns the glyph at a cell, for tests and hit inspection.
func (c *Canvas) Rune(col, row int) rune {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return 0
	}
	return c.cells[row*c.cols+col].r
}

// Plain returns the grid without styling.
func (c *Canvas) Plain() string {
	var sb strings.Builder
	for row := 0; row < c.rows; row++ {
		for col := 0; col < c.cols; col++ {
			sb.WriteRune(c.cells[row*c.cols+col].r)
		}
		if row < c.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// String renders the grid with lipgloss styles. Runs of cells with the same
// colors share one style.
func (c *Canvas) String() string {
	var sb strings.Builder
	for row := 0; row < c.rows; row++ {
		start := 0
		for col := 1; col <= c.cols; col++ {
			if col < c.cols && sameStyle(c.cells[row*c.cols+col], c.cells[row*c.cols+start]) {
				continue
			}
			run := c.cells[row*c.cols+start : row*c.cols+col]
			sb.WriteString(style(run[0]).Render(runes(run)))
			start = col
		}
		if row < c.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Render draws a frame into a new canvas and returns the styled string.
func Render(frame render.Frame, cols, rows int, size CellSize) string {
	c := NewCanvas(cols, rows, size)
	c.Draw(frame)
	return c.String()
}

func style(cl cell) lipgloss.Style {
	s := lipgloss.NewStyle()
	if hex := cl.fg.Hex(); hex != "" {
		s = s.Foreground(lipgloss.Color(hex))
	}
	if hex := cl.bg.Hex(); hex != "" {
		s = s.Background(lipgloss.Color(hex))
	}
	return s
}

func sameStyle(a, b cell) bool {
	return a.fg == b.fg && a.bg == b.bg
}

func runes(cells []cell) string {
	rs := make([]rune, len(cells))
	for i, cl := range cells {
		rs[i] = cl.r
	}
	return string(rs)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
