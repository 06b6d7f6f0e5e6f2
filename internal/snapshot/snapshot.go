// Package snapshot rasterizes a computed grid layout into a PNG image.
package snapshot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/habitgrid/internal/grid"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MaxScale bounds the output scale so a full-year grid stays a sane size.
const MaxScale = 4

// Palette holds the colors used for non-habit elements.
type Palette struct {
	Background color.Color
	Empty      color.Color
	Future     color.Color
	Text       color.Color
	Today      color.Color
}

// LightPalette matches the default light theme.
var LightPalette = Palette{
	Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	Empty:      color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff},
	Future:     color.RGBA{R: 0xf3, G: 0xf4, B: 0xf6, A: 0xff},
	Text:       color.RGBA{R: 0x37, G: 0x41, B: 0x51, A: 0xff},
	Today:      color.RGBA{R: 0x4f, G: 0x46, B: 0xe5, A: 0xff},
}

// DarkPalette matches the dark theme.
var DarkPalette = Palette{
	Background: color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff},
	Empty:      color.RGBA{R: 0x37, G: 0x41, B: 0x51, A: 0xff},
	Future:     color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff},
	Text:       color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff},
	Today:      color.RGBA{R: 0x81, G: 0x8c, B: 0xf8, A: 0xff},
}

// Options controls rendering.
type Options struct {
	Palette Palette
	// Scale resizes the final image; values <= 0 mean 1.
	Scale float64
	// Accent overrides Palette.Today when it parses as #rrggbb.
	Accent string
}

// ParseHexColor parses #rrggbb.
func ParseHexColor(raw string) (color.RGBA, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(trimmed) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", raw)
	}
	value, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", raw, err)
	}
	return color.RGBA{R: uint8(value >> 16), G: uint8(value >> 8), B: uint8(value), A: 0xff}, nil
}

// Render draws layout at its natural size and then applies opts.Scale.
// An empty layout yields an error; callers show an empty state instead.
func Render(layout grid.Layout, opts Options) (*image.RGBA, error) {
	if layout.Empty() {
		return nil, fmt.Errorf("nothing to render")
	}
	palette := opts.Palette
	if palette.Background == nil {
		palette = LightPalette
	}
	if accent, err := ParseHexColor(opts.Accent); err == nil {
		palette.Today = accent
	}

	width := int(math.Ceil(layout.GridWidth))
	height := int(math.Ceil(layout.GridHeight))
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(palette.Background), image.Point{}, draw.Src)

	m := layout.Metrics
	size := int(math.Round(m.CellSize))
	for _, cell := range layout.Cells {
		fill := palette.Empty
		switch cell.State {
		case grid.CellFuture:
			fill = palette.Future
		case grid.CellFilled:
			if parsed, err := ParseHexColor(cell.Color); err == nil {
				fill = parsed
			}
		}
		x, y := int(math.Round(cell.X)), int(math.Round(cell.Y))
		fillRect(canvas, image.Rect(x, y, x+size, y+size), fill)
	}

	// Today marker: a thin bar above the column.
	todayX := int(math.Round(layout.TodayColumnX))
	markerTop := int(math.Round(m.Padding + m.HeaderHeight - 4))
	fillRect(canvas, image.Rect(todayX-1, markerTop, todayX+1, markerTop+3), palette.Today)

	drawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(palette.Text), Face: basicfont.Face7x13}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	for _, label := range layout.MonthLabels {
		drawText(drawer, label.Text, int(math.Round(label.X)), int(math.Round(m.Padding))+ascent)
	}
	for _, row := range layout.Rows {
		baseline := int(math.Round(row.Y+m.CellSize/2)) + ascent/2
		drawText(drawer, rowLabel(row, int(m.LabelWidth)/7-1), int(math.Round(m.Padding)), baseline)
	}

	scale := opts.Scale
	if scale <= 0 || scale == 1 {
		return canvas, nil
	}
	scale = math.Min(scale, MaxScale)
	scaledW := max(1, int(math.Round(float64(width)*scale)))
	scaledH := max(1, int(math.Round(float64(height)*scale)))
	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	interpolator := xdraw.Interpolator(xdraw.ApproxBiLinear)
	if scale > 1 {
		interpolator = xdraw.NearestNeighbor
	}
	interpolator.Scale(scaled, scaled.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)
	return scaled, nil
}

// WritePNG renders layout and encodes it as PNG.
func WritePNG(w io.Writer, layout grid.Layout, opts Options) error {
	img, err := Render(layout, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func fillRect(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func drawText(d *font.Drawer, text string, x, y int) {
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

// rowLabel returns the text drawn for a habit row. basicfont only has
// printable ASCII glyphs, so other names fall back to the 1-based row number.
func rowLabel(row grid.RowLabel, limit int) string {
	name := strings.TrimSpace(row.Name)
	if name == "" || !printableASCII(name) {
		return truncate(fmt.Sprintf("#%d", row.Row+1), limit)
	}
	return truncate(name, limit)
}

func printableASCII(text string) bool {
	for _, r := range text {
		if r < 0x20 || r > 0x7e {
			return false
		}
	}
	return true
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "~"
}
