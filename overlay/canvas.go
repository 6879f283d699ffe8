package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas is a raster surface that executes Render output.
//
// A Canvas is not safe for concurrent use; the session controller serialises
// access to it.
type Canvas struct {
	img  *image.RGBA
	face font.Face
	src  image.Image

	scaled     *image.NRGBA
	scaledSize image.Point
}

// NewCanvas allocates a w x h transparent surface. Sides below 1 become 1.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{
		img:  image.NewRGBA(image.Rect(0, 0, max(1, w), max(1, h))),
		face: basicfont.Face7x13,
	}
}

// Size returns the surface dimensions.
func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Resize reallocates the surface when the size changes.
func (c *Canvas) Resize(w, h int) {
	w, h = max(1, w), max(1, h)
	if cw, ch := c.Size(); cw == w && ch == h {
		return
	}
	c.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

// SetSource sets the background image drawn by OpImage.
func (c *Canvas) SetSource(src image.Image) {
	c.src = src
	c.scaled = nil
	c.scaledSize = image.Point{}
}

// Source returns the current background image, or nil.
func (c *Canvas) Source() image.Image { return c.src }

// MeasureText returns the advance width of s in the label font.
func (c *Canvas) MeasureText(s string) float64 {
	return float64(font.MeasureString(c.face, s)) / 64
}

// Execute runs cmds in order. A nil list leaves the surface untouched.
func (c *Canvas) Execute(cmds []Command) {
	for _, cmd := range cmds {
		switch cmd.Op {
		case OpClear:
			draw.Draw(c.img, c.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case OpImage:
			c.drawImage(cmd)
		case OpStrokeRect:
			c.strokeRect(cmd)
		case OpFillRect:
			c.fill(cmd.X, cmd.Y, cmd.X+cmd.W, cmd.Y+cmd.H, cmd.Color)
		case OpText:
			c.text(cmd)
		}
	}
}

// Image returns the backing surface. Callers must not keep it across Execute.
func (c *Canvas) Image() *image.RGBA { return c.img }

// PNG encodes the current surface.
func (c *Canvas) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, c.img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Canvas) drawImage(cmd Command) {
	if c.src == nil {
		return
	}
	x0, y0 := roundInt(cmd.X), roundInt(cmd.Y)
	w, h := max(1, roundInt(cmd.W)), max(1, roundInt(cmd.H))
	if c.scaled == nil || c.scaledSize != (image.Point{X: w, Y: h}) {
		c.scaled = imaging.Resize(c.src, w, h, imaging.Linear)
		c.scaledSize = image.Point{X: w, Y: h}
	}
	draw.Draw(c.img, image.Rect(x0, y0, x0+w, y0+h), c.scaled, image.Point{}, draw.Over)
}

// strokeRect draws a border of LineWidth centred on the rectangle outline.
func (c *Canvas) strokeRect(cmd Command) {
	half := cmd.LineWidth / 2
	ox0, oy0 := cmd.X-half, cmd.Y-half
	ox1, oy1 := cmd.X+cmd.W+half, cmd.Y+cmd.H+half
	ix0, iy0 := cmd.X+half, cmd.Y+half
	ix1, iy1 := cmd.X+cmd.W-half, cmd.Y+cmd.H-half
	if ix1 <= ix0 || iy1 <= iy0 {
		c.fill(ox0, oy0, ox1, oy1, cmd.Color)
		return
	}
	c.fill(ox0, oy0, ox1, iy0, cmd.Color)
	c.fill(ox0, iy1, ox1, oy1, cmd.Color)
	c.fill(ox0, iy0, ix0, iy1, cmd.Color)
	c.fill(ix1, iy0, ox1, iy1, cmd.Color)
}

func (c *Canvas) fill(x0, y0, x1, y1 float64, col color.NRGBA) {
	r := image.Rect(roundInt(x0), roundInt(y0), roundInt(x1), roundInt(y1))
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *Canvas) text(cmd Command) {
	ascent := c.face.Metrics().Ascent.Ceil()
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(cmd.Color),
		Face: c.face,
		Dot:  fixed.P(roundInt(cmd.X), roundInt(cmd.Y)+ascent),
	}
	d.DrawString(cmd.Text)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
