package overlay

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Style holds the colours used for boxes and labels.
type Style struct {
	Stroke       color.NRGBA
	LabelFill    color.NRGBA
	LabelText    color.NRGBA
	ColorByClass bool
}

// DefaultStyle is the cyan box with a translucent black label.
func DefaultStyle() Style {
	return Style{
		Stroke:    mustColor("#6ee7ff", 0.95),
		LabelFill: mustColor("#000000", 0.55),
		LabelText: mustColor("#eaf0ff", 0.95),
	}
}

// ParseColor reads a "#rrggbb" hex colour and applies alpha in [0,1].
func ParseColor(hex string, alpha float64) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alphaByte(alpha)}, nil
}

func mustColor(hex string, alpha float64) color.NRGBA {
	c, err := ParseColor(hex, alpha)
	if err != nil {
		panic(err)
	}
	return c
}

func alphaByte(a float64) uint8 {
	a = math.Max(0, math.Min(1, a))
	return uint8(math.Round(a * 255))
}

// StrokeFor returns the box colour for a class. With ColorByClass each class
// id gets its own hue, spread by the golden angle.
func (s Style) StrokeFor(classID int) color.NRGBA {
	if !s.ColorByClass {
		return s.Stroke
	}
	hue := math.Mod(float64(classID)*137.508, 360)
	if hue < 0 {
		hue += 360
	}
	r, g, b := colorful.Hsv(hue, 0.55, 1).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: s.Stroke.A}
}
