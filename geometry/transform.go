// Package geometry computes the letterbox transform between source-image
// pixels and a display surface.
package geometry

import (
	"errors"
	"math"

	iface "DetOverlay/interface"
)

// ErrNotReady means the image or surface size is not known yet. Callers skip
// drawing and never show it to the user.
var ErrNotReady = errors.New("geometry: image or surface size not ready")

// Transform maps source pixels onto a surface with uniform "contain" scaling,
// centred on the non-constraining axis.
type Transform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
	DrawW   float64
	DrawH   float64
	SurfW   float64
	SurfH   float64
	ready   bool
}

// Rect is a rectangle on the surface, top-left corner plus size.
type Rect struct {
	X, Y, W, H float64
}

func positive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Fit computes the letterbox transform for an imgW x imgH image drawn into a
// dstW x dstH surface.
func Fit(imgW, imgH, dstW, dstH float64) (Transform, error) {
	if !positive(imgW) || !positive(imgH) || !positive(dstW) || !positive(dstH) {
		return Transform{}, ErrNotReady
	}
	scale := math.Min(dstW/imgW, dstH/imgH)
	drawW := imgW * scale
	drawH := imgH * scale
	return Transform{
		Scale:   scale,
		OffsetX: (dstW - drawW) / 2,
		OffsetY: (dstH - drawH) / 2,
		DrawW:   drawW,
		DrawH:   drawH,
		SurfW:   dstW,
		SurfH:   dstH,
		ready:   true,
	}, nil
}

// Ready reports whether t came from a successful Fit.
func (t Transform) Ready() bool { return t.ready }

// ToSurface maps a source pixel coordinate onto the surface.
func (t Transform) ToSurface(x, y float64) (float64, float64) {
	return t.OffsetX + x*t.Scale, t.OffsetY + y*t.Scale
}

// ToSource is the inverse of ToSurface.
func (t Transform) ToSource(sx, sy float64) (float64, float64) {
	return (sx - t.OffsetX) / t.Scale, (sy - t.OffsetY) / t.Scale
}

// MapBox maps both corners of b and returns the surface rectangle between them.
func (t Transform) MapBox(b iface.Box) Rect {
	sx1, sy1 := t.ToSurface(b.X1(), b.Y1())
	sx2, sy2 := t.ToSurface(b.X2(), b.Y2())
	return Rect{X: sx1, Y: sy1, W: sx2 - sx1, H: sy2 - sy1}
}

// Image returns where the background image lands on the surface.
func (t Transform) Image() Rect {
	return Rect{X: t.OffsetX, Y: t.OffsetY, W: t.DrawW, H: t.DrawH}
}

// SurfaceSize rounds a requested surface size and clamps each side to at least 1.
func SurfaceSize(w, h float64) (int, int) {
	return clampSide(w), clampSide(h)
}

func clampSide(v float64) int {
	if math.IsNaN(v) {
		return 1
	}
	r := int(math.Round(v))
	if r < 1 {
		return 1
	}
	return r
}
