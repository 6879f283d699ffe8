// Package overlay draws a detection overlay.
//
// Render is pure: it turns a transform, the detections and a threshold into
// a list of drawing commands. Canvas executes that list on an RGBA image.
// Every list starts with a clear, so a redraw never keeps earlier content.
package overlay

import (
	"image/color"

	"DetOverlay/geometry"
	iface "DetOverlay/interface"
	"DetOverlay/projection"
)

const (
	LineWidth   = 2
	LabelPad    = 4
	LabelHeight = 16
	TextInset   = 2
)

type Op int

const (
	OpClear Op = iota
	OpImage
	OpStrokeRect
	OpFillRect
	OpText
)

func (o Op) String() string {
	switch o {
	case OpClear:
		return "clear"
	case OpImage:
		return "image"
	case OpStrokeRect:
		return "stroke"
	case OpFillRect:
		return "fill"
	case OpText:
		return "text"
	}
	return "unknown"
}

// Command is one drawing step in surface coordinates.
type Command struct {
	Op        Op
	X, Y      float64
	W, H      float64
	LineWidth float64
	Color     color.NRGBA
	Text      string
}

// TextMeasurer reports the rendered width of a label.
type TextMeasurer interface {
	MeasureText(s string) float64
}

// Render returns the full command list for one frame. It returns nil when t is
// not ready, which callers treat as "draw nothing".
func Render(t geometry.Transform, detections []iface.Detection, threshold float64, style Style, m TextMeasurer) []Command {
	if !t.Ready() {
		return nil
	}
	visible := projection.Visible(detections, threshold)
	img := t.Image()
	cmds := make([]Command, 0, 2+3*len(visible))
	cmds = append(cmds,
		Command{Op: OpClear, W: t.SurfW, H: t.SurfH},
		Command{Op: OpImage, X: img.X, Y: img.Y, W: img.W, H: img.H},
	)
	for _, d := range visible {
		r := t.MapBox(d.Box)
		label := d.Label()
		tw := m.MeasureText(label)
		cmds = append(cmds,
			Command{Op: OpStrokeRect, X: r.X, Y: r.Y, W: r.W, H: r.H, LineWidth: LineWidth, Color: style.StrokeFor(d.ClassID)},
			Command{Op: OpFillRect, X: r.X, Y: r.Y, W: tw + 2*LabelPad, H: LabelHeight + LabelPad, Color: style.LabelFill},
			Command{Op: OpText, X: r.X + LabelPad, Y: r.Y + TextInset, Color: style.LabelText, Text: label},
		)
	}
	return cmds
}
