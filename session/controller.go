// Package session holds the state of one viewer tab and applies every event
// to it: file selection, surface resize, threshold changes and predictions.
//
// All events are serialised by one mutex. A prediction request runs without
// the lock, and its result is applied only if no newer file was selected in
// the meantime.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"DetOverlay/geometry"
	iface "DetOverlay/interface"
	"DetOverlay/logger"
	"DetOverlay/monitor"
	"DetOverlay/overlay"
	"DetOverlay/projection"
	"DetOverlay/remote"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

var (
	ErrNoFile = errors.New("session: no file selected")
	ErrBusy   = errors.New("session: a prediction is already running")
	// ErrStale means the response belonged to a file that is no longer selected
	// and was dropped.
	ErrStale = errors.New("session: response dropped, file changed")
)

const (
	DefaultThreshold     = 0.25
	DefaultSurfaceWidth  = 640
	DefaultSurfaceHeight = 480
)

// Predictor is the request side of a prediction.
type Predictor interface {
	Predict(ctx context.Context, file remote.File, confidence float64) (*remote.Prediction, error)
}

type Options struct {
	Style         overlay.Style
	ListLimit     int
	Threshold     float64
	SurfaceWidth  int
	SurfaceHeight int
}

func (o *Options) defaults() {
	if o.Style == (overlay.Style{}) {
		o.Style = overlay.DefaultStyle()
	}
	if o.ListLimit <= 0 {
		o.ListLimit = projection.DefaultLimit
	}
	if o.Threshold <= 0 || math.IsNaN(o.Threshold) {
		o.Threshold = DefaultThreshold
	}
	if o.SurfaceWidth <= 0 {
		o.SurfaceWidth = DefaultSurfaceWidth
	}
	if o.SurfaceHeight <= 0 {
		o.SurfaceHeight = DefaultSurfaceHeight
	}
}

type Controller struct {
	mu        sync.Mutex
	predictor Predictor
	style     overlay.Style
	limit     int

	canvas    *overlay.Canvas
	transform geometry.Transform
	file      *remote.File
	state     State

	cancel context.CancelFunc
}

func New(p Predictor, opts Options) *Controller {
	opts.defaults()
	c := &Controller{
		predictor: p,
		style:     opts.Style,
		limit:     opts.ListLimit,
		canvas:    overlay.NewCanvas(opts.SurfaceWidth, opts.SurfaceHeight),
	}
	c.state.Threshold = opts.Threshold
	c.state.SurfaceWidth, c.state.SurfaceHeight = c.canvas.Size()
	return c
}

// State returns a snapshot without changing anything.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SelectFile replaces the selected file. Any in-flight request is cancelled,
// the results are cleared and only the new background is drawn. An empty
// data slice deselects the file. A decode failure keeps the file selected
// with nothing to draw.
func (c *Controller) SelectFile(name string, data []byte) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state.Generation++
	c.state.resetResults()
	c.state.ImageWidth, c.state.ImageHeight = 0, 0
	c.canvas.SetSource(nil)

	if len(data) == 0 {
		c.file = nil
		c.state.HasFile = false
		c.state.FileName = ""
		c.refit()
		c.clear()
		return c.state.clone(), nil
	}

	c.file = &remote.File{Name: name, Data: data}
	c.state.HasFile = true
	c.state.FileName = name

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		c.refit()
		c.clear()
		logger.Log().Warn("cannot decode selected image", zap.String("file", name), zap.Error(err))
		return c.state.clone(), fmt.Errorf("failed to decode image: %w", err)
	}
	c.canvas.SetSource(img)
	b := img.Bounds()
	c.state.ImageWidth, c.state.ImageHeight = b.Dx(), b.Dy()
	c.refit()
	c.redraw()
	return c.state.clone(), nil
}

// Resize changes the surface size, refits and redraws with the current detections.
func (c *Controller) Resize(w, h float64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	sw, sh := geometry.SurfaceSize(w, h)
	c.canvas.Resize(sw, sh)
	c.state.SurfaceWidth, c.state.SurfaceHeight = sw, sh
	c.refit()
	c.redraw()
	return c.state.clone()
}

// SetThreshold redraws with a new confidence threshold. No request is made.
func (c *Controller) SetThreshold(t float64) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	c.state.Threshold = t
	c.redraw()
	return c.state.clone()
}

// Predict sends the selected file with the current threshold. It blocks until
// the request finishes. Only one request may be in flight; Busy is released
// on every path.
func (c *Controller) Predict(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.file == nil {
		st := c.state.clone()
		c.mu.Unlock()
		return st, ErrNoFile
	}
	if c.state.Busy {
		st := c.state.clone()
		c.mu.Unlock()
		return st, ErrBusy
	}
	c.state.Busy = true
	c.state.resetResults()
	c.redraw()

	generation := c.state.Generation
	file := *c.file
	confidence := c.state.Threshold
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	pred, err := c.predictor.Predict(reqCtx, file, confidence)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Busy = false

	if generation != c.state.Generation {
		monitor.ObservePredict(monitor.OutcomeStale, 0)
		logger.Log().Info("dropping stale prediction",
			zap.Uint64("generation", generation), zap.Uint64("current", c.state.Generation))
		return c.state.clone(), ErrStale
	}
	c.cancel = nil

	if err != nil {
		monitor.ObservePredict(remote.Outcome(err), 0)
		c.state.Message = remote.Message(err)
		logger.Log().Warn("prediction failed", zap.String("file", file.Name), zap.Error(err))
		return c.state.clone(), err
	}
	monitor.ObservePredict(monitor.OutcomeOK, pred.Latency)

	resp := pred.Response
	c.state.HasResult = true
	c.state.Count = resp.Count
	c.state.Latency = pred.Latency
	c.state.Detections = append([]iface.Detection(nil), resp.Detections...)
	c.state.List = projection.List(c.state.Detections, c.limit)
	c.state.Raw = prettyJSON(pred.Raw)
	c.refit()
	c.redraw()
	return c.state.clone(), nil
}

// PNG returns the current overlay frame.
func (c *Controller) PNG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canvas.PNG()
}

// Frame returns a copy of the current overlay pixels.
func (c *Controller) Frame() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.canvas.Image()
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// Close cancels any in-flight request.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) refit() {
	w, h := c.canvas.Size()
	// a not-ready transform makes Render return nothing, so the error is dropped
	c.transform, _ = geometry.Fit(float64(c.state.ImageWidth), float64(c.state.ImageHeight), float64(w), float64(h))
}

func (c *Controller) redraw() {
	c.state.Visible = len(projection.Visible(c.state.Detections, c.state.Threshold))
	c.canvas.Execute(overlay.Render(c.transform, c.state.Detections, c.state.Threshold, c.style, c.canvas))
}

func (c *Controller) clear() {
	c.canvas.Execute([]overlay.Command{{Op: overlay.OpClear}})
}

func prettyJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
