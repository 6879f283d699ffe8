// Package remote talks to the object-detection HTTP endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	iface "DetOverlay/interface"
	"DetOverlay/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:8000"
	DefaultPredictTimeout = 60 * time.Second
)

// ResolveBaseURL uses origin unless it is empty or the literal "null".
func ResolveBaseURL(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "null" {
		return DefaultBaseURL
	}
	return strings.TrimRight(origin, "/")
}

// File is an image picked by the user.
type File struct {
	Name string
	Data []byte
}

// Prediction is a decoded /predict response plus what the results panel shows.
type Prediction struct {
	Response iface.PredictResponse
	Raw      []byte
	Latency  time.Duration
}

// Client posts images to /predict. It never retries.
type Client struct {
	http    *resty.Client
	timeout time.Duration
}

type Option func(*Client)

// WithTimeout overrides the 60 s prediction deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    resty.New().SetBaseURL(ResolveBaseURL(baseURL)).SetRetryCount(0),
		timeout: DefaultPredictTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the resolved endpoint root.
func (c *Client) BaseURL() string { return c.http.BaseURL }

// Predict uploads file as multipart field "file" with conf formatted to two
// decimals. The deadline runs from the start of the call.
func (c *Client) Predict(ctx context.Context, file File, confidence float64) (*Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("conf", fmt.Sprintf("%.2f", confidence)).
		SetFileReader("file", fileName(file), bytes.NewReader(file.Data)).
		Post("/predict")
	if err != nil {
		return nil, classify(ctx, err)
	}
	raw := resp.Body()
	latency := time.Since(start)

	if !resp.IsSuccess() {
		logger.Log().Warn("predict returned error status",
			zap.Int("status", resp.StatusCode()), zap.Duration("latency", latency))
		return nil, &HTTPError{Status: resp.StatusCode(), Body: string(raw)}
	}

	var out iface.PredictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	out.Normalize()
	logger.Log().Info("predict finished",
		zap.Int("count", out.Count), zap.Int("detections", len(out.Detections)), zap.Duration("latency", latency))
	return &Prediction{Response: out, Raw: raw, Latency: latency}, nil
}

func fileName(f File) string {
	if f.Name == "" {
		return "image.jpg"
	}
	return f.Name
}

// classify maps transport failures onto ErrTimeout and ErrCanceled.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCanceled, err)
	}
	return fmt.Errorf("predict request failed: %w", err)
}
