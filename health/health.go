package health

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	iface "DetOverlay/interface"
	"DetOverlay/logger"
	"DetOverlay/monitor"
	"DetOverlay/remote"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultTimeout  = 8 * time.Second
	UnreachableText = "API: unreachable"
)

// Status is the text shown in the health pill.
type Status struct {
	Up        bool      `json:"up"`
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Unknown is the status before the first probe.
var Unknown = Status{Text: "API: checking…"}

// Checker probes GET /health. It is advisory only and never blocks predictions.
type Checker struct {
	client *resty.Client

	mu     sync.RWMutex
	latest Status
}

func New(baseURL string, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		client: resty.New().SetBaseURL(remote.ResolveBaseURL(baseURL)).SetTimeout(timeout),
		latest: Unknown,
	}
}

// Check runs one probe and records the result.
func (c *Checker) Check(ctx context.Context) Status {
	st := c.probe(ctx)
	st.CheckedAt = time.Now()
	c.mu.Lock()
	c.latest = st
	c.mu.Unlock()
	monitor.SetHealth(st.Up)
	return st
}

func (c *Checker) probe(ctx context.Context) Status {
	var body iface.HealthResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/health")
	if err != nil {
		logger.Log().Debug("health probe failed", zap.Error(err))
		return Status{Text: UnreachableText}
	}
	if !resp.IsSuccess() {
		logger.Log().Debug("health probe returned error", zap.String("status", resp.Status()), zap.String("body", resp.String()))
		return Status{Text: UnreachableText}
	}
	model := body.ModelName()
	return Status{Up: true, Model: model, Text: fmt.Sprintf("API: ready • %s", model)}
}

// Latest returns the last recorded status.
func (c *Checker) Latest() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Run probes once right away and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration, wg *sync.WaitGroup) {
	defer wg.Done()
	safeCheck := func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log().Error("health check panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			}
		}()
		st := c.Check(ctx)
		logger.Log().Info("health", zap.Bool("up", st.Up), zap.String("model", st.Model))
	}
	safeCheck()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Log().Info("health loop stopped")
			return
		case <-ticker.C:
			safeCheck()
		}
	}
}
