package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"DetOverlay/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Prediction outcomes used as the "outcome" label.
const (
	OutcomeOK        = "ok"
	OutcomeTimeout   = "timeout"
	OutcomeHTTPError = "http_error"
	OutcomeMalformed = "malformed"
	OutcomeCanceled  = "canceled"
	OutcomeStale     = "stale"
	OutcomeError     = "error"
)

var (
	registry = prometheus.NewRegistry()

	memUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_usage_Megabytes",
		Help: "Memory usage in Megabytes",
	})
	cpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "CPU usage in percent",
	})
	PredictTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "predict_requests_total",
		Help: "Prediction requests by outcome",
	}, []string{"outcome"})
	PredictLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "predict_latency_seconds",
		Help:    "Wall time from request start to response fully read",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	HealthUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "detection_api_up",
		Help: "1 when the last health probe succeeded",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "viewer_sessions_active",
		Help: "Open viewer sessions",
	})
)

func init() {
	registry.MustRegister(memUsage, cpuUsage, PredictTotal, PredictLatency, HealthUp, ActiveSessions)
}

// ObservePredict records one finished prediction. Latency is only observed
// for requests that got a response.
func ObservePredict(outcome string, latency time.Duration) {
	PredictTotal.WithLabelValues(outcome).Inc()
	if latency > 0 {
		PredictLatency.Observe(latency.Seconds())
	}
}

func SetHealth(up bool) {
	if up {
		HealthUp.Set(1)
		return
	}
	HealthUp.Set(0)
}

// Handler serves the private registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

func checkProcessInfo(p *process.Process) {
	if memInfo, err := p.MemoryInfo(); err == nil && memInfo != nil {
		memUsage.Set(float64(memInfo.RSS / 1024 / 1024))
	}
	if cpuPercent, err := p.CPUPercent(); err == nil {
		cpuUsage.Set(math.Round(cpuPercent*100) / 100)
	}
}

// StartMon serves /metrics on port and samples process usage until ctx is done.
func StartMon(port int, ctx context.Context) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Log().Error("cannot inspect own process", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log().Error("metrics server stopped", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
checkPcs:
	for {
		select {
		case <-ctx.Done():
			break checkPcs
		case <-ticker.C:
			if p != nil {
				checkProcessInfo(p)
			}
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log().Error("metrics server shutdown", zap.Error(err))
	}
}
