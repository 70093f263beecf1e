// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	PollCycles        prometheus.Counter
	PollErrors        *prometheus.CounterVec // label: platform
	NotificationsSent prometheus.Counter
	NotificationFails prometheus.Counter
	TokenRefreshes    *prometheus.CounterVec // labels: platform, result

	// Histograms (seconds)
	PollDuration prometheus.Observer

	// Gauges
	LiveChannels *prometheus.GaugeVec // label: platform
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "streamwatch_poll_cycles_total", Help: "Number of completed poll cycles"})
		PollErrors = promauto.NewCounterVec(prometheus.CounterOpts{Name: "streamwatch_poll_errors_total", Help: "Number of failed platform checks"}, []string{"platform"})
		NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "streamwatch_notifications_sent_total", Help: "Number of newly-live notifications emitted"})
		NotificationFails = promauto.NewCounter(prometheus.CounterOpts{Name: "streamwatch_notification_failures_total", Help: "Number of notification sink failures"})
		TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{Name: "streamwatch_token_refreshes_total", Help: "Number of OAuth token refresh attempts"}, []string{"platform", "result"})
		PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "streamwatch_poll_duration_seconds", Help: "Poll cycle duration seconds", Buckets: prometheus.DefBuckets})
		LiveChannels = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "streamwatch_live_channels", Help: "Channels currently live per platform"}, []string{"platform"})
	})
}

// CountPollError increments the per-platform error counter if metrics are up.
func CountPollError(platform string) {
	if PollErrors != nil {
		PollErrors.WithLabelValues(platform).Inc()
	}
}

// SetLiveChannels records how many channels a platform reported live.
func SetLiveChannels(platform string, n int) {
	if LiveChannels != nil {
		LiveChannels.WithLabelValues(platform).Set(float64(n))
	}
}

// CountTokenRefresh records a refresh attempt outcome ("ok" or "error").
func CountTokenRefresh(platform, result string) {
	if TokenRefreshes != nil {
		TokenRefreshes.WithLabelValues(platform, result).Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
