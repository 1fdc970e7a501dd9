package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors for the mail dispatcher, the
// scheduler, and the admin API.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	emailsSentTotal     *prometheus.CounterVec
	emailsFailedTotal   *prometheus.CounterVec
	emailSendDuration   *prometheus.HistogramVec
	fallbackTotal       *prometheus.CounterVec
	quotaExhaustedTotal prometheus.Counter
	quotaRemaining      *prometheus.GaugeVec
	jobDuration         *prometheus.HistogramVec
	jobFailuresTotal    *prometheus.CounterVec
	jobSkippedTotal     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smartmail",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "smartmail",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		emailsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smartmail",
				Name:      "emails_sent_total",
				Help:      "Total number of emails delivered, by provider and message type.",
			},
			[]string{"provider", "message_type"},
		),
		emailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smartmail",
				Name:      "emails_failed_total",
				Help:      "Total number of failed send attempts, by provider and message type.",
			},
			[]string{"provider", "message_type"},
		),
		emailSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "smartmail",
				Name:      "email_send_duration_seconds",
				Help:      "Provider send duration in seconds, by provider.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"provider"},
		),
		fallbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smartmail",
				Name:      "provider_fallback_total",
				Help:      "Total number of fallback passes entered after a failed primary attempt, by failed provider.",
			},
			[]string{"provider"},
		),
		quotaExhaustedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "smartmail",
				Name:      "quota_exhausted_total",
				Help:      "Total number of sends rejected because every provider was at its daily quota.",
			},
		),
		quotaRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "smartmail",
				Name:      "provider_quota_remaining",
				Help:      "Remaining daily send quota per provider as of the last usage read.",
			},
			[]string{"provider"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "smartmail",
				Name:      "scheduler_job_duration_seconds",
				Help:      "Scheduled job run duration in seconds, by job.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"job"},
		),
		jobFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smartmail",
				Name:      "scheduler_job_failures_total",
				Help:      "Total number of scheduled job runs that returned an error, by job.",
			},
			[]string{"job"},
		),
		jobSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smartmail",
				Name:      "scheduler_job_skipped_total",
				Help:      "Total number of job ticks skipped because the previous run was still in progress, by job.",
			},
			[]string{"job"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.emailsSentTotal,
		m.emailsFailedTotal,
		m.emailSendDuration,
		m.fallbackTotal,
		m.quotaExhaustedTotal,
		m.quotaRemaining,
		m.jobDuration,
		m.jobFailuresTotal,
		m.jobSkippedTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncEmailSent(providerID string, messageType string) {
	if m == nil {
		return
	}
	m.emailsSentTotal.WithLabelValues(normalizeLabel(providerID), normalizeLabel(messageType)).Inc()
}

func (m *Metrics) IncEmailFailed(providerID string, messageType string) {
	if m == nil {
		return
	}
	m.emailsFailedTotal.WithLabelValues(normalizeLabel(providerID), normalizeLabel(messageType)).Inc()
}

func (m *Metrics) ObserveSendDuration(providerID string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.emailSendDuration.WithLabelValues(normalizeLabel(providerID)).Observe(seconds)
}

func (m *Metrics) IncFallback(failedProviderID string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(normalizeLabel(failedProviderID)).Inc()
}

func (m *Metrics) IncQuotaExhausted() {
	if m == nil {
		return
	}
	m.quotaExhaustedTotal.Inc()
}

func (m *Metrics) SetQuotaRemaining(providerID string, remaining int) {
	if m == nil {
		return
	}
	if remaining < 0 {
		remaining = 0
	}
	m.quotaRemaining.WithLabelValues(normalizeLabel(providerID)).Set(float64(remaining))
}

func (m *Metrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.jobDuration.WithLabelValues(normalizeLabel(job)).Observe(seconds)
}

func (m *Metrics) IncJobFailure(job string) {
	if m == nil {
		return
	}
	m.jobFailuresTotal.WithLabelValues(normalizeLabel(job)).Inc()
}

func (m *Metrics) IncJobSkipped(job string) {
	if m == nil {
		return
	}
	m.jobSkippedTotal.WithLabelValues(normalizeLabel(job)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
