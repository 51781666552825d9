package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	// HTTPRequestsTotal counts handled requests by route, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"path", "method", "status"},
	)

	// HTTPRequestDuration observes request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"path", "method"},
	)

	// HTTPErrorsTotal counts requests rejected with a domain error code.
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP requests failed by error code",
		},
		[]string{"path", "method", "code"},
	)

	// StatusTransitionsTotal counts committed application status transitions.
	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_status_transitions_total",
			Help: "Total number of committed application status transitions",
		},
		[]string{"from", "to"},
	)

	// ProcessorEventsTotal counts processed status-change events by outcome.
	ProcessorEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processor_events_total",
			Help: "Total number of status-change events processed by outcome",
		},
		[]string{"status", "outcome"},
	)
)

// RequestLogger logs each request and records request metrics.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		HTTPRequestsTotal.WithLabelValues(c.Path(), c.Method(), strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(c.Path(), c.Method()).Observe(duration.Seconds())

		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		)
		return err
	}
}
