package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/goliatone/go-auth-bearer"
)

// Collector counts authentication activity. It implements auth.ActivitySink.
type Collector struct {
	registry *prometheus.Registry

	LoginsTotal         *prometheus.CounterVec
	TokensRejectedTotal *prometheus.CounterVec
	AccessDeniedTotal   *prometheus.CounterVec
	RegistrationsTotal  prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewCollector creates and registers all metrics in registry
func NewCollector(registry *prometheus.Registry) *Collector {
	c := &Collector{
		registry: registry,
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		TokensRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_tokens_rejected_total",
				Help: "Total number of presented bearer tokens that were not accepted",
			},
			[]string{"outcome"},
		),
		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_access_denied_total",
				Help: "Total number of requests denied by the authorization gate",
			},
			[]string{"decision"},
		),
		RegistrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_registrations_total",
				Help: "Total number of created accounts",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	registry.MustRegister(
		c.LoginsTotal,
		c.TokensRejectedTotal,
		c.AccessDeniedTotal,
		c.RegistrationsTotal,
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
	)

	return c
}

// Record implements auth.ActivitySink
func (c *Collector) Record(_ context.Context, event auth.ActivityEvent) error {
	switch event.EventType {
	case auth.ActivityEventLoginSuccess:
		c.LoginsTotal.WithLabelValues("success").Inc()
	case auth.ActivityEventLoginFailure:
		c.LoginsTotal.WithLabelValues("failure").Inc()
	case auth.ActivityEventTokenRejected:
		c.TokensRejectedTotal.WithLabelValues(event.Outcome).Inc()
	case auth.ActivityEventAccessDenied:
		c.AccessDeniedTotal.WithLabelValues(event.Outcome).Inc()
	case auth.ActivityEventRegistered:
		c.RegistrationsTotal.Inc()
	}
	return nil
}

// Middleware records request counts and latency. Paths are left out of the
// labels to keep cardinality bounded.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		method := ctx.Method()
		c.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
		c.HTTPRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
