package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	shieldCoveragePurchasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parashield_coverage_purchases_total",
		Help: "Total coverage policies purchased.",
	})

	shieldClaimsFiledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parashield_claims_filed_total",
		Help: "Total claims filed.",
	})

	shieldClaimsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parashield_claims_resolved_total",
		Help: "Total claims resolved, by outcome.",
	}, []string{"outcome"})

	shieldPayoutsShannonTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parashield_payouts_shannon_total",
		Help: "Total shannon paid out on approved claims.",
	})

	shieldTreasuryBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parashield_treasury_balance_shannon",
		Help: "Current treasury balance in shannon.",
	})

	shieldRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parashield_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	shieldRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parashield_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		shieldRequestsTotal.WithLabelValues(method, path, status).Inc()
		shieldRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsEndpoint returns the Prometheus scrape handler wrapped for gin.
func MetricsEndpoint() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
