package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialboard_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// LoginsTotal counts login attempts by outcome (ok, unauthorized, error).
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialboard_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"result"})

	// VerificationsTotal counts token verifications by outcome.
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialboard_token_verifications_total",
		Help: "Session token verifications by outcome.",
	}, []string{"result"})
)

// MetricsMiddleware counts every request by route template and status.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}
