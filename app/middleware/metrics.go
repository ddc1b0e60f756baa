package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LocalErrorCode carries the API error code of a failed request to Metrics
const LocalErrorCode = "error_code"

const (
	anonymousTier  = "anonymous"
	unmatchedRoute = "unmatched"
)

var (
	apiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banning_api_requests_total",
			Help: "API requests by route pattern, status class and caller tier",
		},
		[]string{"method", "route", "status_class", "tier"},
	)

	apiLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "banning_api_request_duration_seconds",
			Help:    "API request latencies in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	apiErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banning_api_errors_total",
			Help: "Failed API requests by error code",
		},
		[]string{"route", "code"},
	)
)

// SetErrorCode tags the request with the error code written to the response
func SetErrorCode(c fiber.Ctx, code string) {
	c.Locals(LocalErrorCode, code)
}

// Metrics records each request under its route pattern, labelled with the tier of the
// authenticated operator. Requests for which skip returns true are not recorded.
func Metrics(skip func(fiber.Ctx) bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		if skip != nil && skip(c) {
			return c.Next()
		}
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		code, _ := c.Locals(LocalErrorCode).(string)
		if err != nil {
			// the app error handler writes the response after this returns
			status, code = fiber.StatusInternalServerError, "INTERNAL_ERROR"
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
				if status < fiber.StatusInternalServerError {
					code = "REQUEST_ERROR"
				}
			}
		}

		route := unmatchedRoute
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		tier := anonymousTier
		if session, ok := GetSessionFromContext(c); ok && session.Tier != "" {
			tier = session.Tier
		}

		method := c.Method()
		apiRequests.WithLabelValues(method, route, statusClass(status), tier).Inc()
		apiLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if code != "" {
			apiErrors.WithLabelValues(route, code).Inc()
		}

		return err
	}
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
