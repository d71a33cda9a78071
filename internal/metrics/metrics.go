package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OTPIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_otp_issued_total",
		Help: "Total number of signup codes issued",
	})

	OTPVerifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_otp_verify_total",
		Help: "Signup code verifications by result",
	}, []string{"result"})

	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_signups_total",
		Help: "Total number of completed signups",
	})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_products_created_total",
		Help: "Total number of products added",
	})

	ProductsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_products_deleted_total",
		Help: "Total number of products deleted",
	})

	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Total number of checkout summaries produced",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

// Middleware records request count and latency per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			labels := []string{c.Request().Method, c.Path(), strconv.Itoa(status)}

			HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			HTTPRequestsTotal.WithLabelValues(labels...).Inc()
			return err
		}
	}
}

func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
